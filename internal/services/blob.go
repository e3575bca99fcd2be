package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jjudge-oj/catalog/internal/logger"
	"github.com/jjudge-oj/catalog/internal/storage"
)

const blobContentType = "application/zip"

// BlobService coordinates the blobs referenced by problems: provided codes
// and testcase IO archives.
type BlobService struct {
	storage *storage.Storage
}

func NewBlobService(store *storage.Storage) *BlobService {
	return &BlobService{storage: store}
}

// Upload stores data under a fresh random id and returns the id.
func (s *BlobService) Upload(ctx context.Context, data []byte) (string, error) {
	id := uuid.NewString()
	err := s.storage.Put(ctx, id, bytes.NewReader(data), int64(len(data)), blobContentType)
	observeBlob("upload", err)
	if err != nil {
		return "", fmt.Errorf("%w: upload blob: %w", ErrStorage, err)
	}
	return id, nil
}

// Download opens the blob with the given id. The caller closes the reader.
func (s *BlobService) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty blob id", ErrNotFound)
	}
	rc, err := s.storage.Get(ctx, id)
	if errors.Is(err, storage.ErrObjectNotFound) {
		observeBlob("download", nil)
		return nil, fmt.Errorf("%w: blob %s", ErrNotFound, id)
	}
	observeBlob("download", err)
	if err != nil {
		return nil, fmt.Errorf("%w: download blob %s: %w", ErrStorage, id, err)
	}
	return rc, nil
}

// Release deletes the blob. Releasing an absent blob is not an error.
func (s *BlobService) Release(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	err := s.storage.Delete(ctx, id)
	if errors.Is(err, storage.ErrObjectNotFound) {
		err = nil
	}
	observeBlob("release", err)
	if err != nil {
		return fmt.Errorf("%w: release blob %s: %w", ErrStorage, id, err)
	}
	return nil
}

// releaseAll releases every id, logging failures. It runs detached from ctx
// cancellation since the owning document is already gone.
func (s *BlobService) releaseAll(ctx context.Context, ids []string) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range ids {
		if err := s.Release(ctx, id); err != nil {
			logger.FromContext(ctx).Error("failed to release blob", "blob_id", id, "error", err)
		}
	}
}
