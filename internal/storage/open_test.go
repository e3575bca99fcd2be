package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/jjudge-oj/catalog/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryBackend(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.StorageConfig{Backend: "Memory"})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "k", bytes.NewReader([]byte("v")), 1, "text/plain"))
	rc, err := store.Get(ctx, "k")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "ftp"})
	require.Error(t, err)
}

func TestOpenMinioRequiresCredentials(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{
		Backend: "minio",
		Minio:   config.MinioConfig{Endpoint: "localhost:9000", Bucket: "b"},
	})
	require.Error(t, err)
}
