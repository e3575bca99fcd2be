package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jjudge-oj/catalog/internal/store"
)

var (
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing entity. It is the store sentinel so either
	// can be matched with errors.Is.
	ErrNotFound = store.ErrNotFound

	// ErrConflict marks a concurrent modification detected by the store.
	ErrConflict = store.ErrConflict

	// ErrStorage wraps any other failure of the document or blob store.
	ErrStorage = errors.New("storage failure")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classify keeps errors already in the taxonomy and wraps the rest as ErrStorage.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrStorage),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
}
