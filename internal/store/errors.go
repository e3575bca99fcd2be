package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a record changed since it was read.
var ErrConflict = errors.New("conflict")

// ProblemFilter narrows a problem listing. When IDs is non-empty it wins over
// Tags and pagination. Results are always ordered by id ascending.
type ProblemFilter struct {
	IDs             []int
	Tags            []string
	IncludeArchived bool
	Offset          int
	// Limit <= 0 means no limit.
	Limit int
}
