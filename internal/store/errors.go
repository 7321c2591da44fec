package store

import "errors"

var (
	// ErrNotFound is returned when no document matches, including lookups
	// by an id that is not a valid ObjectID.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict is returned when a conditional update did not apply
	// because the document is not in the expected state.
	ErrConflict = errors.New("conflict")
)
