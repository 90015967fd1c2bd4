package shared

import "errors"

var (
	// ErrNotFound indicates a row was absent, as opposed to a storage failure.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation on insert.
	ErrConflict = errors.New("already in use")
)
