package store

import "errors"

// ErrNotFound is returned when a record does not exist or is not owned by the caller.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when a user insert hits the unique email index.
var ErrDuplicateEmail = errors.New("email already in use")
