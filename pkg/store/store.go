package store

import "errors"

var (
	// ErrNotFound is returned by repositories when the requested record does
	// not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentUpdate is returned when an update loses an optimistic
	// version check against a concurrent writer.
	ErrConcurrentUpdate = errors.New("record was modified concurrently")

	ErrDuplicate = errors.New("record already exists")
)
