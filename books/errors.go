package books

import "errors"

var (
	// ErrNotFound is returned when an identifier does not resolve.
	ErrNotFound = errors.New("books: not found")
	// ErrInvalidArgument is returned for malformed or missing arguments.
	ErrInvalidArgument = errors.New("books: invalid argument")
	// ErrUnavailable is returned when the underlying store cannot be read.
	ErrUnavailable = errors.New("books: library unavailable")
	// ErrBusy marks an ErrUnavailable failure caused by a locked store. The
	// same call may succeed once Apple Books releases its lock.
	ErrBusy = errors.New("books: store busy")
)
