package scheduler

import "errors"

var (
	// ErrDuplicateProcessID is returned when two processes in one input
	// share an id.
	ErrDuplicateProcessID = errors.New("duplicate process id")
	// ErrInvalidConfiguration is returned for an unknown algorithm or a
	// non-positive Round-Robin quantum.
	ErrInvalidConfiguration = errors.New("invalid scheduler configuration")
)
