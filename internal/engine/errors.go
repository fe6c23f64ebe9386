package engine

import "errors"

var (
	// ErrClosed is returned when an operation is attempted on a closed Engine.
	ErrClosed = errors.New("engine: closed")

	// ErrLocked is returned when dir is already locked by another Engine.
	ErrLocked = errors.New("engine: directory is locked by another engine")

	// ErrInconsistentRun is returned at reopen time when a run cannot be
	// opened from its ".index" file: the paired ".chest" file is missing,
	// or the index file is unreadable or truncated.
	ErrInconsistentRun = errors.New("engine: index file with no matching chest file")
)
