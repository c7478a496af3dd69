package tween

import "errors"

var (
	// ErrInvalidParameter is returned for malformed transitions, sequences and ticks.
	ErrInvalidParameter = errors.New("tween: invalid parameter")

	// ErrAlreadyRunning is returned when a guarded start is attempted while
	// the scheduler is busy. It is not fatal; callers decide whether to retry.
	ErrAlreadyRunning = errors.New("tween: already running")

	// ErrNotFound is returned when operating on a handle that is unknown or
	// no longer running.
	ErrNotFound = errors.New("tween: not found")

	// ErrShutdown is returned by a scheduler after Shutdown.
	ErrShutdown = errors.New("tween: scheduler shut down")
)
