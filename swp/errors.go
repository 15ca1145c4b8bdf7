package swp

import "errors"

var (
	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("swp: config is nil")

	// ErrAlreadyRunning indicates that Run was called while the protocol loop is active.
	ErrAlreadyRunning = errors.New("swp: protocol is already running")

	// ErrNilLayer indicates that a network or physical layer was not provided.
	ErrNilLayer = errors.New("swp: network and physical layers are required")

	// ErrNilEventQueue indicates that an event queue was not provided.
	ErrNilEventQueue = errors.New("swp: event queue is nil")
)
