package core

import "errors"

var (
	// ErrInvalidSnapshot is returned for vessel snapshots that cannot be aggregated.
	ErrInvalidSnapshot = errors.New("invalid vessel snapshot")
	// ErrUnknownVessel is returned for commands naming a vessel that was never seen.
	ErrUnknownVessel = errors.New("unknown vessel")
	// ErrNoSession is returned when a frame is recorded outside a session.
	ErrNoSession = errors.New("no active session")
)
