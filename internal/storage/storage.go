// Package storage defines the frame recording backends.
package storage

import (
	"github.com/squidsoft/flightmarkers/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// RecordFrame stores one vessel frame. It must not block on I/O.
	RecordFrame(f *core.Frame) error
}

// Exportable is an optional interface for backends that write a file when a
// session ends.
type Exportable interface {
	ExportedFilePath() string
}

// Queued is an optional interface for backends that buffer writes.
type Queued interface {
	Pending() int
	Dropped() uint64
}
