// Package memory keeps a session's frames in memory and exports them to JSON
// when the session ends.
package memory

import (
	"sync"
	"time"

	"github.com/squidsoft/flightmarkers/internal/config"
	"github.com/squidsoft/flightmarkers/pkg/core"
)

// VesselRecord groups a vessel's frames in arrival order.
type VesselRecord struct {
	VesselID string
	Frames   []core.Frame
}

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	vessels map[string]*VesselRecord
	order   []string // vessel ids in first-seen order
	frames  int

	lastExportPath string
	now            func() time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		vessels: make(map[string]*VesselRecord),
		now:     time.Now,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and discards anything unexported.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.vessels = make(map[string]*VesselRecord)
	b.order = nil
	b.frames = 0
	return nil
}

// EndSession exports the session and clears it.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.session = nil
	return nil
}

// RecordFrame appends a frame to its vessel's record.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	rec, ok := b.vessels[f.VesselID]
	if !ok {
		rec = &VesselRecord{VesselID: f.VesselID}
		b.vessels[f.VesselID] = rec
		b.order = append(b.order, f.VesselID)
	}
	rec.Frames = append(rec.Frames, *f)
	b.frames++
	return nil
}

// FrameCount returns the number of frames recorded in the current session.
func (b *Backend) FrameCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frames
}

// Frames returns a copy of one vessel's frames.
func (b *Backend) Frames(vesselID string) []core.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.vessels[vesselID]
	if !ok {
		return nil
	}
	return append([]core.Frame(nil), rec.Frames...)
}

// ExportedFilePath returns the path of the last exported file.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
