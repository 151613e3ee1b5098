// Package gormstore implements the storage.Backend interface on top of GORM
// with internal queues and a background DB writer goroutine. The postgres and
// sqlite backends wrap it.
package gormstore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/squidsoft/flightmarkers/internal/model"
	"github.com/squidsoft/flightmarkers/internal/model/convert"
	"github.com/squidsoft/flightmarkers/internal/queue"
	"github.com/squidsoft/flightmarkers/pkg/core"

	"gorm.io/gorm"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultMaxQueued     = 50000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger

	// FlushInterval is the writer period. Zero means 2s.
	FlushInterval time.Duration
	// MaxQueued bounds each queue; the oldest rows are dropped past it.
	MaxQueued int
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps Dependencies

	frames *queue.Queue[model.VesselFrame]
	arrows *queue.Queue[model.ArrowRecord]

	sessionID atomic.Uint64
	flushMu   sync.Mutex

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.MaxQueued <= 0 {
		deps.MaxQueued = defaultMaxQueued
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates the queues and starts the DB writer goroutine.
// The schema must already be migrated.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gormstore: no database")
	}
	b.frames = queue.NewBounded[model.VesselFrame](b.deps.MaxQueued)
	b.arrows = queue.NewBounded[model.ArrowRecord](b.deps.MaxQueued)
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	go b.writeLoop()
	return nil
}

// Close stops the writer and flushes what is left.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	<-b.done
	return b.Flush()
}

// StartSession inserts the session row synchronously so frames can reference it.
func (b *Backend) StartSession(s *core.Session) error {
	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	b.sessionID.Store(uint64(row.ID))
	b.deps.Logger.Info("Session started", "session", s.ID, "dbId", row.ID)
	return nil
}

// EndSession flushes the queues and stamps the session's end time.
func (b *Backend) EndSession() error {
	id := uint(b.sessionID.Load())
	if id == 0 {
		return core.ErrNoSession
	}
	if err := b.Flush(); err != nil {
		return err
	}
	err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).
		Update("end_time", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	b.sessionID.Store(0)
	return nil
}

// SessionID returns the database id of the open session, or 0.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// RecordFrame converts a frame and queues it with its arrows.
func (b *Backend) RecordFrame(f *core.Frame) error {
	id := uint(b.sessionID.Load())
	if id == 0 {
		return core.ErrNoSession
	}
	frame, err := convert.CoreToVesselFrame(*f, id)
	if err != nil {
		return fmt.Errorf("vessel %s frame %d: %w", f.VesselID, f.FrameNumber, err)
	}
	rows, err := convert.CoreToArrowRecords(*f, id)
	if err != nil {
		return fmt.Errorf("vessel %s frame %d: %w", f.VesselID, f.FrameNumber, err)
	}
	b.frames.Push(frame)
	if len(rows) > 0 {
		b.arrows.Push(rows...)
	}
	return nil
}

// Pending returns the number of queued rows.
func (b *Backend) Pending() int {
	return b.frames.Len() + b.arrows.Len()
}

// Dropped returns how many rows were discarded because a queue was full.
func (b *Backend) Dropped() uint64 {
	return b.frames.Dropped() + b.arrows.Dropped()
}

// Flush writes everything queued so far.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	return errors.Join(
		writeQueue(b.deps.DB, b.frames, "vessel frames", b.deps.Logger),
		writeQueue(b.deps.DB, b.arrows, "arrow records", b.deps.Logger),
	)
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back to the front of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&items, 500).Error
	})
	if err != nil {
		log.Error("Error creating rows", "table", name, "count", len(items), "error", err)
		q.Requeue(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// writeLoop periodically drains the queues into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
