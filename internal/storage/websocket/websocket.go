// Package websocket streams recorded frames to a live viewer.
package websocket

import (
	"fmt"
	"log/slog"

	"github.com/squidsoft/flightmarkers/pkg/core"
	"github.com/squidsoft/flightmarkers/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams session data over WebSocket. Frames are fire-and-forget;
// session boundaries wait for a server ack.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped returns how many messages were discarded because the send buffer was full.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// Pending returns how many messages wait in the send buffer.
func (b *Backend) Pending() int {
	return len(b.conn.sendCh)
}

// StartSession announces the session and waits for the server ack.
// The message is cached and replayed after a reconnect.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := streaming.Marshal(streaming.TypeStartSession, streaming.NewStartSessionPayload(s))
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeStartSession, err)
	}

	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession() error {
	data, err := streaming.Marshal(streaming.TypeEndSession, nil)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeEndSession, err)
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

// RecordFrame queues a frame for sending.
func (b *Backend) RecordFrame(f *core.Frame) error {
	data, err := streaming.Marshal(streaming.TypeVesselFrame, f)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeVesselFrame, err)
	}
	b.conn.send(data)
	return nil
}
