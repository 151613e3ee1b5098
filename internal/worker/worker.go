// Package worker implements the host commands on top of the dispatcher.
package worker

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/rs/zerolog"
	"github.com/squidsoft/flightmarkers/internal/influx"
	"github.com/squidsoft/flightmarkers/internal/markers"
	"github.com/squidsoft/flightmarkers/internal/parser"
	"github.com/squidsoft/flightmarkers/internal/storage"
	"github.com/squidsoft/flightmarkers/pkg/core"
)

// ErrSessionActive is returned by :SESSION:START: while a session is open.
var ErrSessionActive = errors.New("session already active")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Parser   *parser.Parser
	Registry *markers.Registry
	Logger   *slog.Logger

	// FrameLog gets one debug entry per processed frame; wrap it with
	// logging.FrameSampler to keep the volume down.
	FrameLog zerolog.Logger

	// Influx is optional.
	Influx *influx.Manager

	ExtensionVersion string

	// OnSessionEnd runs after the backend closed a session, e.g. to flush logs.
	OnSessionEnd func(core.Session)
}

// Manager routes parsed commands to the marker registry, storage and telemetry.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	mu      sync.RWMutex
	session *core.Session
}

// NewManager creates a new worker manager. backend may be nil, in which case
// frames are aggregated but not recorded.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Registry == nil {
		deps.Registry = markers.NewRegistry(nil)
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Session returns the open session, if any.
func (m *Manager) Session() (core.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return core.Session{}, false
	}
	return *m.session, true
}

// LogContext returns the attributes added to every log record while a session is open.
func (m *Manager) LogContext() []slog.Attr {
	s, ok := m.Session()
	if !ok {
		return nil
	}
	return []slog.Attr{slog.String("session", s.ID)}
}

func (m *Manager) hasBackend() bool {
	return m.backend != nil
}
