package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/squidsoft/flightmarkers/internal/dispatcher"
	"github.com/squidsoft/flightmarkers/internal/influx"
	"github.com/squidsoft/flightmarkers/internal/markers"
	"github.com/squidsoft/flightmarkers/internal/storage"
	"github.com/squidsoft/flightmarkers/internal/util"
	"github.com/squidsoft/flightmarkers/pkg/core"
)

// FrameReply is the result of :FRAME:.
type FrameReply struct {
	VesselID    string          `json:"vesselId"`
	Frame       uint            `json:"frame"`
	Enabled     bool            `json:"enabled"`
	CombineLift bool            `json:"combineLift"`
	Skipped     core.SkipReason `json:"skipped,omitempty"`
	Arrows      []core.Arrow    `json:"arrows"`
}

// VesselState is the result of the marker toggles.
type VesselState struct {
	VesselID    string `json:"vesselId"`
	Enabled     bool   `json:"enabled"`
	CombineLift bool   `json:"combineLift"`
	Hidden      bool   `json:"hidden"`
}

// SessionReply is the result of the session commands.
type SessionReply struct {
	SessionID  string `json:"sessionId"`
	ExportPath string `json:"exportPath,omitempty"`
}

// Status is the result of :STATUS:.
type Status struct {
	Vessels []string `json:"vessels"`
	Hidden  bool     `json:"hidden"`
	Session string   `json:"session,omitempty"`
}

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Frames reply with their arrows, so they run inline.
	d.Register(":FRAME:", m.handleFrame, dispatcher.Logged())

	d.Register(":MARKERS:TOGGLE:", m.handleMarkersToggle, dispatcher.Logged())
	d.Register(":MARKERS:COMBINE:", m.handleMarkersCombine, dispatcher.Logged())
	d.Register(":UI:HIDE:", m.handleHide, dispatcher.Logged())
	d.Register(":UI:SHOW:", m.handleShow, dispatcher.Logged())
	d.Register(":VESSEL:REMOVE:", m.handleVesselRemove, dispatcher.Logged())

	d.Register(":SESSION:START:", m.handleSessionStart, dispatcher.Logged())
	d.Register(":SESSION:END:", m.handleSessionEnd, dispatcher.Logged())

	d.Register(":STATUS:", m.handleStatus)

	// Host metrics are fire-and-forget.
	d.Register(":METRIC:", m.handleMetric, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (m *Manager) handleFrame(e dispatcher.Event) (any, error) {
	snap, err := m.deps.Parser.ParseSnapshot(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}

	vm := m.deps.Registry.GetOrCreate(snap.VesselID)
	frame, err := vm.Update(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to update vessel %s: %w", snap.VesselID, err)
	}

	// Disabled vessels produce a frame every tick; only the rest is worth keeping.
	if frame.Skipped != core.SkipDisabled {
		m.record(&frame)
	}

	m.deps.FrameLog.Debug().
		Str("vessel", frame.VesselID).
		Uint("frame", frame.FrameNumber).
		Int("arrows", len(frame.Arrows)).
		Str("skipped", string(frame.Skipped)).
		Msg("frame processed")

	arrows := frame.Arrows
	if arrows == nil {
		arrows = []core.Arrow{}
	}
	return FrameReply{
		VesselID:    frame.VesselID,
		Frame:       frame.FrameNumber,
		Enabled:     vm.Enabled(),
		CombineLift: vm.CombineLift(),
		Skipped:     frame.Skipped,
		Arrows:      arrows,
	}, nil
}

// record hands a frame to storage and telemetry. Failures are logged, never
// returned: the host still gets its arrows.
func (m *Manager) record(f *core.Frame) {
	if m.hasBackend() {
		if _, open := m.Session(); open {
			if err := m.backend.RecordFrame(f); err != nil {
				m.deps.Logger.Warn("Failed to record frame", "vessel", f.VesselID, "frame", f.FrameNumber, "error", err)
			}
		}
	}
	if m.deps.Influx != nil {
		if err := m.deps.Influx.WriteFrame(*f); err != nil {
			m.deps.Logger.Warn("Failed to write frame metrics", "vessel", f.VesselID, "error", err)
		}
	}
}

// vesselArgs reads "<vesselId>[|<state>]".
func vesselArgs(args []string) (id string, state *bool, err error) {
	if len(args) == 0 || util.CleanArg(args[0]) == "" {
		return "", nil, errors.New("missing vessel id")
	}
	id = util.CleanArg(args[0])
	if len(args) > 1 {
		v, err := util.ParseBool(args[1])
		if err != nil {
			return "", nil, fmt.Errorf("invalid state %q: %w", args[1], err)
		}
		state = &v
	}
	return id, state, nil
}

func (m *Manager) handleMarkersToggle(e dispatcher.Event) (any, error) {
	id, state, err := vesselArgs(e.Args)
	if err != nil {
		return nil, err
	}
	vm := m.deps.Registry.GetOrCreate(id)
	if state != nil {
		vm.SetEnabled(*state)
	} else {
		vm.Toggle()
	}
	return stateOf(vm), nil
}

func (m *Manager) handleMarkersCombine(e dispatcher.Event) (any, error) {
	id, state, err := vesselArgs(e.Args)
	if err != nil {
		return nil, err
	}
	vm := m.deps.Registry.GetOrCreate(id)
	if state != nil {
		vm.SetCombineLift(*state)
	} else {
		vm.ToggleCombine()
	}
	return stateOf(vm), nil
}

func stateOf(vm *markers.VesselMarkers) VesselState {
	return VesselState{VesselID: vm.ID(), Enabled: vm.Enabled(), CombineLift: vm.CombineLift(), Hidden: vm.Hidden()}
}

func (m *Manager) handleHide(dispatcher.Event) (any, error) {
	m.deps.Registry.HideAll()
	return m.Status(), nil
}

func (m *Manager) handleShow(dispatcher.Event) (any, error) {
	m.deps.Registry.ShowAll()
	return m.Status(), nil
}

func (m *Manager) handleVesselRemove(e dispatcher.Event) (any, error) {
	id, _, err := vesselArgs(e.Args)
	if err != nil {
		return nil, err
	}
	if !m.deps.Registry.Remove(id) {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownVessel, id)
	}
	return m.Status(), nil
}

func (m *Manager) handleStatus(dispatcher.Event) (any, error) {
	return m.Status(), nil
}

// Status reports the known vessels, the hidden flag and the open session.
func (m *Manager) Status() Status {
	s := Status{
		Vessels: m.deps.Registry.IDs(),
		Hidden:  m.deps.Registry.Hidden(),
	}
	if session, ok := m.Session(); ok {
		s.Session = session.ID
	}
	return s
}

// handleSessionStart opens a session: ":SESSION:START:|<name>[|<id>]".
func (m *Manager) handleSessionStart(e dispatcher.Event) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionActive, m.session.ID)
	}

	s := &core.Session{
		ID:               uuid.NewString(),
		StartTime:        time.Now().UTC(),
		ExtensionVersion: m.deps.ExtensionVersion,
	}
	if len(e.Args) > 0 {
		s.Name = util.CleanArg(e.Args[0])
	}
	if len(e.Args) > 1 {
		id, err := uuid.Parse(util.CleanArg(e.Args[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid session id: %w", err)
		}
		s.ID = id.String()
	}

	if m.hasBackend() {
		if err := m.backend.StartSession(s); err != nil {
			return nil, fmt.Errorf("failed to start session: %w", err)
		}
	}
	m.session = s
	m.deps.Logger.Info("Session started", "session", s.ID, "name", s.Name)
	return SessionReply{SessionID: s.ID}, nil
}

// handleSessionEnd closes the open session. The session stays open when the
// backend fails to end it, so the command can be retried.
func (m *Manager) handleSessionEnd(dispatcher.Event) (any, error) {
	m.mu.Lock()
	s := m.session
	if s == nil {
		m.mu.Unlock()
		return nil, core.ErrNoSession
	}

	reply := SessionReply{SessionID: s.ID}
	if m.hasBackend() {
		if err := m.backend.EndSession(); err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("failed to end session: %w", err)
		}
		if exp, ok := m.backend.(storage.Exportable); ok {
			reply.ExportPath = exp.ExportedFilePath()
		}
	}
	m.session = nil
	m.mu.Unlock()

	if m.deps.OnSessionEnd != nil {
		m.deps.OnSessionEnd(*s)
	}
	m.deps.Logger.Info("Session ended", "session", s.ID, "export", reply.ExportPath)
	return reply, nil
}

// EndSession closes the open session, if any. Used on shutdown.
func (m *Manager) EndSession() error {
	if _, ok := m.Session(); !ok {
		return nil
	}
	_, err := m.handleSessionEnd(dispatcher.Event{Command: ":SESSION:END:"})
	return err
}

func (m *Manager) handleMetric(e dispatcher.Event) (any, error) {
	if m.deps.Influx == nil {
		return nil, nil
	}
	bucket, point, err := influx.ProcessMetricData(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	return nil, m.deps.Influx.WritePoint(bucket, point)
}
