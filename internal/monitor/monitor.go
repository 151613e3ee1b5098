// Package monitor periodically reports extension health while a session is open.
package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/squidsoft/flightmarkers/internal/influx"
	"github.com/squidsoft/flightmarkers/internal/storage"
	"github.com/squidsoft/flightmarkers/internal/worker"
)

const MeasurementStatus = "extension_status"

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Worker  *worker.Manager
	Backend storage.Backend
	// Influx is optional.
	Influx *influx.Manager
	Logger *slog.Logger

	// StatusPath is rewritten on every tick. Empty disables the file.
	StatusPath string
	Interval   time.Duration
}

// ProgramStatus is one health sample.
type ProgramStatus struct {
	Time          time.Time `json:"time"`
	Session       string    `json:"session"`
	Vessels       int       `json:"vessels"`
	Hidden        bool      `json:"hidden"`
	PendingWrites int       `json:"pendingWrites"`
	DroppedWrites uint64    `json:"droppedWrites"`
	StorageQueued bool      `json:"storageQueued"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
	now       func() time.Time
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps: deps,
		now:  time.Now,
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus samples the worker and the storage backend.
func (s *Service) GetProgramStatus() ProgramStatus {
	st := s.deps.Worker.Status()
	ps := ProgramStatus{
		Time:    s.now().UTC(),
		Session: st.Session,
		Vessels: len(st.Vessels),
		Hidden:  st.Hidden,
	}
	if q, ok := s.deps.Backend.(storage.Queued); ok {
		ps.StorageQueued = true
		ps.PendingWrites = q.Pending()
		ps.DroppedWrites = q.Dropped()
	}
	return ps
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stopChan, s.done)
}

func (s *Service) run(stop, done chan struct{}) {
	defer close(done)
	logger := s.deps.Logger
	logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			status := s.GetProgramStatus()
			if status.Session == "" {
				continue
			}
			if err := s.writeStatusFile(status); err != nil {
				logger.Error("Error writing status file", "error", err, "path", s.deps.StatusPath)
			}
			if s.deps.Influx != nil {
				if err := s.deps.Influx.WritePoint(influx.BucketPerformance, statusPoint(status)); err != nil {
					logger.Error("Error writing status to InfluxDB", "error", err)
				}
			}
		}
	}
}

func (s *Service) writeStatusFile(status ProgramStatus) error {
	if s.deps.StatusPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.deps.StatusPath + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.deps.StatusPath)
}

func statusPoint(status ProgramStatus) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		MeasurementStatus,
		map[string]string{"session": status.Session},
		map[string]interface{}{
			"vessels":        status.Vessels,
			"hidden":         status.Hidden,
			"pending_writes": status.PendingWrites,
			"dropped_writes": int64(status.DroppedWrites),
		},
		status.Time,
	)
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
