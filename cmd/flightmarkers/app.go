package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/squidsoft/flightmarkers/internal/api"
	"github.com/squidsoft/flightmarkers/internal/config"
	"github.com/squidsoft/flightmarkers/internal/database"
	"github.com/squidsoft/flightmarkers/internal/dispatcher"
	"github.com/squidsoft/flightmarkers/internal/influx"
	"github.com/squidsoft/flightmarkers/internal/logging"
	"github.com/squidsoft/flightmarkers/internal/markers"
	"github.com/squidsoft/flightmarkers/internal/monitor"
	intOtel "github.com/squidsoft/flightmarkers/internal/otel"
	"github.com/squidsoft/flightmarkers/internal/parser"
	"github.com/squidsoft/flightmarkers/internal/storage"
	"github.com/squidsoft/flightmarkers/internal/storage/memory"
	"github.com/squidsoft/flightmarkers/internal/worker"
	"github.com/squidsoft/flightmarkers/pkg/core"
	"github.com/squidsoft/flightmarkers/pkg/extension"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const shutdownTimeout = 10 * time.Second

// newBackend is swapped in tests.
var newBackend = storage.NewBackend

// app holds every long-lived component of one extension process.
type app struct {
	slogManager *logging.SlogManager
	logger      *slog.Logger
	logFile     *os.File
	closers     []io.Closer

	otelProvider *intOtel.Provider
	dispatcher   *dispatcher.Dispatcher
	influx       *influx.Manager
	backend      storage.Backend
	worker       *worker.Manager
	monitor      *monitor.Service
	server       *extension.Server

	// uploader is nil unless api.upload is set.
	uploader *api.Client
	uploads  sync.WaitGroup
}

// newApp loads the config from configDir and wires up logging, telemetry,
// storage and the command handlers. A missing config file falls back to defaults.
func newApp(ctx context.Context, configDir string) (*app, error) {
	a := &app{slogManager: logging.NewSlogManager()}

	// stderr until the log file is open; stdout belongs to the host protocol
	a.slogManager.Setup(os.Stderr, "info", nil)
	a.logger = a.slogManager.Logger()

	configLoaded := true
	if err := config.Load(configDir); err != nil {
		configLoaded = false
		config.LoadDefaults()
		a.logger.Warn("Failed to load config, using defaults!", "error", err, "dir", configDir)
	}

	if err := a.setupLogging(); err != nil {
		a.logger.Error("Failed to set up log file", "error", err)
	}

	if configLoaded {
		config.Watch(func(m config.MarkersConfig) {
			a.logger.Info("Markers config reloaded",
				"surfaceLiftCutoff", m.SurfaceLiftCutoff,
				"bodyLiftCutoff", m.BodyLiftCutoff,
				"dragCutoff", m.DragCutoff,
				"combineByDefault", m.CombineByDefault)
		}, func(err error) {
			a.logger.Warn("Rejected config reload, keeping previous markers config", "error", err)
		})
	}

	zl := logging.NewZerolog(a.logWriter(), config.GetString("logLevel"))
	d, err := dispatcher.New(logging.NewDispatcherLogger(zl))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.dispatcher = d

	p, err := parser.NewParser(a.logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	a.influx = influx.NewManager(zl, filepath.Join(config.GetString("logsDir"), "influx_backup.lp.gz"))
	if err := a.influx.Connect(ctx); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			a.logger.Error("Failed to connect to InfluxDB", "error", err)
		}
		a.influx = nil
	}

	storageCfg := config.GetStorageConfig()
	backend, err := newBackend(storageCfg, a.logger, CurrentExtensionVersion)
	if err != nil {
		a.close()
		return nil, err
	}
	// Assigned before Init so close() releases whatever a failed Init left open.
	a.backend = backend
	if err := backend.Init(); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	a.logger.Info("Storage backend initialized", "type", storageCfg.Type)
	if storageCfg.Type == "sqlite" {
		if dumps, err := database.BackupDBPaths(storageCfg.Memory.OutputDir); err == nil && len(dumps) > 0 {
			a.logger.Info("Found database dumps from earlier sessions", "count", len(dumps), "dir", storageCfg.Memory.OutputDir)
		}
	}

	a.worker = worker.NewManager(worker.Dependencies{
		Parser:           p,
		Registry:         markers.NewRegistry(nil),
		Logger:           a.logger,
		FrameLog:         logging.FrameSampler(zl),
		Influx:           a.influx,
		ExtensionVersion: CurrentExtensionVersion,
		OnSessionEnd:     a.sessionEnded,
	}, backend)
	a.worker.RegisterHandlers(d)
	a.logger.Debug("Registered commands", "commands", d.Commands())

	if config.GetBool("api.upload") {
		a.uploader = api.New(config.GetString("api.serverUrl"), config.GetString("api.apiKey"))
		if err := a.uploader.Healthcheck(ctx); err != nil {
			a.logger.Warn("Recording service is offline, uploads may fail", "error", err)
		} else {
			a.logger.Info("Recording service is online")
		}
	}
	a.slogManager.WithContext(a.worker.LogContext)
	a.logger = a.slogManager.Logger()

	if mc := config.GetMonitorConfig(); mc.Enabled {
		statusPath := ""
		if mc.StatusFile != "" {
			statusPath = filepath.Join(config.GetString("logsDir"), mc.StatusFile)
		}
		a.monitor = monitor.NewService(monitor.Dependencies{
			Worker:     a.worker,
			Backend:    backend,
			Influx:     a.influx,
			Logger:     a.logger,
			StatusPath: statusPath,
			Interval:   mc.Interval,
		})
		a.monitor.Start()
	}

	a.server = extension.New(d, CurrentExtensionVersion, a.logger)
	a.logger.Info("Extension ready", "version", CurrentExtensionVersion, "buildDate", BuildDate)
	return a, nil
}

// setupLogging opens the session log file and re-initializes slog with the
// optional OTel and Graylog handlers.
func (a *app) setupLogging() error {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return err
	}

	path := logging.LogFilePath(logsDir, ExtensionName, SessionStartTime)
	if _, err := os.Stat(path); err == nil {
		os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	a.logFile = f

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    f,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
			ErrorLogger:  a.logger,
		})
		if err != nil {
			a.logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	var extra []slog.Handler
	if config.GetBool("graylog.enabled") {
		h, w, err := logging.NewGraylogHandler(config.GetString("graylog.address"), config.GetString("logLevel"))
		if err != nil {
			a.logger.Error("Failed to set up Graylog", "error", err)
		} else {
			extra = append(extra, h)
			a.closers = append(a.closers, w)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if a.otelProvider != nil {
		otelLogProvider = a.otelProvider.LoggerProvider()
	}
	a.slogManager.Setup(f, config.GetString("logLevel"), otelLogProvider, extra...)
	a.logger = a.slogManager.Logger()
	a.logger.Info("Logging to file", "path", path)
	return nil
}

func (a *app) logWriter() io.Writer {
	if a.logFile != nil {
		return a.logFile
	}
	return os.Stderr
}

func (a *app) sessionEnded(s core.Session) {
	a.flushLogs(s)

	exp, ok := a.backend.(storage.Exportable)
	if !ok || a.uploader == nil || exp.ExportedFilePath() == "" {
		return
	}
	path := exp.ExportedFilePath()
	a.uploads.Add(1)
	go func() {
		defer a.uploads.Done()
		a.upload(path, s)
	}()
}

// upload sends an exported recording to the recording service.
func (a *app) upload(path string, s core.Session) {
	meta := api.UploadMetadata{SessionID: s.ID, SessionName: s.Name}
	if e, err := memory.Load(path); err == nil {
		meta.Duration = e.EndTime.Sub(e.StartTime)
		meta.FrameCount = e.FrameCount
		meta.Vessels = len(e.Vessels)
	} else {
		a.logger.Warn("Failed to read recording metadata", "error", err, "path", path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	start := time.Now()
	if err := a.uploader.Upload(ctx, path, meta); err != nil {
		a.logger.Error("Failed to upload recording", "error", err, "path", path, "session", s.ID)
		return
	}
	a.logger.Info("Uploaded recording", "path", path, "session", s.ID, "duration", time.Since(start))
}

func (a *app) flushLogs(s core.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.slogManager.Flush(ctx); err != nil {
		a.logger.Warn("Failed to flush logs", "error", err, "session", s.ID)
	}
	if a.otelProvider != nil {
		if err := a.otelProvider.Flush(ctx); err != nil {
			a.logger.Warn("Failed to flush OTel", "error", err, "session", s.ID)
		}
	}
}

// serve runs the line protocol until r is exhausted or ctx is cancelled.
func (a *app) serve(ctx context.Context, r io.Reader, w io.Writer) error {
	return a.server.Serve(ctx, r, w)
}

// close ends any open session and shuts every component down in reverse order.
func (a *app) close() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.worker != nil {
		if err := a.worker.EndSession(); err != nil {
			a.logger.Error("Failed to end session on shutdown", "error", err)
		}
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	a.uploads.Wait()
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger.Error("Failed to close InfluxDB manager", "error", err)
		}
	}
	if a.otelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.otelProvider.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shut down OTel provider", "error", err)
		}
		cancel()
	}

	a.logger.Info("Shutdown complete")
	for _, c := range a.closers {
		c.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

