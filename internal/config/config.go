package config

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "flightmarkers.cfg.json"

// ErrInvalidMarkers is returned when marker settings cannot be used.
var ErrInvalidMarkers = errors.New("invalid markers config")

// MarkersConfig holds the aggregation cutoffs and display defaults.
type MarkersConfig struct {
	SurfaceLiftCutoff float64 `json:"surfaceLiftCutoff" mapstructure:"surfaceLiftCutoff"`
	BodyLiftCutoff    float64 `json:"bodyLiftCutoff" mapstructure:"bodyLiftCutoff"`
	DragCutoff        float64 `json:"dragCutoff" mapstructure:"dragCutoff"`
	CombineByDefault  bool    `json:"combineByDefault" mapstructure:"combineByDefault"`
	UnloadDistance    float64 `json:"unloadDistance" mapstructure:"unloadDistance"`
	BodyLiftScale     float64 `json:"bodyLiftScale" mapstructure:"bodyLiftScale"`
}

// DefaultMarkers returns the documented marker defaults.
func DefaultMarkers() MarkersConfig {
	return MarkersConfig{
		SurfaceLiftCutoff: 10,
		BodyLiftCutoff:    15,
		DragCutoff:        10,
		CombineByDefault:  true,
		UnloadDistance:    22500,
		BodyLiftScale:     1,
	}
}

// Validate rejects settings the aggregator cannot use.
func (c MarkersConfig) Validate() error {
	if c.SurfaceLiftCutoff < 0 || c.BodyLiftCutoff < 0 || c.DragCutoff < 0 {
		return fmt.Errorf("%w: cutoffs must not be negative", ErrInvalidMarkers)
	}
	if c.BodyLiftScale <= 0 {
		return fmt.Errorf("%w: bodyLiftScale must be positive, got %v", ErrInvalidMarkers, c.BodyLiftScale)
	}
	if c.UnloadDistance < 0 {
		return fmt.Errorf("%w: unloadDistance must not be negative", ErrInvalidMarkers)
	}
	return nil
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the frame storage backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// MonitorConfig controls the periodic status report.
type MonitorConfig struct {
	Enabled    bool          `json:"enabled" mapstructure:"enabled"`
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

var (
	current   atomic.Pointer[MarkersConfig]
	watchOnce sync.Once
	watchers  struct {
		sync.Mutex
		fns    []func(MarkersConfig)
		errFns []func(error)
	}
)

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./fmlogs")

	m := DefaultMarkers()
	viper.SetDefault("markers.surfaceLiftCutoff", m.SurfaceLiftCutoff)
	viper.SetDefault("markers.bodyLiftCutoff", m.BodyLiftCutoff)
	viper.SetDefault("markers.dragCutoff", m.DragCutoff)
	viper.SetDefault("markers.combineByDefault", m.CombineByDefault)
	viper.SetDefault("markers.unloadDistance", m.UnloadDistance)
	viper.SetDefault("markers.bodyLiftScale", m.BodyLiftScale)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "flightmarkers")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "flightmarkers")
	viper.SetDefault("influx.bucket", "vessel_forces")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "status.json")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "flightmarkers")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return refreshMarkers()
}

// LoadDefaults installs the defaults without reading a file.
func LoadDefaults() {
	setDefaults()
	m := GetMarkersConfig()
	current.Store(&m)
}

// refreshMarkers validates the markers section and publishes it.
// An invalid section leaves the previous snapshot in place.
func refreshMarkers() error {
	m := GetMarkersConfig()
	if err := m.Validate(); err != nil {
		return err
	}
	current.Store(&m)
	return nil
}

// Markers returns the last valid markers snapshot, or the defaults if none was loaded.
func Markers() MarkersConfig {
	if m := current.Load(); m != nil {
		return *m
	}
	return DefaultMarkers()
}

// Watch re-reads the config file whenever it changes and calls fn with each
// new valid markers snapshot. onError receives rejected reloads; it may be nil.
func Watch(fn func(MarkersConfig), onError func(error)) {
	watchers.Lock()
	watchers.fns = append(watchers.fns, fn)
	if onError != nil {
		watchers.errFns = append(watchers.errFns, onError)
	}
	watchers.Unlock()

	watchOnce.Do(func() {
		viper.OnConfigChange(func(fsnotify.Event) { reload() })
		viper.WatchConfig()
	})
}

func reload() {
	if err := refreshMarkers(); err != nil {
		watchers.Lock()
		fns := append([]func(error){}, watchers.errFns...)
		watchers.Unlock()
		for _, fn := range fns {
			fn(err)
		}
		return
	}
	notify(Markers())
}

func notify(m MarkersConfig) {
	watchers.Lock()
	fns := append([]func(MarkersConfig){}, watchers.fns...)
	watchers.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

// GetMarkersConfig reads the markers section from viper.
func GetMarkersConfig() MarkersConfig {
	return MarkersConfig{
		SurfaceLiftCutoff: viper.GetFloat64("markers.surfaceLiftCutoff"),
		BodyLiftCutoff:    viper.GetFloat64("markers.bodyLiftCutoff"),
		DragCutoff:        viper.GetFloat64("markers.dragCutoff"),
		CombineByDefault:  viper.GetBool("markers.combineByDefault"),
		UnloadDistance:    viper.GetFloat64("markers.unloadDistance"),
		BodyLiftScale:     viper.GetFloat64("markers.bodyLiftScale"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetMonitorConfig returns the status monitor configuration.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
