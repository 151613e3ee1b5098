// Package influx writes per-frame force telemetry to InfluxDB, falling back to
// a gzipped line-protocol file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/squidsoft/flightmarkers/internal/util"
	"github.com/squidsoft/flightmarkers/pkg/core"
)

const (
	// MeasurementForces holds one point per reported arrow.
	MeasurementForces = "vessel_forces"
	// MeasurementFrames holds one point per processed frame.
	MeasurementFrames = "vessel_frames"

	// BucketPerformance receives host-side metrics sent with :METRIC:.
	BucketPerformance = "extension_performance"
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx is disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client      influxdb2.Client
	Writers     map[string]influxdb2_api.WriteAPI
	IsValid     bool
	BucketNames []string
	ForceBucket string
	Logger      zerolog.Logger
	BackupPath  string

	mu           sync.Mutex
	backupFile   *os.File
	BackupWriter *gzip.Writer
}

// NewManager creates a new InfluxDB manager. Frame points go to
// influx.bucket; host metrics go to BucketPerformance.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	bucket := viper.GetString("influx.bucket")
	if bucket == "" {
		bucket = MeasurementForces
	}
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: []string{bucket, BucketPerformance},
		ForceBucket: bucket,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer a ping the manager switches to the backup file.
func (m *Manager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.Logger.Warn().Err(err).Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.IsValid = true
	m.Logger.Info().Strs("buckets", m.BucketNames).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := viper.GetString("influx.org")

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure buckets exist with 30 day retention
	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 30,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(orgName, bucket)
		m.Writers[bucket] = w

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}

	// PointToLineProtocol terminates the line itself.
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteFrame writes a frame summary and one point per arrow.
func (m *Manager) WriteFrame(f core.Frame) error {
	for _, p := range FramePoints(f) {
		if err := m.WritePoint(m.ForceBucket, p); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the writers and the backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return nil
	}
	err := errors.Join(m.BackupWriter.Close(), m.backupFile.Close())
	m.BackupWriter = nil
	m.backupFile = nil
	return err
}

// FramePoints converts a frame into line-protocol points.
func FramePoints(f core.Frame) []*influxdb2_write.Point {
	ts := f.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	summary := influxdb2_write.NewPoint(MeasurementFrames,
		map[string]string{"vessel": f.VesselID},
		map[string]any{
			"frame":  int64(f.FrameNumber),
			"arrows": len(f.Arrows),
		}, ts)
	if f.Skipped != core.SkipNone {
		summary.AddTag("skipped", string(f.Skipped))
	}

	points := make([]*influxdb2_write.Point, 0, len(f.Arrows)+1)
	points = append(points, summary)
	for _, a := range f.Arrows {
		points = append(points, influxdb2_write.NewPoint(MeasurementForces,
			map[string]string{
				"vessel":   f.VesselID,
				"category": string(a.Category),
			},
			map[string]any{
				"magnitude": a.Magnitude,
				"pos_x":     a.Position.X,
				"pos_y":     a.Position.Y,
				"pos_z":     a.Position.Z,
				"dir_x":     a.Direction.X,
				"dir_y":     a.Direction.Y,
				"dir_z":     a.Direction.Z,
			}, ts))
	}
	return points
}

// ProcessMetricData parses a host metric and returns a bucket name and point.
//
//	0 = bucket name
//	1 = measurement name
//	tag::<name>::<value>
//	field::<string|int|float|bool>::<name>::<value>
func ProcessMetricData(data []string) (bucket string, point *influxdb2_write.Point, err error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("metric needs a bucket and a measurement, got %d args", len(data))
	}
	for i, v := range data {
		data[i] = util.CleanArg(v)
	}

	bucket = data[0]
	point = influxdb2_write.NewPointWithMeasurement(data[1])

	for _, arg := range data[2:] {
		parts := strings.Split(arg, "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			point.AddTag(parts[1], parts[2])
		case parts[0] == "field" && len(parts) >= 4:
			if err := addField(point, parts[1], parts[2], parts[3]); err != nil {
				return "", nil, err
			}
		}
	}

	return bucket, point, nil
}

func addField(point *influxdb2_write.Point, fieldType, name, value string) error {
	switch fieldType {
	case "string":
		point.AddField(name, value)
	case "int":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("error converting field value '%s' to int: %w", value, err)
		}
		point.AddField(name, v)
	case "float":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("error converting field value '%s' to float: %w", value, err)
		}
		point.AddField(name, v)
	case "bool":
		v, err := util.ParseBool(value)
		if err != nil {
			return fmt.Errorf("error converting field value '%s' to bool: %w", value, err)
		}
		point.AddField(name, v)
	}
	return nil
}
