package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/squidsoft/flightmarkers/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frameTime = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

func testFrame() core.Frame {
	return core.Frame{
		VesselID:    "ship-1",
		FrameNumber: 42,
		Time:        frameTime,
		Arrows: []core.Arrow{
			{Category: core.CategoryThrust, Position: r3.Vector{Z: -3}, Direction: r3.Vector{Z: 1}, Magnitude: 200},
			{Category: core.CategoryDrag, Direction: r3.Vector{Z: -1}, Magnitude: 11.5},
		},
	}
}

func TestConnect_Disabled(t *testing.T) {
	viper.Set("influx.enabled", false)
	defer viper.Set("influx.enabled", nil)

	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "backup.lp.gz"))
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
}

func TestNewManager_Buckets(t *testing.T) {
	viper.Set("influx.bucket", "forces_test")
	defer viper.Set("influx.bucket", nil)

	m := NewManager(zerolog.Nop(), "")
	assert.Equal(t, "forces_test", m.ForceBucket)
	assert.Equal(t, []string{"forces_test", BucketPerformance}, m.BucketNames)
}

func TestFramePoints(t *testing.T) {
	points := FramePoints(testFrame())
	require.Len(t, points, 3)

	assert.Equal(t, MeasurementFrames, points[0].Name())
	assert.Equal(t, MeasurementForces, points[1].Name())
	assert.Equal(t, frameTime, points[1].Time())

	tags := map[string]string{}
	for _, tag := range points[1].TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"vessel": "ship-1", "category": "thrust"}, tags)
}

func TestFramePoints_SkippedTag(t *testing.T) {
	f := core.Frame{VesselID: "far", Skipped: core.SkipOutOfRange, Time: frameTime}
	points := FramePoints(f)
	require.Len(t, points, 1)

	var skipped string
	for _, tag := range points[0].TagList() {
		if tag.Key == "skipped" {
			skipped = tag.Value
		}
	}
	assert.Equal(t, "out_of_range", skipped)
}

func TestWriteFrame_Backup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lp.gz")
	m := NewManager(zerolog.Nop(), path)
	require.NoError(t, m.openBackup())

	require.NoError(t, m.WriteFrame(testFrame()))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "\n\n")
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "vessel_frames,"))
	assert.Contains(t, lines[1], "category=thrust")
	assert.Contains(t, lines[1], "magnitude=200")
	assert.Contains(t, lines[2], "category=drag")
}

func TestWritePoint_NoBackend(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	_, p, err := ProcessMetricData([]string{"b", "m", "field::int::x::1"})
	require.NoError(t, err)
	assert.Error(t, m.WritePoint("b", p))
}

func TestProcessMetricData(t *testing.T) {
	data := []string{
		`"extension_performance"`,
		`"frame_timing"`,
		`"tag::scene::flight"`,
		`"field::float::ms::1.25"`,
		`"field::int::vessels::3"`,
		`"field::string::body::Kerbin"`,
		`"field::bool::paused::off"`,
		`"ignored"`,
	}

	bucket, point, err := ProcessMetricData(data)
	require.NoError(t, err)
	assert.Equal(t, "extension_performance", bucket)
	assert.Equal(t, "frame_timing", point.Name())

	fields := map[string]any{}
	for _, f := range point.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 1.25, fields["ms"])
	assert.Equal(t, int64(3), fields["vessels"])
	assert.Equal(t, "Kerbin", fields["body"])
	assert.Equal(t, false, fields["paused"])
	require.Len(t, point.TagList(), 1)
	assert.Equal(t, "flight", point.TagList()[0].Value)
}

func TestProcessMetricData_Errors(t *testing.T) {
	_, _, err := ProcessMetricData([]string{"only-bucket"})
	assert.Error(t, err)

	_, _, err = ProcessMetricData([]string{"b", "m", "field::int::x::notanint"})
	assert.ErrorContains(t, err, "to int")

	_, _, err = ProcessMetricData([]string{"b", "m", "field::float::x::nan?"})
	assert.ErrorContains(t, err, "to float")
}
