package markers

import (
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/squidsoft/flightmarkers/internal/config"
	"github.com/squidsoft/flightmarkers/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(x, y, z float64) r3.Vector { return r3.Vector{X: x, Y: y, Z: z} }

func fixedConfig(cfg config.MarkersConfig) ConfigSource {
	return func() config.MarkersConfig { return cfg }
}

// plane is a root with one running engine and two wings that clear the default lift cutoff.
func plane() *core.Part {
	root := &core.Part{
		ID:   1,
		Name: "cockpit",
		Modules: []core.Module{
			core.NewEngineModule("engine", &core.Engine{Operational: true, Position: vec(0, -2, 0), Direction: vec(0, 1, 0), Thrust: 200}),
		},
	}
	root.Children = []*core.Part{
		{ID: 2, Name: "wingL", Modules: []core.Module{
			core.NewWingModule("wing", &core.Wing{LiftPosition: vec(-1, 0, 0), LiftDirection: vec(0, 0, 1), Lift: 20}),
		}},
		{ID: 3, Name: "wingR", Modules: []core.Module{
			core.NewWingModule("wing", &core.Wing{LiftPosition: vec(1, 0, 0), LiftDirection: vec(0, 0, 1), Lift: 20}),
		}},
	}
	return root
}

func snapshot(root *core.Part) core.VesselSnapshot {
	return core.VesselSnapshot{
		VesselID:     "v1",
		Frame:        7,
		Root:         root,
		Flight:       core.FlightContext{StaticPressure: 101.3, AirDensity: 1.2},
		CenterOfMass: vec(0, 0.5, 0),
		IsActive:     true,
	}
}

func TestNewVesselMarkers_Defaults(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))
	assert.False(t, v.Enabled())
	assert.True(t, v.CombineLift())
	assert.False(t, v.Hidden())

	cfg := config.DefaultMarkers()
	cfg.CombineByDefault = false
	assert.False(t, NewVesselMarkers("v2", fixedConfig(cfg)).CombineLift())
}

func TestUpdate_DisabledSkipsTraversal(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))

	frame, err := v.Update(snapshot(plane()))
	require.NoError(t, err)
	assert.Equal(t, core.SkipDisabled, frame.Skipped)
	assert.Empty(t, frame.Arrows)
	assert.True(t, frame.Forces.Thrust.IsZero())
	assert.Equal(t, uint(7), frame.FrameNumber)
}

func TestUpdate_HiddenSkipsTraversal(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))
	v.Toggle()
	v.SetHidden(true)

	frame, err := v.Update(snapshot(plane()))
	require.NoError(t, err)
	assert.Equal(t, core.SkipHidden, frame.Skipped)
	assert.Empty(t, frame.Arrows)
	assert.True(t, v.Enabled())
}

func TestUpdate_ReportsArrows(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))
	v.now = func() time.Time { return time.Unix(100, 0) }
	v.Toggle()

	frame, err := v.Update(snapshot(plane()))
	require.NoError(t, err)

	assert.Equal(t, core.SkipNone, frame.Skipped)
	assert.Equal(t, time.Unix(100, 0), frame.Time)
	assert.Equal(t, vec(0, 0.5, 0), frame.CenterOfMass)

	require.Len(t, frame.Arrows, 2)
	assert.Equal(t, core.CategoryThrust, frame.Arrows[0].Category)
	assert.Equal(t, 200.0, frame.Arrows[0].Magnitude)
	assert.Equal(t, core.CategorySurfaceLift, frame.Arrows[1].Category)
	assert.Equal(t, vec(0, 0, 0), frame.Arrows[1].Position)
	assert.Equal(t, 40.0, frame.Arrows[1].Magnitude)
}

func TestUpdate_VacuumIsNotASkip(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))
	v.Toggle()

	s := snapshot(plane())
	s.Flight = core.FlightContext{}

	frame, err := v.Update(s)
	require.NoError(t, err)

	assert.Equal(t, core.SkipNone, frame.Skipped)
	assert.Zero(t, frame.Forces.SurfaceLift.Magnitude)
	require.Len(t, frame.Arrows, 1)
	assert.Equal(t, core.CategoryThrust, frame.Arrows[0].Category)
}

func TestUpdate_UsesLatestConfig(t *testing.T) {
	cfg := config.DefaultMarkers()
	v := NewVesselMarkers("v1", func() config.MarkersConfig { return cfg })
	v.Toggle()

	frame, err := v.Update(snapshot(plane()))
	require.NoError(t, err)
	require.Len(t, frame.Arrows, 2)

	cfg.SurfaceLiftCutoff = 50
	frame, err = v.Update(snapshot(plane()))
	require.NoError(t, err)
	require.Len(t, frame.Arrows, 1)
	assert.Equal(t, core.CategoryThrust, frame.Arrows[0].Category)
}

func TestUpdate_OutOfRangeDisables(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))
	v.Toggle()

	var events []bool
	v.OnMarkersChanged(func(on bool) { events = append(events, on) })

	s := snapshot(plane())
	s.IsActive = false
	s.ObserverPosition = vec(30000, 0, 0)
	s.HasObserver = true

	frame, err := v.Update(s)
	require.NoError(t, err)
	assert.Equal(t, core.SkipOutOfRange, frame.Skipped)
	assert.False(t, v.Enabled())
	assert.Equal(t, []bool{false}, events)
}

func TestUpdate_ActiveVesselIgnoresDistance(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))
	v.Toggle()

	s := snapshot(plane())
	s.ObserverPosition = vec(30000, 0, 0)
	s.HasObserver = true

	frame, err := v.Update(s)
	require.NoError(t, err)
	assert.Equal(t, core.SkipNone, frame.Skipped)
	assert.True(t, v.Enabled())
}

func TestUpdate_NoObserverSkipsRangeCheck(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))
	v.Toggle()

	root := plane()
	root.Transform.Position = vec(50000, 0, 0)
	s := snapshot(root)
	s.IsActive = false

	frame, err := v.Update(s)
	require.NoError(t, err)
	assert.Equal(t, core.SkipNone, frame.Skipped)
	assert.True(t, v.Enabled())
}

func TestUpdate_NilRoot(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))
	_, err := v.Update(core.VesselSnapshot{VesselID: "v1"})
	assert.ErrorIs(t, err, core.ErrInvalidSnapshot)
}

func TestToggleListeners(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))

	var markers, combine []bool
	v.OnMarkersChanged(func(on bool) { markers = append(markers, on) })
	v.OnCombineChanged(func(on bool) { combine = append(combine, on) })

	assert.True(t, v.Toggle())
	assert.False(t, v.Toggle())
	assert.False(t, v.ToggleCombine())

	v.SetEnabled(false)
	v.SetEnabled(true)

	assert.Equal(t, []bool{true, false, true}, markers)
	assert.Equal(t, []bool{false}, combine)
}

func TestSetCombineLift_FiresOnChange(t *testing.T) {
	v := NewVesselMarkers("v1", fixedConfig(config.DefaultMarkers()))

	var combine []bool
	v.OnCombineChanged(func(on bool) { combine = append(combine, on) })

	v.SetCombineLift(true)
	v.SetCombineLift(false)
	v.SetCombineLift(false)

	assert.False(t, v.CombineLift())
	assert.Equal(t, []bool{false}, combine)
}

func TestCutoffs(t *testing.T) {
	c := Cutoffs(config.DefaultMarkers())
	assert.Equal(t, 10.0, c.SurfaceLift)
	assert.Equal(t, 15.0, c.BodyLift)
	assert.Equal(t, 10.0, c.Drag)
}
