// Package markers holds the per-vessel marker state and turns vessel snapshots
// into reported frames.
package markers

import (
	"fmt"
	"sync"
	"time"

	"github.com/squidsoft/flightmarkers/internal/aggregator"
	"github.com/squidsoft/flightmarkers/internal/config"
	"github.com/squidsoft/flightmarkers/internal/policy"
	"github.com/squidsoft/flightmarkers/pkg/core"
)

// ConfigSource supplies the marker settings in effect for the next frame.
type ConfigSource func() config.MarkersConfig

// VesselMarkers is the marker state of one vessel.
type VesselMarkers struct {
	mu sync.Mutex

	id          string
	enabled     bool
	combineLift bool
	hidden      bool

	agg    *aggregator.Aggregator
	source ConfigSource
	now    func() time.Time

	onMarkers []func(bool)
	onCombine []func(bool)
}

// NewVesselMarkers creates marker state for a vessel. Markers start disabled;
// lift combining starts at the configured default.
func NewVesselMarkers(id string, source ConfigSource) *VesselMarkers {
	if source == nil {
		source = config.Markers
	}
	cfg := source()
	return &VesselMarkers{
		id:          id,
		combineLift: cfg.CombineByDefault,
		agg:         aggregator.New(aggregator.Options{BodyLiftScale: cfg.BodyLiftScale}),
		source:      source,
		now:         time.Now,
	}
}

func (v *VesselMarkers) ID() string { return v.id }

func (v *VesselMarkers) Enabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled
}

func (v *VesselMarkers) CombineLift() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.combineLift
}

func (v *VesselMarkers) Hidden() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hidden
}

// OnMarkersChanged registers fn to be called whenever the markers are switched on or off.
func (v *VesselMarkers) OnMarkersChanged(fn func(bool)) {
	v.mu.Lock()
	v.onMarkers = append(v.onMarkers, fn)
	v.mu.Unlock()
}

// OnCombineChanged registers fn to be called whenever lift combining changes.
func (v *VesselMarkers) OnCombineChanged(fn func(bool)) {
	v.mu.Lock()
	v.onCombine = append(v.onCombine, fn)
	v.mu.Unlock()
}

// Toggle flips the markers on or off and returns the new state.
func (v *VesselMarkers) Toggle() bool {
	v.mu.Lock()
	v.enabled = !v.enabled
	state, fns := v.enabled, v.onMarkers
	v.mu.Unlock()

	fire(fns, state)
	return state
}

// SetEnabled switches the markers to state. Listeners only fire on a change.
func (v *VesselMarkers) SetEnabled(state bool) {
	v.mu.Lock()
	changed := v.enabled != state
	v.enabled = state
	fns := v.onMarkers
	v.mu.Unlock()

	if changed {
		fire(fns, state)
	}
}

// ToggleCombine flips lift combining and returns the new state.
func (v *VesselMarkers) ToggleCombine() bool {
	v.mu.Lock()
	v.combineLift = !v.combineLift
	state, fns := v.combineLift, v.onCombine
	v.mu.Unlock()

	fire(fns, state)
	return state
}

// SetCombineLift sets lift combining, notifying listeners only on change.
func (v *VesselMarkers) SetCombineLift(state bool) {
	v.mu.Lock()
	changed := v.combineLift != state
	v.combineLift = state
	fns := v.onCombine
	v.mu.Unlock()

	if changed {
		fire(fns, state)
	}
}

// SetHidden hides or shows the markers without changing whether they are enabled.
func (v *VesselMarkers) SetHidden(hidden bool) {
	v.mu.Lock()
	v.hidden = hidden
	v.mu.Unlock()
}

// Update aggregates one snapshot into a frame.
func (v *VesselMarkers) Update(s core.VesselSnapshot) (core.Frame, error) {
	if s.Root == nil {
		return core.Frame{}, fmt.Errorf("%w: vessel %q has no root part", core.ErrInvalidSnapshot, s.VesselID)
	}

	v.mu.Lock()
	frame := core.Frame{
		VesselID:     v.id,
		FrameNumber:  s.Frame,
		Time:         v.now(),
		CenterOfMass: s.CenterOfMass,
		RootPosition: s.Root.Transform.Position,
	}

	switch {
	case !v.enabled:
		frame.Skipped = core.SkipDisabled
	case v.hidden:
		frame.Skipped = core.SkipHidden
	}
	if frame.Skipped != core.SkipNone {
		v.mu.Unlock()
		return frame, nil
	}

	cfg := v.source()
	if !s.IsActive && s.HasObserver && s.ObserverPosition.Distance(s.Root.Transform.Position) > cfg.UnloadDistance {
		v.enabled = false
		fns := v.onMarkers
		v.mu.Unlock()

		fire(fns, false)
		frame.Skipped = core.SkipOutOfRange
		return frame, nil
	}
	combine := v.combineLift
	defer v.mu.Unlock()

	v.agg.SetOptions(aggregator.Options{BodyLiftScale: cfg.BodyLiftScale})
	forces, err := v.agg.Aggregate(s.Root, s.Flight)
	if err != nil {
		return core.Frame{}, err
	}

	frame.Forces = forces
	frame.Arrows = policy.Evaluate(forces, Cutoffs(cfg), combine)
	return frame, nil
}

// Cutoffs extracts the policy cutoffs from the marker settings.
func Cutoffs(cfg config.MarkersConfig) policy.Cutoffs {
	return policy.Cutoffs{
		SurfaceLift: cfg.SurfaceLiftCutoff,
		BodyLift:    cfg.BodyLiftCutoff,
		Drag:        cfg.DragCutoff,
	}
}

func fire(fns []func(bool), state bool) {
	for _, fn := range fns {
		fn(state)
	}
}
