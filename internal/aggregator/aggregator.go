// Package aggregator reduces a vessel's part tree to one arrow per force category.
//
// Every walk visits each part exactly once and accumulates into the aggregator's
// own averagers; the recursion itself carries no accumulator parameters and
// allocates nothing.
package aggregator

import (
	"errors"

	"github.com/golang/geo/r3"
	"github.com/squidsoft/flightmarkers/internal/averager"
	"github.com/squidsoft/flightmarkers/pkg/core"
)

// ErrNilRoot is returned when a walk is started without a root part.
var ErrNilRoot = errors.New("aggregator: nil root part")

// Options tune the aggregation.
type Options struct {
	// BodyLiftScale divides the reported body-lift total. Values <= 0 mean 1.
	BodyLiftScale float64
}

// Aggregator holds the scratch state for one vessel's traversals.
// It is not safe for concurrent use; keep one per vessel.
type Aggregator struct {
	opts Options

	position  averager.Weighted
	direction averager.Weighted

	thrustQuery core.ForceQuery
	liftQuery   core.ForceQuery
}

// New creates an Aggregator.
func New(opts Options) *Aggregator {
	return &Aggregator{opts: opts}
}

// SetOptions replaces the options used by subsequent walks.
func (a *Aggregator) SetOptions(opts Options) {
	a.opts = opts
}

// Aggregate runs all four walks. Surface and body lift are left zero in vacuum.
func (a *Aggregator) Aggregate(root *core.Part, flight core.FlightContext) (core.Forces, error) {
	var f core.Forces
	var err error

	if f.Thrust, err = a.Thrust(root); err != nil {
		return core.Forces{}, err
	}
	if !flight.InVacuum() {
		if f.SurfaceLift, err = a.SurfaceLift(root, flight); err != nil {
			return core.Forces{}, err
		}
		if f.BodyLift, err = a.BodyLift(root); err != nil {
			return core.Forces{}, err
		}
	}
	if f.Drag, err = a.Drag(root); err != nil {
		return core.Forces{}, err
	}
	return f, nil
}

// Thrust returns the center and direction of thrust of all operational engines.
func (a *Aggregator) Thrust(root *core.Part) (core.ArrowData, error) {
	if root == nil {
		return core.ArrowData{}, ErrNilRoot
	}
	a.reset()
	a.walkThrust(root)
	return a.result(1), nil
}

// SurfaceLift returns the center and direction of lift of all lift providers,
// each queried with the same flight context.
func (a *Aggregator) SurfaceLift(root *core.Part, flight core.FlightContext) (core.ArrowData, error) {
	if root == nil {
		return core.ArrowData{}, ErrNilRoot
	}
	a.reset()
	a.walkLift(root, flight)
	return a.result(1), nil
}

// BodyLift returns the center and direction of body lift over every part.
func (a *Aggregator) BodyLift(root *core.Part) (core.ArrowData, error) {
	if root == nil {
		return core.ArrowData{}, ErrNilRoot
	}
	a.reset()
	a.walkBodyLift(root)
	return a.result(a.opts.BodyLiftScale), nil
}

// Drag returns the center and direction of drag over every part and lifting surface.
func (a *Aggregator) Drag(root *core.Part) (core.ArrowData, error) {
	if root == nil {
		return core.ArrowData{}, ErrNilRoot
	}
	a.reset()
	a.walkDrag(root)
	return a.result(1), nil
}

func (a *Aggregator) reset() {
	a.position.Reset()
	a.direction.Reset()
}

func (a *Aggregator) add(pos, dir r3.Vector, weight float64) {
	a.position.Add(pos, weight)
	a.direction.Add(dir, weight)
}

// result packs the averagers into an ArrowData, dividing the reported magnitude by scale.
func (a *Aggregator) result(scale float64) core.ArrowData {
	total := a.position.TotalWeight()
	if averager.IsZeroWeight(total) {
		return core.ArrowData{}
	}
	if scale <= 0 {
		scale = 1
	}
	return core.ArrowData{
		Position:  a.position.Get(),
		Direction: a.direction.Get(),
		Magnitude: total / scale,
	}
}

func (a *Aggregator) walkThrust(p *core.Part) {
	for i := range p.Modules {
		m := &p.Modules[i]
		if !m.Has(core.CapThrust) || m.Thrust == nil || !m.Thrust.IsOperational() {
			continue
		}
		a.thrustQuery.Reset()
		m.Thrust.OnThrustQuery(&a.thrustQuery)
		a.add(a.thrustQuery.Position, a.thrustQuery.Direction, a.thrustQuery.Magnitude)
	}
	for _, c := range p.Children {
		a.walkThrust(c)
	}
}

func (a *Aggregator) walkLift(p *core.Part, flight core.FlightContext) {
	for i := range p.Modules {
		m := &p.Modules[i]
		if !m.Has(core.CapLift) || m.Lift == nil {
			continue
		}
		a.liftQuery.Reset()
		a.liftQuery.SetReference(flight)
		m.Lift.OnLiftQuery(&a.liftQuery)
		a.add(a.liftQuery.Position, a.liftQuery.Direction, a.liftQuery.Magnitude)
	}
	for _, c := range p.Children {
		a.walkLift(c, flight)
	}
}

func (a *Aggregator) walkBodyLift(p *core.Part) {
	lift := p.Transform.TransformDirection(p.BodyLiftLocalVector)
	pos := p.Transform.TransformPoint(p.BodyLiftLocalPosition)
	a.add(pos, lift, lift.Norm())

	for _, c := range p.Children {
		a.walkBodyLift(c)
	}
}

func (a *Aggregator) walkDrag(p *core.Part) {
	a.add(p.Transform.Position, p.DragVectorDir.Mul(-1), p.DragScalar)

	for i := range p.Modules {
		m := &p.Modules[i]
		if !m.Has(core.CapLiftingSurface) || m.Surface == nil {
			continue
		}
		pos, force, scalar := m.Surface.DragContribution()
		a.add(pos, force, scalar)
	}
	for _, c := range p.Children {
		a.walkDrag(c)
	}
}
