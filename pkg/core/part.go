// pkg/core/part.go
package core

import "github.com/golang/geo/r3"

// Part is one rigid component of a vessel.
// Parts form a strict single-parent tree rooted at the vessel's root part.
// The aggregation engine only reads parts; the game owns their lifetime.
type Part struct {
	ID        uint32
	Name      string
	Transform Transform

	// Body lift in part-local space, applied at BodyLiftLocalPosition.
	BodyLiftLocalPosition r3.Vector
	BodyLiftLocalVector   r3.Vector

	// DragVectorDir is the world-space direction the drag model reports.
	// The drag arrow points opposite to it.
	DragVectorDir r3.Vector
	DragScalar    float64

	Modules  []Module
	Children []*Part
}

// Walk visits p and every descendant depth-first.
func (p *Part) Walk(fn func(*Part)) {
	if p == nil {
		return
	}
	fn(p)
	for _, c := range p.Children {
		c.Walk(fn)
	}
}

// Count returns the number of parts in the subtree rooted at p.
func (p *Part) Count() int {
	n := 0
	p.Walk(func(*Part) { n++ })
	return n
}

// Capability tags what a Module can answer.
type Capability uint8

const (
	CapThrust Capability = 1 << iota
	CapLift
	CapLiftingSurface
)

// Module is a capability handle attached to a part.
// Caps says which of the provider fields are populated.
type Module struct {
	Name    string
	Caps    Capability
	Thrust  ThrustProvider
	Lift    LiftProvider
	Surface LiftingSurface
}

// Has reports whether the module is tagged with c.
func (m Module) Has(c Capability) bool {
	return m.Caps&c == c
}

// ThrustProvider reports an engine's thrust contribution.
type ThrustProvider interface {
	IsOperational() bool
	OnThrustQuery(q *ForceQuery)
}

// LiftProvider reports a lift contribution for the reference context carried in the query.
type LiftProvider interface {
	OnLiftQuery(q *ForceQuery)
}

// LiftingSurface reports the drag a lifting surface produces on its own,
// separately from its part's drag.
type LiftingSurface interface {
	DragContribution() (position, dragForce r3.Vector, dragScalar float64)
}

// ForceQuery is scratch space handed to capability providers.
// Providers fill Position, Direction and Magnitude; lift providers also read the Ref fields.
type ForceQuery struct {
	Position  r3.Vector
	Direction r3.Vector
	Magnitude float64

	RefVelocity       r3.Vector
	RefAltitude       float64
	RefStaticPressure float64
	RefAirDensity     float64
}

// Reset zeroes the query so nothing leaks between parts.
func (q *ForceQuery) Reset() {
	*q = ForceQuery{}
}

// SetReference copies the flight context into the query's reference fields.
func (q *ForceQuery) SetReference(f FlightContext) {
	q.RefVelocity = f.Velocity
	q.RefAltitude = f.Altitude
	q.RefStaticPressure = f.StaticPressure
	q.RefAirDensity = f.AirDensity
}
