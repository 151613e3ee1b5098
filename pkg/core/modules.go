// pkg/core/modules.go
package core

import "github.com/golang/geo/r3"

// Engine is a thrust provider backed by values the game reported for this frame.
type Engine struct {
	Operational bool
	Position    r3.Vector
	Direction   r3.Vector
	Thrust      float64
}

// IsOperational reports whether the engine is running.
func (e *Engine) IsOperational() bool { return e.Operational }

// OnThrustQuery fills q with the engine's thrust.
func (e *Engine) OnThrustQuery(q *ForceQuery) {
	q.Position = e.Position
	q.Direction = e.Direction
	q.Magnitude = e.Thrust
}

// NewEngineModule wraps e in a thrust-tagged module.
func NewEngineModule(name string, e *Engine) Module {
	return Module{Name: name, Caps: CapThrust, Thrust: e}
}

// Wing is a lifting surface backed by values the game reported for this frame.
// Lift is reported as-is: the game already evaluated it against the same
// reference context the query carries.
type Wing struct {
	LiftPosition  r3.Vector
	LiftDirection r3.Vector
	Lift          float64

	DragPosition r3.Vector
	DragForce    r3.Vector
	DragScalar   float64
}

// OnLiftQuery fills q with the wing's lift.
func (w *Wing) OnLiftQuery(q *ForceQuery) {
	q.Position = w.LiftPosition
	q.Direction = w.LiftDirection
	q.Magnitude = w.Lift
}

// DragContribution returns the wing's own drag.
func (w *Wing) DragContribution() (r3.Vector, r3.Vector, float64) {
	return w.DragPosition, w.DragForce, w.DragScalar
}

// NewWingModule wraps w in a module tagged for lift and lifting-surface drag.
func NewWingModule(name string, w *Wing) Module {
	return Module{Name: name, Caps: CapLift | CapLiftingSurface, Lift: w, Surface: w}
}
