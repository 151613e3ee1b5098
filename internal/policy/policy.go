// Package policy decides which force arrows are significant enough to report
// and whether surface and body lift are merged into one arrow.
package policy

import (
	"github.com/golang/geo/r3"
	"github.com/squidsoft/flightmarkers/internal/averager"
	"github.com/squidsoft/flightmarkers/pkg/core"
)

// Cutoffs are the minimum magnitudes a category must exceed to be reported.
type Cutoffs struct {
	SurfaceLift float64
	BodyLift    float64
	Drag        float64
}

// LiftFlags records which lift categories passed their cutoff.
type LiftFlags uint8

const (
	SurfaceLift LiftFlags = 1 << iota
	BodyLift

	LiftNone LiftFlags = 0
)

// CombineFlags is the set that must be active for lift to merge.
const CombineFlags = SurfaceLift | BodyLift

// ActiveLift classifies the lift results against the cutoffs.
// Comparisons are strict: a magnitude equal to its cutoff is not active.
func ActiveLift(f core.Forces, c Cutoffs) LiftFlags {
	active := LiftNone
	if f.SurfaceLift.Magnitude > c.SurfaceLift {
		active |= SurfaceLift
	}
	if f.BodyLift.Magnitude > c.BodyLift {
		active |= BodyLift
	}
	return active
}

// Evaluate turns the raw forces into the ordered arrow set: thrust, lift, drag.
//
// When combine is set and both lift categories are active they are replaced by a
// single combined arrow whose position and direction are the plain means of the two.
// The mean is deliberately not weighted by magnitude, unlike the per-category
// averages; the display is tuned against this.
func Evaluate(f core.Forces, c Cutoffs, combine bool) []core.Arrow {
	arrows := make([]core.Arrow, 0, 4)

	if f.Thrust.Direction != (r3.Vector{}) {
		arrows = append(arrows, arrow(core.CategoryThrust, f.Thrust))
	}

	active := ActiveLift(f, c)
	if combine && active&CombineFlags == CombineFlags {
		arrows = append(arrows, Combine(f.SurfaceLift, f.BodyLift))
	} else {
		if active&SurfaceLift != 0 {
			arrows = append(arrows, arrow(core.CategorySurfaceLift, f.SurfaceLift))
		}
		if active&BodyLift != 0 {
			arrows = append(arrows, arrow(core.CategoryBodyLift, f.BodyLift))
		}
	}

	if f.Drag.Magnitude > c.Drag {
		arrows = append(arrows, arrow(core.CategoryDrag, f.Drag))
	}

	return arrows
}

// Combine merges surface and body lift into one arrow.
// Its magnitude is the sum of both.
func Combine(surface, body core.ArrowData) core.Arrow {
	var pos, dir averager.Unweighted
	pos.Add(surface.Position)
	pos.Add(body.Position)
	dir.Add(surface.Direction)
	dir.Add(body.Direction)

	return core.Arrow{
		Category:  core.CategoryCombinedLift,
		Position:  pos.Get(),
		Direction: dir.Get(),
		Magnitude: surface.Magnitude + body.Magnitude,
	}
}

func arrow(c core.Category, a core.ArrowData) core.Arrow {
	return core.Arrow{Category: c, Position: a.Position, Direction: a.Direction, Magnitude: a.Magnitude}
}
