// pkg/core/arrow.go
package core

import (
	"time"

	"github.com/golang/geo/r3"
)

// ArrowData is one force category reduced to a single arrow.
// Position and Direction are weighted means (Direction is not renormalized);
// Magnitude is the total weight. The zero value means "nothing contributed".
type ArrowData struct {
	Position  r3.Vector
	Direction r3.Vector
	Magnitude float64
}

// IsZero reports whether a is the empty arrow.
func (a ArrowData) IsZero() bool {
	return a == ArrowData{}
}

// Category labels an arrow for the display front-end.
type Category string

const (
	CategoryThrust       Category = "thrust"
	CategorySurfaceLift  Category = "surface_lift"
	CategoryBodyLift     Category = "body_lift"
	CategoryCombinedLift Category = "combined_lift"
	CategoryDrag         Category = "drag"
)

// Arrow is a reported arrow with its category.
type Arrow struct {
	Category  Category  `json:"category"`
	Position  r3.Vector `json:"position"`
	Direction r3.Vector `json:"direction"`
	Magnitude float64   `json:"magnitude"`
}

// Forces holds the four raw per-category results of one traversal.
type Forces struct {
	Thrust      ArrowData
	SurfaceLift ArrowData
	BodyLift    ArrowData
	Drag        ArrowData
}

// FlightContext is the per-frame reference state supplied by the flight-state provider.
type FlightContext struct {
	Velocity       r3.Vector
	Altitude       float64
	StaticPressure float64 // kPa
	AirDensity     float64
}

// InVacuum reports whether there is no ambient static pressure.
func (f FlightContext) InVacuum() bool {
	return f.StaticPressure <= 0
}

// VesselSnapshot is everything the host sends about one vessel for one frame.
type VesselSnapshot struct {
	VesselID         string
	Name             string
	Frame            uint
	Root             *Part
	Flight           FlightContext
	CenterOfMass     r3.Vector
	ObserverPosition r3.Vector
	// HasObserver is false when the host sent no observer position;
	// the unload range check is skipped then.
	HasObserver      bool
	IsActive         bool
}

// SkipReason says why a frame produced no arrows without running the aggregator.
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipDisabled   SkipReason = "disabled"
	SkipHidden     SkipReason = "hidden"
	SkipOutOfRange SkipReason = "out_of_range"
)

// Frame is the result of one marker update for one vessel.
type Frame struct {
	VesselID     string     `json:"vesselId"`
	FrameNumber  uint       `json:"frame"`
	Time         time.Time  `json:"time"`
	Forces       Forces     `json:"-"`
	Arrows       []Arrow    `json:"arrows"`
	CenterOfMass r3.Vector  `json:"centerOfMass"`
	RootPosition r3.Vector  `json:"rootPosition"`
	Skipped      SkipReason `json:"skipped,omitempty"`
}

// Session is one recording run of the extension.
type Session struct {
	ID               string
	Name             string
	StartTime        time.Time
	ExtensionVersion string
}
