package parser

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/squidsoft/flightmarkers/internal/geo"
	"github.com/squidsoft/flightmarkers/pkg/core"
	"gonum.org/v1/gonum/num/quat"
)

// vec3 is [x, y, z] or the game's printed form "(x, y, z)".
type vec3 [3]float64

func (v *vec3) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		r, err := geo.VectorFromString(s)
		if err != nil {
			return fmt.Errorf("vector %q: %w", s, err)
		}
		*v = vec3{r.X, r.Y, r.Z}
		return nil
	}
	var arr [3]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	*v = arr
	return nil
}

func (v *vec3) vector() r3.Vector {
	if v == nil {
		return r3.Vector{}
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// rotation is [x, y, z, w], the order the game reports quaternions in.
type rotation [4]float64

func (q *rotation) quat() quat.Number {
	if q == nil {
		return core.IdentityRotation
	}
	return quat.Number{Real: q[3], Imag: q[0], Jmag: q[1], Kmag: q[2]}
}

type wireEngine struct {
	Name        string  `json:"name"`
	Operational bool    `json:"operational"`
	Position    vec3    `json:"position"`
	Direction   vec3    `json:"direction"`
	Thrust      float64 `json:"thrust"`
}

type wireWing struct {
	Name          string  `json:"name"`
	LiftPosition  vec3    `json:"liftPosition"`
	LiftDirection vec3    `json:"liftDirection"`
	Lift          float64 `json:"lift"`
	DragPosition  *vec3   `json:"dragPosition"`
	DragForce     *vec3   `json:"dragForce"`
	DragScalar    float64 `json:"dragScalar"`
}

type wirePart struct {
	ID               uint32       `json:"id"`
	Parent           *uint32      `json:"parent"`
	Name             string       `json:"name"`
	Position         vec3         `json:"position"`
	Rotation         *rotation    `json:"rotation"`
	BodyLiftPosition *vec3        `json:"bodyLiftPosition"`
	BodyLift         *vec3        `json:"bodyLift"`
	DragDir          *vec3        `json:"dragDir"`
	DragScalar       float64      `json:"dragScalar"`
	Engines          []wireEngine `json:"engines"`
	Wings            []wireWing   `json:"wings"`
}

type wireFlight struct {
	Velocity       *vec3   `json:"velocity"`
	Altitude       float64 `json:"altitude"`
	StaticPressure float64 `json:"staticPressure"`
	AirDensity     float64 `json:"airDensity"`
}

type wireSnapshot struct {
	VesselID     string     `json:"vesselId"`
	Name         string     `json:"name"`
	Frame        uint       `json:"frame"`
	Active       bool       `json:"active"`
	CenterOfMass *vec3      `json:"centerOfMass"`
	Observer     *vec3      `json:"observer"`
	Flight       wireFlight `json:"flight"`
	Parts        []wirePart `json:"parts"`
}
