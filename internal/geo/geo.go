package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Vessel-space points are stored as plain XYZ geometry without an SRID: the
// coordinates are the game's world frame, not a projection of the Earth.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// VectorFromString parses "x,y,z", with optional surrounding parentheses and
// spaces as the game prints vectors ("(1.0, 2.0, 3.0)").
func VectorFromString(s string) (r3.Vector, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vector{}, ErrInvalidCoordinates
	}

	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vector{}, ErrInvalidCoordinates
		}
		xyz[i] = v
	}
	return r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// PointFromVector converts a world-space vector to an XYZ point.
// NaN or infinite coordinates are rejected.
func PointFromVector(v r3.Vector) (geom.Point, error) {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X, Y: v.Y},
		Z:    v.Z,
		Type: geom.DimXYZ,
	})
}

// VectorFromPoint is the inverse of PointFromVector. Empty points report false.
func VectorFromPoint(p geom.Point) (r3.Vector, bool) {
	c, ok := p.Coordinates()
	if !ok {
		return r3.Vector{}, false
	}
	return r3.Vector{X: c.X, Y: c.Y, Z: c.Z}, true
}

// ArrowSegment returns the line from an arrow's tail to its head.
// The direction is not normalized, so the segment length follows the averaged direction.
//
// A line string needs two distinct XY values, so an arrow pointing straight
// along Z (or with no direction at all) yields an empty XYZ line string.
func ArrowSegment(position, direction r3.Vector) (geom.LineString, error) {
	head := position.Add(direction)
	if head.X == position.X && head.Y == position.Y {
		if _, err := PointFromVector(head); err != nil {
			return geom.LineString{}, err
		}
		return geom.LineString{}.ForceCoordinatesType(geom.DimXYZ), nil
	}
	seq := geom.NewSequence([]float64{
		position.X, position.Y, position.Z,
		head.X, head.Y, head.Z,
	}, geom.DimXYZ)
	return geom.NewLineString(seq)
}
