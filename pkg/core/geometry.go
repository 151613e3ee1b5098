// pkg/core/geometry.go
package core

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// IdentityRotation is the no-op orientation.
var IdentityRotation = quat.Number{Real: 1}

// Transform places a part in world space.
// A zero Rotation is treated as IdentityRotation so hand-built parts need not set it.
type Transform struct {
	Position r3.Vector
	Rotation quat.Number
}

// Rotate applies the transform's orientation to a local direction.
func (t Transform) Rotate(local r3.Vector) r3.Vector {
	q := t.Rotation
	if q == (quat.Number{}) {
		return local
	}
	if n := quat.Abs(q); n != 1 {
		q = quat.Scale(1/n, q)
	}
	v := quat.Number{Imag: local.X, Jmag: local.Y, Kmag: local.Z}
	r := quat.Mul(quat.Mul(q, v), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// TransformPoint maps a local point into world space.
func (t Transform) TransformPoint(local r3.Vector) r3.Vector {
	return t.Position.Add(t.Rotate(local))
}

// TransformDirection maps a local direction into world space without translation.
func (t Transform) TransformDirection(local r3.Vector) r3.Vector {
	return t.Rotate(local)
}
