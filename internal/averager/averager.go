// Package averager accumulates running means of 3D vectors.
package averager

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats/scalar"
)

// WeightEpsilon is the tolerance under which a total weight counts as zero.
const WeightEpsilon = 1e-9

// IsZeroWeight reports whether w is approximately zero.
func IsZeroWeight(w float64) bool {
	return scalar.EqualWithinAbs(w, 0, WeightEpsilon)
}

// Weighted keeps a running weighted sum of vectors.
// Weights may be negative; opposing contributions are allowed to cancel.
type Weighted struct {
	sum   r3.Vector
	total float64
}

// Add accumulates v scaled by weight.
func (a *Weighted) Add(v r3.Vector, weight float64) {
	a.sum = a.sum.Add(v.Mul(weight))
	a.total += weight
}

// Get returns the weighted mean, or the zero vector when the total weight is approximately zero.
func (a *Weighted) Get() r3.Vector {
	if IsZeroWeight(a.total) {
		return r3.Vector{}
	}
	return r3.Vector{X: a.sum.X / a.total, Y: a.sum.Y / a.total, Z: a.sum.Z / a.total}
}

// TotalWeight returns the raw accumulated weight.
func (a *Weighted) TotalWeight() float64 {
	return a.total
}

// Reset zeroes both accumulators.
func (a *Weighted) Reset() {
	a.sum = r3.Vector{}
	a.total = 0
}

// Unweighted keeps a running count-based mean of vectors.
type Unweighted struct {
	sum   r3.Vector
	count uint
}

// Add accumulates v.
func (a *Unweighted) Add(v r3.Vector) {
	a.sum = a.sum.Add(v)
	a.count++
}

// Get returns the mean, or the zero vector when nothing was added.
func (a *Unweighted) Get() r3.Vector {
	if a.count == 0 {
		return r3.Vector{}
	}
	n := float64(a.count)
	return r3.Vector{X: a.sum.X / n, Y: a.sum.Y / n, Z: a.sum.Z / n}
}

// Reset clears the accumulator.
func (a *Unweighted) Reset() {
	a.sum = r3.Vector{}
	a.count = 0
}
