package policy

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/squidsoft/flightmarkers/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultCutoffs = Cutoffs{SurfaceLift: 10, BodyLift: 15, Drag: 10}

func vec(x, y, z float64) r3.Vector { return r3.Vector{X: x, Y: y, Z: z} }

func categories(arrows []core.Arrow) []core.Category {
	out := make([]core.Category, 0, len(arrows))
	for _, a := range arrows {
		out = append(out, a.Category)
	}
	return out
}

func TestActiveLift_StrictCutoff(t *testing.T) {
	tests := []struct {
		name    string
		surface float64
		body    float64
		want    LiftFlags
	}{
		{"both at cutoff", 10, 15, LiftNone},
		{"surface just over", 10.0001, 15, SurfaceLift},
		{"body just over", 10, 15.0001, BodyLift},
		{"both over", 11, 16, SurfaceLift | BodyLift},
		{"negative totals", -20, -20, LiftNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := core.Forces{
				SurfaceLift: core.ArrowData{Magnitude: tt.surface},
				BodyLift:    core.ArrowData{Magnitude: tt.body},
			}
			assert.Equal(t, tt.want, ActiveLift(f, defaultCutoffs))
		})
	}
}

func TestEvaluate_CombinesWhenBothActive(t *testing.T) {
	f := core.Forces{
		SurfaceLift: core.ArrowData{Position: vec(0, 0, 0), Direction: vec(1, 0, 0), Magnitude: 12},
		BodyLift:    core.ArrowData{Position: vec(2, 0, 0), Direction: vec(0, 1, 0), Magnitude: 16},
	}

	arrows := Evaluate(f, defaultCutoffs, true)

	require.Len(t, arrows, 1)
	assert.Equal(t, core.CategoryCombinedLift, arrows[0].Category)
	assert.Equal(t, vec(1, 0, 0), arrows[0].Position)
	assert.Equal(t, vec(0.5, 0.5, 0), arrows[0].Direction)
	assert.Equal(t, 28.0, arrows[0].Magnitude)
}

func TestEvaluate_CombineDisabledKeepsBoth(t *testing.T) {
	surface := core.ArrowData{Position: vec(0, 0, 0), Direction: vec(1, 0, 0), Magnitude: 12}
	body := core.ArrowData{Position: vec(2, 0, 0), Direction: vec(0, 1, 0), Magnitude: 16}

	arrows := Evaluate(core.Forces{SurfaceLift: surface, BodyLift: body}, defaultCutoffs, false)

	require.Len(t, arrows, 2)
	assert.Equal(t, core.Arrow{Category: core.CategorySurfaceLift, Position: surface.Position, Direction: surface.Direction, Magnitude: 12}, arrows[0])
	assert.Equal(t, core.Arrow{Category: core.CategoryBodyLift, Position: body.Position, Direction: body.Direction, Magnitude: 16}, arrows[1])
}

func TestEvaluate_CombineNeedsBothActive(t *testing.T) {
	f := core.Forces{
		SurfaceLift: core.ArrowData{Position: vec(0, 0, 0), Direction: vec(1, 0, 0), Magnitude: 12},
		BodyLift:    core.ArrowData{Position: vec(2, 0, 0), Direction: vec(0, 1, 0), Magnitude: 15},
	}

	arrows := Evaluate(f, defaultCutoffs, true)

	assert.Equal(t, []core.Category{core.CategorySurfaceLift}, categories(arrows))
}

func TestEvaluate_ThrustShownWhenDirectionNonZero(t *testing.T) {
	withThrust := core.Forces{Thrust: core.ArrowData{Direction: vec(0, 0, 1), Magnitude: 0.001}}
	assert.Equal(t, []core.Category{core.CategoryThrust}, categories(Evaluate(withThrust, defaultCutoffs, true)))

	noDirection := core.Forces{Thrust: core.ArrowData{Position: vec(1, 1, 1), Magnitude: 500}}
	assert.Empty(t, Evaluate(noDirection, defaultCutoffs, true))
}

func TestEvaluate_DragStrictCutoff(t *testing.T) {
	at := core.Forces{Drag: core.ArrowData{Direction: vec(-1, 0, 0), Magnitude: 10}}
	assert.Empty(t, Evaluate(at, defaultCutoffs, true))

	over := core.Forces{Drag: core.ArrowData{Direction: vec(-1, 0, 0), Magnitude: 10.5}}
	assert.Equal(t, []core.Category{core.CategoryDrag}, categories(Evaluate(over, defaultCutoffs, true)))
}

func TestEvaluate_OrderThrustLiftDrag(t *testing.T) {
	f := core.Forces{
		Thrust:      core.ArrowData{Direction: vec(0, 1, 0), Magnitude: 100},
		SurfaceLift: core.ArrowData{Direction: vec(0, 0, 1), Magnitude: 50},
		BodyLift:    core.ArrowData{Direction: vec(0, 0, 1), Magnitude: 50},
		Drag:        core.ArrowData{Direction: vec(0, -1, 0), Magnitude: 50},
	}

	assert.Equal(t,
		[]core.Category{core.CategoryThrust, core.CategorySurfaceLift, core.CategoryBodyLift, core.CategoryDrag},
		categories(Evaluate(f, defaultCutoffs, false)))
	assert.Equal(t,
		[]core.Category{core.CategoryThrust, core.CategoryCombinedLift, core.CategoryDrag},
		categories(Evaluate(f, defaultCutoffs, true)))
}

func TestEvaluate_VacuumForcesReportNoLift(t *testing.T) {
	f := core.Forces{
		Thrust: core.ArrowData{Direction: vec(0, 1, 0), Magnitude: 100},
		Drag:   core.ArrowData{Direction: vec(0, -1, 0), Magnitude: 20},
	}

	assert.Equal(t,
		[]core.Category{core.CategoryThrust, core.CategoryDrag},
		categories(Evaluate(f, defaultCutoffs, true)))
}
