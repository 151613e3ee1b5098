package parser

import (
	"fmt"

	"github.com/squidsoft/flightmarkers/pkg/core"
)

// buildTree links the flat part list into a single-parent tree and returns its root.
// Exactly one part may omit its parent. Every other part must reach that root.
func buildTree(parts []wirePart) (*core.Part, error) {
	byID := make(map[uint32]*core.Part, len(parts))
	for i := range parts {
		w := &parts[i]
		if _, dup := byID[w.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate part id %d", core.ErrInvalidSnapshot, w.ID)
		}
		byID[w.ID] = convertPart(w)
	}

	var root *core.Part
	for i := range parts {
		w := &parts[i]
		p := byID[w.ID]

		if w.Parent == nil {
			if root != nil {
				return nil, fmt.Errorf("%w: parts %d and %d both have no parent", core.ErrInvalidSnapshot, root.ID, w.ID)
			}
			root = p
			continue
		}

		parent, ok := byID[*w.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: part %d has unknown parent %d", core.ErrInvalidSnapshot, w.ID, *w.Parent)
		}
		if parent == p {
			return nil, fmt.Errorf("%w: part %d is its own parent", core.ErrInvalidSnapshot, w.ID)
		}
		parent.Children = append(parent.Children, p)
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no root part", core.ErrInvalidSnapshot)
	}
	// With one parent per part, anything not reachable from the root sits on a cycle.
	if n := root.Count(); n != len(parts) {
		return nil, fmt.Errorf("%w: %d of %d parts are not connected to the root (cycle)", core.ErrInvalidSnapshot, len(parts)-n, len(parts))
	}
	return root, nil
}

func convertPart(w *wirePart) *core.Part {
	p := &core.Part{
		ID:   w.ID,
		Name: w.Name,
		Transform: core.Transform{
			Position: w.Position.vector(),
			Rotation: w.Rotation.quat(),
		},
		BodyLiftLocalPosition: w.BodyLiftPosition.vector(),
		BodyLiftLocalVector:   w.BodyLift.vector(),
		DragVectorDir:         w.DragDir.vector(),
		DragScalar:            w.DragScalar,
	}

	if n := len(w.Engines) + len(w.Wings); n > 0 {
		p.Modules = make([]core.Module, 0, n)
	}
	for i := range w.Engines {
		e := &w.Engines[i]
		p.Modules = append(p.Modules, core.NewEngineModule(moduleName(e.Name, "engine"), &core.Engine{
			Operational: e.Operational,
			Position:    e.Position.vector(),
			Direction:   e.Direction.vector(),
			Thrust:      e.Thrust,
		}))
	}
	for i := range w.Wings {
		wg := &w.Wings[i]
		wing := &core.Wing{
			LiftPosition:  wg.LiftPosition.vector(),
			LiftDirection: wg.LiftDirection.vector(),
			Lift:          wg.Lift,
			DragPosition:  wg.LiftPosition.vector(),
			DragForce:     wg.DragForce.vector(),
			DragScalar:    wg.DragScalar,
		}
		if wg.DragPosition != nil {
			wing.DragPosition = wg.DragPosition.vector()
		}
		p.Modules = append(p.Modules, core.NewWingModule(moduleName(wg.Name, "wing"), wing))
	}
	return p
}

func moduleName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
