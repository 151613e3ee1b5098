// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/squidsoft/flightmarkers/internal/geo"
	"github.com/squidsoft/flightmarkers/internal/model"
	"github.com/squidsoft/flightmarkers/pkg/core"
	"gorm.io/datatypes"
)

// forcesJSON is the stored shape of core.Forces.
type forcesJSON struct {
	Thrust      arrowDataJSON `json:"thrust"`
	SurfaceLift arrowDataJSON `json:"surfaceLift"`
	BodyLift    arrowDataJSON `json:"bodyLift"`
	Drag        arrowDataJSON `json:"drag"`
}

type arrowDataJSON struct {
	Position  r3.Vector `json:"position"`
	Direction r3.Vector `json:"direction"`
	Magnitude float64   `json:"magnitude"`
}

func toJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// CoreToSession converts a core.Session to a GORM Session
func CoreToSession(s core.Session) model.Session {
	return model.Session{
		SessionUUID:      s.ID,
		Name:             s.Name,
		StartTime:        s.StartTime,
		ExtensionVersion: s.ExtensionVersion,
	}
}

// SessionToCore converts a GORM Session to a core.Session
func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:               s.SessionUUID,
		Name:             s.Name,
		StartTime:        s.StartTime,
		ExtensionVersion: s.ExtensionVersion,
	}
}

// CoreToVesselFrame converts a core.Frame to a GORM VesselFrame.
// Frames carrying NaN or infinite values are rejected.
func CoreToVesselFrame(f core.Frame, sessionID uint) (model.VesselFrame, error) {
	com, err := geo.PointFromVector(f.CenterOfMass)
	if err != nil {
		return model.VesselFrame{}, fmt.Errorf("center of mass: %w", err)
	}
	root, err := geo.PointFromVector(f.RootPosition)
	if err != nil {
		return model.VesselFrame{}, fmt.Errorf("root position: %w", err)
	}

	forces, err := toJSON(forcesJSON{
		Thrust:      arrowDataJSON(f.Forces.Thrust),
		SurfaceLift: arrowDataJSON(f.Forces.SurfaceLift),
		BodyLift:    arrowDataJSON(f.Forces.BodyLift),
		Drag:        arrowDataJSON(f.Forces.Drag),
	})
	if err != nil {
		return model.VesselFrame{}, fmt.Errorf("forces: %w", err)
	}

	arrows := f.Arrows
	if arrows == nil {
		arrows = []core.Arrow{}
	}
	arrowsJSON, err := toJSON(arrows)
	if err != nil {
		return model.VesselFrame{}, fmt.Errorf("arrows: %w", err)
	}

	return model.VesselFrame{
		Time:         f.Time,
		SessionID:    sessionID,
		VesselID:     f.VesselID,
		FrameNumber:  f.FrameNumber,
		CenterOfMass: com,
		RootPosition: root,
		Skipped:      string(f.Skipped),
		Forces:       forces,
		Arrows:       arrowsJSON,
	}, nil
}

// CoreToArrowRecords converts the arrows of a core.Frame to GORM ArrowRecords
func CoreToArrowRecords(f core.Frame, sessionID uint) ([]model.ArrowRecord, error) {
	if len(f.Arrows) == 0 {
		return nil, nil
	}
	out := make([]model.ArrowRecord, 0, len(f.Arrows))
	for _, a := range f.Arrows {
		pos, err := geo.PointFromVector(a.Position)
		if err != nil {
			return nil, fmt.Errorf("%s arrow position: %w", a.Category, err)
		}
		seg, err := geo.ArrowSegment(a.Position, a.Direction)
		if err != nil {
			return nil, fmt.Errorf("%s arrow segment: %w", a.Category, err)
		}
		out = append(out, model.ArrowRecord{
			Time:        f.Time,
			SessionID:   sessionID,
			VesselID:    f.VesselID,
			FrameNumber: f.FrameNumber,
			Category:    string(a.Category),
			Position:    pos,
			Segment:     seg,
			DirectionX:  a.Direction.X,
			DirectionY:  a.Direction.Y,
			DirectionZ:  a.Direction.Z,
			Magnitude:   a.Magnitude,
		})
	}
	return out, nil
}

// VesselFrameToCore converts a GORM VesselFrame back to a core.Frame
func VesselFrameToCore(v model.VesselFrame) (core.Frame, error) {
	f := core.Frame{
		VesselID:    v.VesselID,
		FrameNumber: v.FrameNumber,
		Time:        v.Time,
		Skipped:     core.SkipReason(v.Skipped),
	}
	f.CenterOfMass, _ = geo.VectorFromPoint(v.CenterOfMass)
	f.RootPosition, _ = geo.VectorFromPoint(v.RootPosition)

	if len(v.Arrows) > 0 {
		if err := json.Unmarshal(v.Arrows, &f.Arrows); err != nil {
			return core.Frame{}, err
		}
	}
	if len(v.Forces) > 0 {
		var fj forcesJSON
		if err := json.Unmarshal(v.Forces, &fj); err != nil {
			return core.Frame{}, err
		}
		f.Forces = core.Forces{
			Thrust:      core.ArrowData(fj.Thrust),
			SurfaceLift: core.ArrowData(fj.SurfaceLift),
			BodyLift:    core.ArrowData(fj.BodyLift),
			Drag:        core.ArrowData(fj.Drag),
		}
	}
	return f, nil
}

// ArrowRecordToCore converts a GORM ArrowRecord to a core.Arrow
func ArrowRecordToCore(r model.ArrowRecord) core.Arrow {
	pos, _ := geo.VectorFromPoint(r.Position)
	return core.Arrow{
		Category:  core.Category(r.Category),
		Position:  pos,
		Direction: r3.Vector{X: r.DirectionX, Y: r.DirectionY, Z: r.DirectionZ},
		Magnitude: r.Magnitude,
	}
}
