// Package parser turns host snapshot payloads into vessel snapshots.
// It performs no aggregation and holds no per-vessel state.
package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/squidsoft/flightmarkers/internal/util"
	"github.com/squidsoft/flightmarkers/pkg/core"
)

// Parser validates and converts snapshot JSON.
// It is safe for concurrent use.
type Parser struct {
	logger    *slog.Logger
	validator *validator
}

// NewParser creates a parser with the embedded snapshot schema.
func NewParser(logger *slog.Logger) (*Parser, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	return &Parser{logger: logger, validator: v}, nil
}

// ParseSnapshot parses the arguments of a :FRAME: command. The payload may have
// been split on '|' by the line protocol and may carry host quoting.
func (p *Parser) ParseSnapshot(args []string) (core.VesselSnapshot, error) {
	if len(args) == 0 {
		return core.VesselSnapshot{}, fmt.Errorf("%w: empty payload", core.ErrInvalidSnapshot)
	}
	payload := strings.TrimSpace(util.JoinArgs(args))
	// A quoted payload was escaped by the host: "{""id"":1}".
	if strings.HasPrefix(payload, `"`) {
		payload = util.CleanArg(payload)
	}
	return p.ParseSnapshotJSON([]byte(payload))
}

// ParseSnapshotJSON validates data against the snapshot schema and builds the part tree.
func (p *Parser) ParseSnapshotJSON(data []byte) (core.VesselSnapshot, error) {
	if err := p.validator.validate(data); err != nil {
		return core.VesselSnapshot{}, fmt.Errorf("%w: %v", core.ErrInvalidSnapshot, err)
	}

	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return core.VesselSnapshot{}, fmt.Errorf("%w: %v", core.ErrInvalidSnapshot, err)
	}

	root, err := buildTree(w.Parts)
	if err != nil {
		return core.VesselSnapshot{}, err
	}

	s := core.VesselSnapshot{
		VesselID: w.VesselID,
		Name:     w.Name,
		Frame:    w.Frame,
		Root:     root,
		Flight: core.FlightContext{
			Velocity:       w.Flight.Velocity.vector(),
			Altitude:       w.Flight.Altitude,
			StaticPressure: w.Flight.StaticPressure,
			AirDensity:     w.Flight.AirDensity,
		},
		CenterOfMass:     w.CenterOfMass.vector(),
		ObserverPosition: w.Observer.vector(),
		HasObserver:      w.Observer != nil,
		IsActive:         w.Active,
	}

	if p.logger != nil {
		p.logger.Debug("Parsed vessel snapshot",
			"vesselId", s.VesselID,
			"frame", s.Frame,
			"parts", len(w.Parts))
	}
	return s, nil
}
