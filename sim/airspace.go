// sim/airspace.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"

	"github.com/slightfim/fimulator/log"
	"github.com/slightfim/fimulator/math"
	"github.com/slightfim/fimulator/util"
)

type AirspaceParams struct {
	Width, Height     float64
	MaxAltitude       float64 // service ceiling; the ground is at 0
	RequiredPoints    int
	AltitudeTolerance float64
}

func DefaultAirspaceParams() AirspaceParams {
	return AirspaceParams{
		Width:             40000,
		Height:            40000,
		MaxAltitude:       10000,
		RequiredPoints:    10,
		AltitudeTolerance: 100,
	}
}

// CaptureEvent records that an aircraft reached an objective.
type CaptureEvent struct {
	AircraftID  int
	ObjectiveID int
	Replacement int // id of the objective generated in its place
}

// Airspace is the bounded region that aircraft fly in. It owns the
// aircraft and objectives; both are keyed by id and always visited in
// ascending id order.
type Airspace struct {
	AirspaceParams
	Aircraft   map[int]*Aircraft
	Objectives map[int]*Objective

	gen *ObjectiveGenerator
	lg  *log.Logger
}

func NewAirspace(p AirspaceParams, gen *ObjectiveGenerator, lg *log.Logger) *Airspace {
	return &Airspace{
		AirspaceParams: p,
		Aircraft:       make(map[int]*Aircraft),
		Objectives:     make(map[int]*Objective),
		gen:            gen,
		lg:             lg,
	}
}

// Bounds returns the airspace rectangle, with its origin at (0, 0).
func (p AirspaceParams) Bounds() math.Extent2D {
	return math.Extent2D{P1: [2]float64{p.Width, p.Height}}
}

func (a *Airspace) AddAircraft(ac *Aircraft) error {
	if _, ok := a.Aircraft[ac.ID]; ok {
		return fmt.Errorf("%d: %w", ac.ID, ErrDuplicateAircraft)
	}
	a.Aircraft[ac.ID] = ac
	a.lg.Info("added aircraft", slog.Any("aircraft", ac))
	return nil
}

// RemoveAircraft takes an aircraft out of the airspace, e.g. once its
// flight has ended.
func (a *Airspace) RemoveAircraft(id int) {
	delete(a.Aircraft, id)
}

func (a *Airspace) AddObjective(o *Objective) {
	a.Objectives[o.ID] = o
}

// SeedObjective places the first objective of a chain.
func (a *Airspace) SeedObjective(marker string, altitude float64) (*Objective, error) {
	o, err := a.gen.Generate(marker, altitude, a.Bounds(), a.AltitudeTolerance, a.occupants())
	if err != nil {
		return nil, err
	}
	a.AddObjective(o)
	return o, nil
}

func (a *Airspace) occupants() []Entity {
	occ := make([]Entity, 0, len(a.Aircraft))
	for _, id := range util.SortedMapKeys(a.Aircraft) {
		occ = append(occ, a.Aircraft[id])
	}
	return occ
}

// InBounds reports whether the entity's footprint lies entirely inside
// the airspace.
func (a *Airspace) InBounds(e Entity) bool {
	return a.Bounds().Contains(e.Footprint())
}

// Update advances all aircraft by dt seconds, applying the control
// changes given for them, and then resolves captures. An objective is
// captured at most once; when more than one aircraft reaches it in the
// same tick, the one with the lowest id gets it. Every captured
// objective is replaced before Update returns.
func (a *Airspace) Update(dt float64, controls map[int]ControlDelta) ([]CaptureEvent, error) {
	acIDs := util.SortedMapKeys(a.Aircraft)
	for _, id := range acIDs {
		a.Aircraft[id].Advance(dt, controls[id])
	}

	var events []CaptureEvent
	objIDs := util.SortedMapKeys(a.Objectives)
	for _, acid := range acIDs {
		ac := a.Aircraft[acid]
		for _, oid := range objIDs {
			obj, ok := a.Objectives[oid]
			if !ok || !Collides(ac, obj, a.AltitudeTolerance) {
				continue
			}

			delete(a.Objectives, oid)
			ac.Points++

			repl, err := a.gen.Generate(obj.Marker, obj.Altitude, a.Bounds(), a.AltitudeTolerance, a.occupants())
			if err != nil {
				return events, fmt.Errorf("replacing objective %d: %w", oid, err)
			}
			a.AddObjective(repl)

			a.lg.Info("objective captured", slog.Int("aircraft", acid), slog.Any("objective", obj),
				slog.Int("points", ac.Points), slog.Any("replacement", repl))
			events = append(events, CaptureEvent{AircraftID: acid, ObjectiveID: oid, Replacement: repl.ID})
		}
	}
	return events, nil
}

// ClosestObjective returns the live objective nearest to the aircraft
// on the horizontal plane, or nil if there are none. Ties go to the
// lower id.
func (a *Airspace) ClosestObjective(ac *Aircraft) *Objective {
	return closestObjective(ac, a.Objectives)
}

func closestObjective(ac *Aircraft, objectives map[int]*Objective) *Objective {
	var closest *Objective
	best := 0.
	for _, id := range util.SortedMapKeys(objectives) {
		o := objectives[id]
		if d := math.Distance2f(ac.Position(), o.Position()); closest == nil || d < best {
			closest, best = o, d
		}
	}
	return closest
}
