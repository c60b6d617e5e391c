// sim/objective.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"

	"github.com/slightfim/fimulator/log"
	"github.com/slightfim/fimulator/math"
)

// Objective is a waypoint that aircraft fly to.
type Objective struct {
	ID       int
	Marker   string
	X, Z     float64
	Altitude float64
	Size     float64
}

func NewObjective(id int, marker string, x, z, altitude, size float64) *Objective {
	return &Objective{ID: id, Marker: marker, X: x, Z: z, Altitude: altitude, Size: size}
}

func (o *Objective) Position() [2]float64 {
	return [2]float64{o.X, o.Z}
}

func (o *Objective) Footprint() math.Extent2D {
	return math.SquareAround(o.Position(), o.Size)
}

func (o *Objective) Elevation() float64 {
	return o.Altitude
}

func (o *Objective) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", o.ID),
		slog.Float64("x", o.X),
		slog.Float64("z", o.Z),
		slog.Float64("altitude", o.Altitude))
}

// Entity is anything that occupies space in the airspace.
type Entity interface {
	Footprint() math.Extent2D
	Elevation() float64
}

// Collides reports whether two entities overlap on the horizontal plane
// and are within tolerance of each other's altitude. Both are needed.
func Collides(a, b Entity, tolerance float64) bool {
	return math.Overlaps(a.Footprint(), b.Footprint()) &&
		math.Abs(a.Elevation()-b.Elevation()) <= tolerance
}

// AltitudePolicy selects how a new objective's altitude is brought back
// into range.
type AltitudePolicy int

const (
	// AltitudeSnap sends anything above the snap threshold up to the snap
	// altitude and anything below the floor up to the floor.
	AltitudeSnap AltitudePolicy = iota
	// AltitudeClamp clamps into [floor, snap threshold].
	AltitudeClamp
)

func (p AltitudePolicy) String() string {
	return []string{"snap", "clamp"}[p]
}

func ParseAltitudePolicy(s string) (AltitudePolicy, error) {
	switch s {
	case "snap", "":
		return AltitudeSnap, nil
	case "clamp":
		return AltitudeClamp, nil
	default:
		return AltitudeSnap, fmt.Errorf("%s: unknown altitude policy", s)
	}
}

type ObjectiveParams struct {
	Size           float64
	AltitudeJitter float64 // new altitude is previous ± up to this
	FloorAltitude  float64
	SnapThreshold  float64
	SnapAltitude   float64
	MaxAttempts    int
	Policy         AltitudePolicy
}

func DefaultObjectiveParams() ObjectiveParams {
	return ObjectiveParams{
		Size:           1000,
		AltitudeJitter: 150,
		FloorAltitude:  1000,
		SnapThreshold:  6000,
		SnapAltitude:   8000,
		MaxAttempts:    10000,
		Policy:         AltitudeSnap,
	}
}

// Source is the randomness the generator draws placements from.
type Source interface {
	Uniform(lo, hi float64) float64
}

// ObjectiveGenerator places new objectives.
type ObjectiveGenerator struct {
	Params ObjectiveParams
	rand   Source
	ids    *IDAllocator
	lg     *log.Logger
}

func NewObjectiveGenerator(p ObjectiveParams, r Source, ids *IDAllocator, lg *log.Logger) *ObjectiveGenerator {
	return &ObjectiveGenerator{Params: p, rand: r, ids: ids, lg: lg}
}

// Altitude maps a raw candidate altitude to the altitude the objective
// is placed at.
func (g *ObjectiveGenerator) Altitude(raw float64) float64 {
	p := g.Params
	switch p.Policy {
	case AltitudeClamp:
		return math.Clamp(raw, p.FloorAltitude, p.SnapThreshold)
	default:
		if raw > p.SnapThreshold {
			return p.SnapAltitude
		} else if raw < p.FloorAltitude {
			return p.FloorAltitude
		}
		return raw
	}
}

// Generate returns a new objective inside bounds whose altitude is
// derived from previousAltitude and which does not collide with any of
// the occupied entities. The candidate is drawn again until one fits or
// MaxAttempts is reached, at which point ErrObjectivePlacement is
// returned.
func (g *ObjectiveGenerator) Generate(marker string, previousAltitude float64, bounds math.Extent2D,
	tolerance float64, occupied []Entity) (*Objective, error) {
	half := g.Params.Size / 2

nextAttempt:
	for attempt := range g.Params.MaxAttempts {
		x := g.rand.Uniform(bounds.P0[0]+half, bounds.P1[0]-half)
		z := g.rand.Uniform(bounds.P0[1]+half, bounds.P1[1]-half)
		alt := g.Altitude(previousAltitude + g.rand.Uniform(-g.Params.AltitudeJitter, g.Params.AltitudeJitter))

		candidate := NewObjective(0, marker, x, z, alt, g.Params.Size)
		if !bounds.Contains(candidate.Footprint()) {
			continue
		}
		for _, e := range occupied {
			if Collides(candidate, e, tolerance) {
				continue nextAttempt
			}
		}

		candidate.ID = g.ids.Next()
		g.lg.Debug("placed objective", slog.Any("objective", candidate), slog.Int("attempts", attempt+1))
		return candidate, nil
	}

	g.lg.Errorf("gave up placing objective after %d attempts", g.Params.MaxAttempts)
	return nil, fmt.Errorf("%d attempts: %w", g.Params.MaxAttempts, ErrObjectivePlacement)
}
