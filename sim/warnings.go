// sim/warnings.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"github.com/slightfim/fimulator/math"
)

type WarningKind int

const (
	StallWarning WarningKind = iota
	OverspeedWarning
	BankAngleWarning
	PullUpWarning
	TerrainWarning
	AltitudeWarning
	AutopilotWarning
	NumWarningKinds
)

func (k WarningKind) String() string {
	return []string{"stall", "overspeed", "bank_angle", "pullup", "terrain", "altitude_mismatch",
		"autopilot_disengaged"}[k]
}

// EdgeArmed reports whether the warning is announced only once each time
// its condition becomes true, rather than repeatedly while it holds.
func (k WarningKind) EdgeArmed() bool {
	return k == AltitudeWarning || k == AutopilotWarning
}

const (
	stallSpeedFraction     = 0.2
	overspeedFraction      = 0.75
	terrainSpeedFraction   = 0.3
	bankAngleLimit         = 30
	pullUpAltitude         = 1000
	pullUpVerticalVelocity = -20
	terrainAltitude        = 500
)

type Warning struct {
	Condition bool
	Show      bool
}

// WarningSet holds one aircraft's warnings, indexed by WarningKind.
type WarningSet [NumWarningKinds]Warning

func NewWarningSet() WarningSet {
	var w WarningSet
	for k := range NumWarningKinds {
		w[k].Show = true
	}
	// The autopilot starts out disengaged; that's not worth announcing.
	w[AutopilotWarning] = Warning{Condition: true, Show: false}
	return w
}

// Evaluate recomputes every condition from the aircraft's current state
// and the objective it is flying to, which may be nil.
func (w *WarningSet) Evaluate(ac *Aircraft, closest *Objective, tolerance float64) {
	maxSpeed := ac.Perf.MaxSpeed
	tvv := ac.TotalVerticalVelocity()

	w[StallWarning].Condition = ac.Speed < stallSpeedFraction*maxSpeed && !ac.OnGround()
	w[OverspeedWarning].Condition = ac.Speed > overspeedFraction*maxSpeed
	w[BankAngleWarning].Condition = math.Abs(ac.RollDegrees()) >= bankAngleLimit
	w[PullUpWarning].Condition = ac.Altitude <= pullUpAltitude && tvv <= pullUpVerticalVelocity
	w[TerrainWarning].Condition = ac.Altitude <= terrainAltitude && ac.Speed > terrainSpeedFraction*maxSpeed
	w[AltitudeWarning].Condition = closest != nil && math.Abs(ac.Altitude-closest.Altitude) > tolerance
	w[AutopilotWarning].Condition = !ac.Autopilot

	for k := range NumWarningKinds {
		if k.EdgeArmed() && !w[k].Condition {
			w[k].Show = true
		}
	}
}

// Active reports whether the warning should currently be presented.
func (w *WarningSet) Active(k WarningKind) bool {
	return w[k].Condition && w[k].Show
}

// Announce returns the warnings to present now, most urgent first. Only
// the most urgent of pull up, terrain, and stall is included. Announcing
// an edge-armed warning disarms it until its condition clears.
func (w *WarningSet) Announce() []WarningKind {
	var kinds []WarningKind
	for _, k := range []WarningKind{PullUpWarning, TerrainWarning, StallWarning} {
		if w.Active(k) {
			kinds = append(kinds, k)
			break
		}
	}
	for _, k := range []WarningKind{BankAngleWarning, OverspeedWarning, AltitudeWarning, AutopilotWarning} {
		if w.Active(k) {
			kinds = append(kinds, k)
			if k.EdgeArmed() {
				w[k].Show = false
			}
		}
	}
	return kinds
}
