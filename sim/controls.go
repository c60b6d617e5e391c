// sim/controls.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"

	"github.com/slightfim/fimulator/math"
)

// Axis is one direction of a continuous control.
type Axis int

const (
	RollLeft Axis = iota
	RollRight
	PitchDown
	PitchUp
	ThrottleDown
	ThrottleUp
	NumAxes
)

func (a Axis) String() string {
	return []string{"roll-", "roll+", "pitch-", "pitch+", "throttle-", "throttle+"}[a]
}

func ParseAxis(s string) (Axis, error) {
	for a := range NumAxes {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%s: unknown control axis", s)
}

// Command is a discrete control action, triggered once per key press.
type Command int

const (
	CommandStart Command = iota
	CommandQuit
	CommandPause
	CommandAutopilot
	CommandCycleUnits
	CommandThrottle0
	CommandThrottle25
	CommandThrottle50
	CommandThrottle75
	CommandThrottle100
	NumCommands
)

func (c Command) String() string {
	return []string{"start", "quit", "pause", "autopilot", "units", "throttle-0", "throttle-25",
		"throttle-50", "throttle-75", "throttle-100"}[c]
}

func ParseCommand(s string) (Command, error) {
	for c := range NumCommands {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%s: %w", s, ErrUnknownCommand)
}

// ThrottlePreset returns the throttle setting for the preset commands.
func (c Command) ThrottlePreset() (float64, bool) {
	if c >= CommandThrottle0 && c <= CommandThrottle100 {
		return 25 * float64(c-CommandThrottle0), true
	}
	return 0, false
}

// Ramp returns the control change for one tick when a control has been
// held for the given number of ticks, including the current one. Taps
// give small adjustments while sustained holds keep speeding up.
func Ramp(heldTicks int, dt float64) float64 {
	if heldTicks <= 0 {
		return 0
	}
	return math.Pow(float64(heldTicks)/3, 0.75) * dt
}

// ControlState tracks which axes are held for one aircraft and for how
// many ticks.
type ControlState struct {
	Held  [NumAxes]bool
	Ticks [NumAxes]int
}

func (c *ControlState) Press(a Axis) {
	c.Held[a] = true
}

func (c *ControlState) Release(a Axis) {
	c.Held[a] = false
}

func (c *ControlState) ReleaseAll() {
	c.Held = [NumAxes]bool{}
}

// Tick advances the held counters by one tick and returns the resulting
// control change.
func (c *ControlState) Tick(dt float64) ControlDelta {
	for a := range NumAxes {
		if c.Held[a] {
			c.Ticks[a]++
		} else {
			c.Ticks[a] = 0
		}
	}

	ramp := func(neg, pos Axis) float64 {
		return Ramp(c.Ticks[pos], dt) - Ramp(c.Ticks[neg], dt)
	}
	return ControlDelta{
		Throttle:     ramp(ThrottleDown, ThrottleUp),
		Roll:         ramp(RollLeft, RollRight),
		VerticalRoll: ramp(PitchDown, PitchUp),
	}
}
