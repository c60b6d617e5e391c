// sim/exit.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
)

// ExitCode says why a flight ended. The numbering matches the exit
// codes written to logs by earlier releases.
type ExitCode int

const (
	ExitNone ExitCode = iota
	ExitCompleted
	ExitClosed
	ExitCrashLanding
	ExitLeftArea
	ExitCrashed // overstressed
	ExitCeilingExceeded
)

// Hard landings are descents faster than this.
const crashLandingVerticalVelocity = -20

func (e ExitCode) String() string {
	switch e {
	case ExitNone:
		return "none"
	case ExitCompleted:
		return "completed"
	case ExitClosed:
		return "closed"
	case ExitCrashLanding:
		return "crash_landing"
	case ExitLeftArea:
		return "left_area"
	case ExitCrashed:
		return "crashed"
	case ExitCeilingExceeded:
		return "ceiling_exceeded"
	default:
		return fmt.Sprintf("ExitCode(%d)", int(e))
	}
}

// Title is the headline shown on the end screen.
func (e ExitCode) Title() string {
	switch e {
	case ExitCompleted:
		return "Congratulations"
	case ExitClosed:
		return "Closed"
	case ExitCrashLanding, ExitLeftArea, ExitCrashed, ExitCeilingExceeded:
		return "Failed"
	default:
		return "Unexpected"
	}
}

// Reason explains the outcome, including the final score.
func (e ExitCode) Reason(points int) string {
	switch e {
	case ExitCompleted:
		return fmt.Sprintf("You completed the objective with a score of %d.", points)
	case ExitClosed:
		return fmt.Sprintf("The flight was closed. Your score was %d.", points)
	case ExitCrashLanding:
		return fmt.Sprintf("You crashed your aircraft. Your score was %d.", points)
	case ExitLeftArea:
		return fmt.Sprintf("You left the operation area. Your score was %d.", points)
	case ExitCrashed:
		return fmt.Sprintf("The aircraft was overstressed. Your score was %d.", points)
	case ExitCeilingExceeded:
		return fmt.Sprintf("The aircraft exceeded its service ceiling. Your score was %d.", points)
	default:
		return fmt.Sprintf("Unexpected exit code %d.", int(e))
	}
}

// CheckExit classifies the aircraft's state. The checks are made in
// priority order and the first that matches wins.
func CheckExit(ac *Aircraft, as *Airspace) ExitCode {
	switch {
	case ac.Health <= 0:
		return ExitCrashed
	case ac.Points >= as.RequiredPoints && ac.OnGround():
		return ExitCompleted
	case ac.Altitude > as.MaxAltitude:
		return ExitCeilingExceeded
	case ac.OnGround() && ac.TotalVerticalVelocity() < crashLandingVerticalVelocity:
		return ExitCrashLanding
	case !as.InBounds(ac):
		return ExitLeftArea
	default:
		return ExitNone
	}
}
