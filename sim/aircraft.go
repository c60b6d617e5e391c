// sim/aircraft.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"

	"github.com/slightfim/fimulator/math"
)

const (
	// Heading rate response to the roll level: a·r³ + b·r degrees per
	// second.
	rollCubic  = 35. / 198
	rollLinear = 470. / 99

	// Degrees of pitch per vertical roll level.
	pitchPerLevel = 10

	// Thrust grows with throttle², drag with speed².
	thrustDivisor = 250
	dragDivisor   = 6250

	// Health lost per second is (speed-DamageSpeed)²/damageDivisor.
	damageDivisor = 75000

	// Roll levels per second that the autopilot levels out at.
	autopilotLevelRate = 1

	MaxHealth = 100
)

// Performance holds the fixed characteristics of an aircraft type.
type Performance struct {
	MaxSpeed     float64 // reference for the speed warnings
	DamageSpeed  float64 // above this, the airframe is overstressed
	MaxThrottle  float64
	MaxRollLevel float64 // bound on both roll level and vertical roll level
	Footprint    float64 // side of the square occupied on the (x, z) plane
	WorldScale   float64 // world units per unit of horizontal speed·seconds
}

func DefaultPerformance() Performance {
	return Performance{
		MaxSpeed:     500,
		DamageSpeed:  500,
		MaxThrottle:  125,
		MaxRollLevel: 4,
		Footprint:    500,
		WorldScale:   1,
	}
}

// AircraftSpec gives everything needed to create an aircraft.
type AircraftSpec struct {
	Performance Performance
	Marker      string
	X, Z        float64
	Altitude    float64
	Heading     float64
	Speed       float64
	Throttle    float64
	Gravity     float64
}

// Aircraft is one aircraft's kinematic and energy state. All angles are
// in degrees.
type Aircraft struct {
	ID     int
	Marker string

	X, Z     float64
	Altitude float64

	Heading           float64 // (-180, 180], 0 is toward -z
	RollLevel         float64
	VerticalRollLevel float64
	Roll              float64 // heading rate, deg/s; also the bank shown
	VerticalHeading   float64 // pitch

	Speed            float64
	HorizontalSpeed  float64
	VerticalVelocity float64
	Throttle         float64
	Acceleration     float64
	Gravity          float64 // environmental sink rate, <= 0

	Points    int
	Health    float64
	Autopilot bool

	Perf Performance
}

// ControlDelta is the change to apply to the aircraft's controls in one
// tick.
type ControlDelta struct {
	Throttle     float64
	Roll         float64
	VerticalRoll float64
}

func NewAircraft(id int, spec AircraftSpec) *Aircraft {
	ac := &Aircraft{
		ID:       id,
		Marker:   spec.Marker,
		X:        spec.X,
		Z:        spec.Z,
		Altitude: spec.Altitude,
		Heading:  math.NormalizeHeading(spec.Heading),
		Speed:    max(0, spec.Speed),
		Throttle: math.Clamp(spec.Throttle, 0, spec.Performance.MaxThrottle),
		Gravity:  min(0, spec.Gravity),
		Health:   MaxHealth,
		Perf:     spec.Performance,
	}
	ac.HorizontalSpeed = ac.Speed
	return ac
}

// Advance moves the aircraft forward dt seconds after applying the given
// control change. While the autopilot is engaged the change is ignored
// and the aircraft is eased back to level flight.
func (ac *Aircraft) Advance(dt float64, d ControlDelta) {
	if ac.Autopilot {
		ac.RollLevel = math.Approach(ac.RollLevel, 0, autopilotLevelRate*dt)
		ac.VerticalRollLevel = math.Approach(ac.VerticalRollLevel, 0, autopilotLevelRate*dt)
	} else {
		ac.SetThrottle(ac.Throttle + d.Throttle)
		lim := ac.Perf.MaxRollLevel
		ac.RollLevel = math.Clamp(ac.RollLevel+d.Roll, -lim, lim)
		ac.VerticalRollLevel = math.Clamp(ac.VerticalRollLevel+d.VerticalRoll, -lim, lim)
	}

	ac.updateHeading(dt)
	ac.VerticalHeading = pitchPerLevel * ac.VerticalRollLevel
	ac.updateSpeed(dt)
	ac.updatePosition(dt)

	if ac.Speed > ac.Perf.DamageSpeed {
		// Not clamped: health <= 0 is what ends the flight.
		ac.Health -= math.Sqr(ac.Speed-ac.Perf.DamageSpeed) / damageDivisor * dt
	}
}

func (ac *Aircraft) updateHeading(dt float64) {
	r := ac.RollLevel
	ac.Roll = rollCubic*r*r*r + rollLinear*r
	ac.Heading = math.NormalizeHeading(ac.Heading + ac.Roll*dt)
}

func (ac *Aircraft) updateSpeed(dt float64) {
	ac.Acceleration = math.Sqr(ac.Throttle)/thrustDivisor - math.Sqr(ac.Speed)/dragDivisor
	ac.Speed = max(0, ac.Speed+ac.Acceleration*dt)

	sinp, cosp := math.SinCos(ac.VerticalHeading)
	ac.HorizontalSpeed = ac.Speed * cosp
	ac.VerticalVelocity = ac.Speed * sinp
}

func (ac *Aircraft) updatePosition(dt float64) {
	sinh, cosh := math.SinCos(ac.Heading)
	d := ac.HorizontalSpeed * dt * ac.Perf.WorldScale
	ac.X += sinh * d
	ac.Z -= cosh * d

	// The ground stops the aircraft, but the velocities it arrived with
	// are left alone so that a hard landing can be recognized.
	ac.Altitude = max(0, ac.Altitude+ac.TotalVerticalVelocity()*dt)
}

// SetThrottle sets the throttle, clamped to the aircraft's range.
func (ac *Aircraft) SetThrottle(t float64) {
	ac.Throttle = math.Clamp(t, 0, ac.Perf.MaxThrottle)
}

func (ac *Aircraft) RollDegrees() float64 {
	return ac.Roll
}

func (ac *Aircraft) PitchDegrees() float64 {
	return ac.VerticalHeading
}

func (ac *Aircraft) TotalVerticalVelocity() float64 {
	return ac.VerticalVelocity + ac.Gravity
}

// Damage is the complement of health, as shown on the HUD.
func (ac *Aircraft) Damage() float64 {
	return MaxHealth - ac.Health
}

func (ac *Aircraft) OnGround() bool {
	return ac.Altitude <= 0
}

func (ac *Aircraft) Position() [2]float64 {
	return [2]float64{ac.X, ac.Z}
}

func (ac *Aircraft) Footprint() math.Extent2D {
	return math.SquareAround(ac.Position(), ac.Perf.Footprint)
}

func (ac *Aircraft) Elevation() float64 {
	return ac.Altitude
}

func (ac *Aircraft) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", ac.ID),
		slog.Float64("x", ac.X),
		slog.Float64("z", ac.Z),
		slog.Float64("altitude", ac.Altitude),
		slog.Float64("heading", ac.Heading),
		slog.Float64("speed", ac.Speed),
		slog.Float64("throttle", ac.Throttle),
		slog.Int("points", ac.Points),
		slog.Float64("health", ac.Health))
}
