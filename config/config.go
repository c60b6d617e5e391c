// config/config.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package config loads the YAML configuration file. Every setting has a
// default, so a file only needs to name what it changes.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/slightfim/fimulator/sim"
	"github.com/slightfim/fimulator/units"
	"github.com/slightfim/fimulator/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Sim        SimConfig        `yaml:"sim"`
	Airspace   AirspaceConfig   `yaml:"airspace"`
	Aircraft   AircraftConfig   `yaml:"aircraft"`
	Objectives ObjectivesConfig `yaml:"objectives"`
	Controls   ControlsConfig   `yaml:"controls"`
	HUD        HUDConfig        `yaml:"hud"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Record     RecordConfig     `yaml:"record"`
	Scores     ScoresConfig     `yaml:"scores"`
}

type SimConfig struct {
	TickRate        int           `yaml:"tick_rate"`
	Seed            int64         `yaml:"seed"` // 0 picks one from the clock
	WarningInterval time.Duration `yaml:"warning_interval"`
	LogInterval     time.Duration `yaml:"log_interval"`
}

type AirspaceConfig struct {
	Width             float64 `yaml:"width"`
	Height            float64 `yaml:"height"`
	MaxAltitude       float64 `yaml:"max_altitude"`
	RequiredPoints    int     `yaml:"required_points"`
	AltitudeTolerance float64 `yaml:"altitude_tolerance"`
}

type AircraftConfig struct {
	Marker string `yaml:"marker"`
	// Starting position; the center of the airspace if not given.
	X        *float64 `yaml:"x"`
	Z        *float64 `yaml:"z"`
	Altitude float64  `yaml:"altitude"`
	Heading  float64  `yaml:"heading"`
	Speed    float64  `yaml:"speed"`
	Throttle float64  `yaml:"throttle"`
	Gravity  float64  `yaml:"gravity"`

	MaxSpeed     float64 `yaml:"max_speed"`
	DamageSpeed  float64 `yaml:"damage_speed"`
	MaxThrottle  float64 `yaml:"max_throttle"`
	MaxRollLevel float64 `yaml:"max_roll_level"`
	Footprint    float64 `yaml:"footprint"`
	WorldScale   float64 `yaml:"world_scale"`
}

type ObjectivesConfig struct {
	Marker         string  `yaml:"marker"`
	Size           float64 `yaml:"size"`
	AltitudeJitter float64 `yaml:"altitude_jitter"`
	FloorAltitude  float64 `yaml:"floor_altitude"`
	SnapThreshold  float64 `yaml:"snap_threshold"`
	SnapAltitude   float64 `yaml:"snap_altitude"`
	MaxAttempts    int     `yaml:"max_attempts"`
	AltitudePolicy string  `yaml:"altitude_policy"`
}

// ControlsConfig maps key names to the axis or command they drive. The
// terminal front-end can't see key releases, so a key counts as held
// until no repeat has arrived for HoldTimeout.
type ControlsConfig struct {
	Bindings    map[string]string `yaml:"bindings"`
	HoldTimeout time.Duration     `yaml:"hold_timeout"`
}

type HUDConfig struct {
	Units string `yaml:"units"` // unit system shown at startup: SI, Metric or Imperial
}

type TelemetryConfig struct {
	Enable    bool   `yaml:"enable"`
	Dir       string `yaml:"dir"` // the log directory if empty
	MaxSizeMB int    `yaml:"max_size_mb"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ScoresConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"` // fimulator.db in the log directory if empty
}

func DefaultBindings() map[string]string {
	return map[string]string{
		"Left":   "roll-",
		"Right":  "roll+",
		"Up":     "pitch-",
		"Down":   "pitch+",
		"F2":     "throttle-",
		"F4":     "throttle+",
		"F1":     "throttle-0",
		"F3":     "throttle-25",
		"F5":     "throttle-75",
		"z":      "autopilot",
		"p":      "pause",
		"u":      "units",
		"Enter":  "start",
		"Escape": "quit",
	}
}

func Default() Config {
	as := sim.DefaultAirspaceParams()
	perf := sim.DefaultPerformance()
	obj := sim.DefaultObjectiveParams()

	return Config{
		Sim: SimConfig{
			TickRate:        60,
			WarningInterval: 2 * time.Second,
			LogInterval:     5 * time.Second,
		},
		Airspace: AirspaceConfig{
			Width:             as.Width,
			Height:            as.Height,
			MaxAltitude:       as.MaxAltitude,
			RequiredPoints:    as.RequiredPoints,
			AltitudeTolerance: as.AltitudeTolerance,
		},
		Aircraft: AircraftConfig{
			Marker:       "navmarker",
			Altitude:     1800,
			Throttle:     50,
			MaxSpeed:     perf.MaxSpeed,
			DamageSpeed:  perf.DamageSpeed,
			MaxThrottle:  perf.MaxThrottle,
			MaxRollLevel: perf.MaxRollLevel,
			Footprint:    perf.Footprint,
			WorldScale:   perf.WorldScale,
		},
		Objectives: ObjectivesConfig{
			Marker:         "objectivemarker",
			Size:           obj.Size,
			AltitudeJitter: obj.AltitudeJitter,
			FloorAltitude:  obj.FloorAltitude,
			SnapThreshold:  obj.SnapThreshold,
			SnapAltitude:   obj.SnapAltitude,
			MaxAttempts:    obj.MaxAttempts,
			AltitudePolicy: obj.Policy.String(),
		},
		Controls: ControlsConfig{
			Bindings:    DefaultBindings(),
			HoldTimeout: 600 * time.Millisecond,
		},
		HUD: HUDConfig{
			Units: units.SI.String(),
		},
		Telemetry: TelemetryConfig{
			Enable:    true,
			MaxSizeMB: 16,
		},
		Record: RecordConfig{
			Path: "flight.rec",
		},
		Scores: ScoresConfig{
			Enable: true,
		},
	}
}

// Load reads the configuration file at path over the defaults and
// validates the result. All problems found are reported in the returned
// error.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	// A bindings section replaces the default bindings rather than adding
	// to them.
	cfg.Controls.Bindings = nil
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Controls.Bindings == nil {
		cfg.Controls.Bindings = DefaultBindings()
	}

	var e util.ErrorLogger
	cfg.Validate(&e)
	if err := e.Err(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate(e *util.ErrorLogger) {
	e.Push("sim")
	if c.Sim.TickRate <= 0 {
		e.ErrorString("tick_rate must be > 0")
	}
	if c.Sim.WarningInterval <= 0 {
		e.ErrorString("warning_interval must be > 0")
	}
	if c.Sim.LogInterval <= 0 {
		e.ErrorString("log_interval must be > 0")
	}
	e.Pop()

	e.Push("airspace")
	if c.Airspace.Width <= 0 || c.Airspace.Height <= 0 {
		e.ErrorString("width and height must be > 0")
	}
	if c.Airspace.MaxAltitude <= 0 {
		e.ErrorString("max_altitude must be > 0")
	}
	if c.Airspace.RequiredPoints <= 0 {
		e.ErrorString("required_points must be > 0")
	}
	if c.Airspace.AltitudeTolerance < 0 {
		e.ErrorString("altitude_tolerance must be >= 0")
	}
	e.Pop()

	e.Push("aircraft")
	ac := c.Aircraft
	if ac.MaxThrottle <= 0 {
		e.ErrorString("max_throttle must be > 0")
	} else if ac.Throttle < 0 || ac.Throttle > ac.MaxThrottle {
		e.ErrorString("throttle %g outside [0, %g]", ac.Throttle, ac.MaxThrottle)
	}
	if ac.MaxRollLevel <= 0 {
		e.ErrorString("max_roll_level must be > 0")
	}
	if ac.Footprint <= 0 {
		e.ErrorString("footprint must be > 0")
	}
	if ac.WorldScale <= 0 {
		e.ErrorString("world_scale must be > 0")
	}
	if ac.Gravity > 0 {
		e.ErrorString("gravity must be <= 0")
	}
	if ac.Speed < 0 {
		e.ErrorString("speed must be >= 0")
	}
	if ac.Altitude < 0 || ac.Altitude > c.Airspace.MaxAltitude {
		e.ErrorString("altitude %g outside [0, %g]", ac.Altitude, c.Airspace.MaxAltitude)
	}
	if ac.X != nil && (*ac.X < 0 || *ac.X > c.Airspace.Width) {
		e.ErrorString("x %g outside the airspace", *ac.X)
	}
	if ac.Z != nil && (*ac.Z < 0 || *ac.Z > c.Airspace.Height) {
		e.ErrorString("z %g outside the airspace", *ac.Z)
	}
	e.Pop()

	e.Push("objectives")
	obj := c.Objectives
	if obj.Size <= 0 || obj.Size >= min(c.Airspace.Width, c.Airspace.Height) {
		e.ErrorString("size %g must be > 0 and smaller than the airspace", obj.Size)
	}
	if obj.AltitudeJitter < 0 {
		e.ErrorString("altitude_jitter must be >= 0")
	}
	if obj.SnapThreshold < obj.FloorAltitude {
		e.ErrorString("snap_threshold must not be below floor_altitude")
	}
	if obj.MaxAttempts <= 0 {
		e.ErrorString("max_attempts must be > 0")
	}
	if _, err := sim.ParseAltitudePolicy(obj.AltitudePolicy); err != nil {
		e.Error(err)
	}
	e.Pop()

	e.Push("controls")
	for _, key := range util.SortedMapKeys(c.Controls.Bindings) {
		action := c.Controls.Bindings[key]
		_, aerr := sim.ParseAxis(action)
		_, cerr := sim.ParseCommand(action)
		if aerr != nil && cerr != nil {
			e.ErrorString("%s: %q is not an axis or a command", key, action)
		}
	}
	if c.Controls.HoldTimeout <= 0 {
		e.ErrorString("hold_timeout must be > 0")
	}
	e.Pop()

	e.Push("hud")
	if _, err := units.ParseSystem(c.HUD.Units); err != nil {
		e.Error(err)
	}
	e.Pop()

	e.Push("telemetry")
	if c.Telemetry.Enable && c.Telemetry.MaxSizeMB <= 0 {
		e.ErrorString("max_size_mb must be > 0")
	}
	e.Pop()

	e.Push("record")
	if c.Record.Enable && c.Record.Path == "" {
		e.ErrorString("path is required when record.enable is true")
	}
	e.Pop()
}

// SessionParams returns the simulation parameters the configuration
// describes.
func (c *Config) SessionParams() sim.SessionParams {
	p := sim.DefaultSessionParams()

	p.TickRate = c.Sim.TickRate
	if c.Sim.Seed != 0 {
		p.Seed = c.Sim.Seed
	}
	p.WarningInterval = c.Sim.WarningInterval
	p.LogInterval = c.Sim.LogInterval

	p.Airspace = sim.AirspaceParams{
		Width:             c.Airspace.Width,
		Height:            c.Airspace.Height,
		MaxAltitude:       c.Airspace.MaxAltitude,
		RequiredPoints:    c.Airspace.RequiredPoints,
		AltitudeTolerance: c.Airspace.AltitudeTolerance,
	}

	policy, _ := sim.ParseAltitudePolicy(c.Objectives.AltitudePolicy)
	p.Objectives = sim.ObjectiveParams{
		Size:           c.Objectives.Size,
		AltitudeJitter: c.Objectives.AltitudeJitter,
		FloorAltitude:  c.Objectives.FloorAltitude,
		SnapThreshold:  c.Objectives.SnapThreshold,
		SnapAltitude:   c.Objectives.SnapAltitude,
		MaxAttempts:    c.Objectives.MaxAttempts,
		Policy:         policy,
	}
	p.ObjectiveMarker = c.Objectives.Marker

	ac := c.Aircraft
	center := p.Airspace.Bounds().Center()
	x, z := center[0], center[1]
	if ac.X != nil {
		x = *ac.X
	}
	if ac.Z != nil {
		z = *ac.Z
	}
	p.Player = sim.AircraftSpec{
		Performance: sim.Performance{
			MaxSpeed:     ac.MaxSpeed,
			DamageSpeed:  ac.DamageSpeed,
			MaxThrottle:  ac.MaxThrottle,
			MaxRollLevel: ac.MaxRollLevel,
			Footprint:    ac.Footprint,
			WorldScale:   ac.WorldScale,
		},
		Marker:   ac.Marker,
		X:        x,
		Z:        z,
		Altitude: ac.Altitude,
		Heading:  ac.Heading,
		Speed:    ac.Speed,
		Throttle: ac.Throttle,
		Gravity:  ac.Gravity,
	}
	return p
}
