// units/units.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package units formats simulation quantities, which are all SI, for
// display in the unit system the pilot has chosen.
package units

import (
	"fmt"
	"strings"
)

type Quantity int

const (
	Speed Quantity = iota
	Distance
	NumQuantities
)

type unit struct {
	name     string
	scale    float64
	decimals int
}

type System int

const (
	SI System = iota
	Metric
	Imperial
	NumSystems
)

var systems = [NumSystems]struct {
	name  string
	units [NumQuantities]unit
}{
	SI: {"SI", [NumQuantities]unit{
		Speed:    {"M/S", 1, 1},
		Distance: {"M", 1, 0},
	}},
	Metric: {"Metric", [NumQuantities]unit{
		Speed:    {"KM/H", 3.6, 0},
		Distance: {"KM", .001, 3},
	}},
	Imperial: {"Imperial", [NumQuantities]unit{
		Speed:    {"FT/S", 1 / 0.3048, 0},
		Distance: {"FT", 1 / 0.3048, 0},
	}},
}

func (s System) String() string {
	return systems[s].name
}

func ParseSystem(name string) (System, error) {
	for s := range NumSystems {
		if strings.EqualFold(name, systems[s].name) {
			return s, nil
		}
	}
	return SI, fmt.Errorf("%s: unknown unit system", name)
}

// Next returns the system after s, wrapping around after the last one.
func (s System) Next() System {
	return (s + 1) % NumSystems
}

// Convert returns v, given in SI units, in the system's unit for q.
func (s System) Convert(q Quantity, v float64) float64 {
	return v * systems[s].units[q].scale
}

func (s System) Unit(q Quantity) string {
	return systems[s].units[q].name
}

// Format returns v converted to the system's units and rounded to its
// display precision, followed by the unit name.
func (s System) Format(q Quantity, v float64) string {
	return fmt.Sprintf("%.*f %s", systems[s].units[q].decimals, s.Convert(q, v), s.Unit(q))
}

// Label is Format with a leading label, as in "ALT: 1800 M".
func (s System) Label(label string, q Quantity, v float64) string {
	return label + ": " + s.Format(q, v)
}
