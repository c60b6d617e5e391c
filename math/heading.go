// math/heading.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"
)

// NormalizeHeading wraps a heading in degrees into the half-open range
// (-180, 180]. 180 stays 180 and -180 becomes 180.
func NormalizeHeading(h float64) float64 {
	if h > -180 && h <= 180 {
		return h
	}
	return h - 360*gomath.Ceil((h-180)/360)
}

// NormalizeHeading360 wraps a heading into [0, 360), the range shown to
// pilots.
func NormalizeHeading360(h float64) float64 {
	h = gomath.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}
