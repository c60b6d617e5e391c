// math/core.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

// Radians converts an angle expressed in degrees to radians.
func Radians(d float64) float64 {
	return d / 180 * gomath.Pi
}

// SinCos returns the sine and cosine of an angle given in degrees.
func SinCos(deg float64) (float64, float64) {
	return gomath.Sincos(Radians(deg))
}

func Sqrt(a float64) float64 {
	return gomath.Sqrt(a)
}

func Pow(a, b float64) float64 {
	return gomath.Pow(a, b)
}

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Sqr[V constraints.Integer | constraints.Float](v V) V { return v * v }

func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

// Approach moves x toward target by at most step and never overshoots.
func Approach(x, target, step float64) float64 {
	if x < target {
		return min(x+step, target)
	} else if x > target {
		return max(x-step, target)
	}
	return x
}
