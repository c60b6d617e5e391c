// sim/errors.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
)

var (
	ErrDuplicateAircraft  = errors.New("Aircraft with that id already in airspace")
	ErrInvalidStage       = errors.New("Invalid stage transition")
	ErrObjectivePlacement = errors.New("Unable to place objective")
	ErrUnknownCommand     = errors.New("Unknown command")
)
