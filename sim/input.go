// sim/input.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"sync"
)

type InputKind int

const (
	AxisPressed InputKind = iota
	AxisReleased
	CommandIssued
)

// Input is one control event from an input provider. Inputs are queued
// and applied only at the start of the next tick.
type Input struct {
	AircraftID int
	Kind       InputKind
	Axis       Axis
	Command    Command
}

func (in Input) LogValue() slog.Value {
	attrs := []slog.Attr{slog.Int("aircraft", in.AircraftID)}
	switch in.Kind {
	case AxisPressed:
		attrs = append(attrs, slog.String("pressed", in.Axis.String()))
	case AxisReleased:
		attrs = append(attrs, slog.String("released", in.Axis.String()))
	case CommandIssued:
		attrs = append(attrs, slog.String("command", in.Command.String()))
	}
	return slog.GroupValue(attrs...)
}

// InputQueue collects inputs from any goroutine until the tick goroutine
// drains them.
type InputQueue struct {
	mu     sync.Mutex
	inputs []Input
}

func (q *InputQueue) Push(in Input) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.inputs = append(q.inputs, in)
}

// Drain returns the queued inputs in the order they were pushed and
// empties the queue.
func (q *InputQueue) Drain() []Input {
	q.mu.Lock()
	defer q.mu.Unlock()

	in := q.inputs
	q.inputs = nil
	return in
}
