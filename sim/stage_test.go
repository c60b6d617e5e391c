// sim/stage_test.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
	"slices"
	"testing"
)

func TestStageMachine(t *testing.T) {
	m := NewStageMachine(nil)
	var entered []string
	record := func(to Stage) func(Stage) {
		return func(from Stage) { entered = append(entered, from.String()+">"+to.String()) }
	}
	m.OnEnter(StageFlight, record(StageFlight))
	m.OnEnter(StageEnd, record(StageEnd))

	if m.Current() != StageStart {
		t.Fatalf("initial stage %s", m.Current())
	}
	if err := m.Transition(StageEnd); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("start -> end: got %v, expected ErrInvalidStage", err)
	}
	if err := m.Transition(StageFlight); err != nil {
		t.Errorf("start -> flight: %v", err)
	}
	if err := m.Transition(StageFlight); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("flight -> flight: got %v, expected ErrInvalidStage", err)
	}
	if err := m.Transition(StageEnd); err != nil {
		t.Errorf("flight -> end: %v", err)
	}
	if err := m.Transition(StageFlight); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("end -> flight: got %v, expected ErrInvalidStage", err)
	}
	if m.Abort() {
		t.Errorf("abort after end should do nothing")
	}

	if expected := []string{"start>flight", "flight>end"}; !slices.Equal(entered, expected) {
		t.Errorf("entry actions ran %v, expected %v", entered, expected)
	}
}

func TestStageMachineAbort(t *testing.T) {
	m := NewStageMachine(nil)
	n := 0
	m.OnEnter(StageEnd, func(from Stage) {
		n++
		if from != StageStart {
			t.Errorf("aborted from %s, expected start", from)
		}
	})
	if !m.Abort() || m.Current() != StageEnd {
		t.Errorf("abort failed; stage %s", m.Current())
	}
	m.Abort()
	if n != 1 {
		t.Errorf("end entry action ran %d times", n)
	}
}
