// sim/stage.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"

	"github.com/slightfim/fimulator/log"
)

type Stage int

const (
	StageStart Stage = iota
	StageFlight
	StageEnd
	NumStages
)

func (s Stage) String() string {
	return []string{"start", "flight", "end"}[s]
}

// stageTransitions lists the stages reachable from each stage. Any stage
// may also be aborted to StageEnd.
var stageTransitions = [NumStages][]Stage{
	StageStart:  {StageFlight},
	StageFlight: {StageEnd},
	StageEnd:    nil,
}

// StageMachine sequences a session through its stages. Entry actions
// registered with OnEnter run exactly once, when their stage is entered.
type StageMachine struct {
	current Stage
	onEnter [NumStages][]func(from Stage)
	lg      *log.Logger
}

func NewStageMachine(lg *log.Logger) *StageMachine {
	return &StageMachine{current: StageStart, lg: lg}
}

func (m *StageMachine) Current() Stage {
	return m.current
}

func (m *StageMachine) OnEnter(s Stage, f func(from Stage)) {
	m.onEnter[s] = append(m.onEnter[s], f)
}

// Transition moves to the given stage if that is allowed from the
// current one and runs its entry actions.
func (m *StageMachine) Transition(to Stage) error {
	from := m.current
	allowed := false
	for _, s := range stageTransitions[from] {
		allowed = allowed || s == to
	}
	if !allowed {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidStage)
	}
	m.enter(from, to)
	return nil
}

// Abort moves straight to StageEnd from wherever the machine is. It
// returns false if the machine had already ended.
func (m *StageMachine) Abort() bool {
	if m.current == StageEnd {
		return false
	}
	m.enter(m.current, StageEnd)
	return true
}

func (m *StageMachine) enter(from, to Stage) {
	m.lg.Info("stage transition", slog.String("from", from.String()), slog.String("to", to.String()))
	m.current = to
	for _, f := range m.onEnter[to] {
		f(from)
	}
}
