// cmd/fimulator/keys_test.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/slightfim/fimulator/config"
	"github.com/slightfim/fimulator/log"
	"github.com/slightfim/fimulator/sim"

	"github.com/gdamore/tcell/v2"
)

func TestParseBindings(t *testing.T) {
	kb, err := parseBindings(config.DefaultBindings())
	if err != nil {
		t.Fatalf("default bindings: %v", err)
	}

	if act, ok := kb.keys[tcell.KeyLeft]; !ok || !act.isAxis || act.axis != sim.RollLeft {
		t.Errorf("Left: got %+v", act)
	}
	if act, ok := kb.keys[tcell.KeyF3]; !ok || act.isAxis || act.command != sim.CommandThrottle25 {
		t.Errorf("F3: got %+v", act)
	}
	if act, ok := kb.runes['z']; !ok || act.command != sim.CommandAutopilot {
		t.Errorf("z: got %+v", act)
	}

	if act, ok := kb.lookup(tcell.KeyRune, 'u'); !ok || act.command != sim.CommandCycleUnits {
		t.Errorf("lookup u: got %+v, %v", act, ok)
	}
	if act, ok := kb.lookup(tcell.KeyDown, 0); !ok || act.axis != sim.PitchUp {
		t.Errorf("lookup Down: got %+v, %v", act, ok)
	}
	if _, ok := kb.lookup(tcell.KeyRune, 'x'); ok {
		t.Errorf("lookup of an unbound key succeeded")
	}
}

func TestParseBindingsErrors(t *testing.T) {
	for _, b := range []map[string]string{
		{"Left": "loop"},
		{"Hyper": "roll-"},
		{"ab": "pause"},
	} {
		if _, err := parseBindings(b); err == nil {
			t.Errorf("%v: expected error", b)
		}
	}
}

func TestHoldTracker(t *testing.T) {
	h := newHoldTracker(500 * time.Millisecond)
	t0 := time.Now()

	if !h.Key(sim.RollLeft, t0) {
		t.Errorf("first key event should press")
	}
	// Repeats keep it held.
	for i := 1; i <= 10; i++ {
		at := t0.Add(time.Duration(i) * 100 * time.Millisecond)
		if h.Key(sim.RollLeft, at) {
			t.Errorf("repeat %d pressed again", i)
		}
		if released := h.Expired(at); len(released) != 0 {
			t.Errorf("released %v during repeats", released)
		}
	}

	if released := h.Expired(t0.Add(time.Second + 400*time.Millisecond)); len(released) != 0 {
		t.Errorf("released %v before the timeout", released)
	}
	released := h.Expired(t0.Add(time.Second + 600*time.Millisecond))
	if !slices.Equal(released, []sim.Axis{sim.RollLeft}) {
		t.Errorf("released %v, expected roll-", released)
	}
	if released := h.Expired(t0.Add(time.Hour)); len(released) != 0 {
		t.Errorf("released %v twice", released)
	}

	h.Key(sim.ThrottleUp, t0)
	h.ReleaseAll()
	if !h.Key(sim.ThrottleUp, t0) {
		t.Errorf("key after ReleaseAll should press")
	}
}

func TestRunHeadless(t *testing.T) {
	p := sim.DefaultSessionParams()
	p.Seed = 7
	s, err := sim.NewSession(p, nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	lg := log.NewWithWriter(&buf, slog.LevelInfo)
	if err := runHeadless(context.Background(), s, 120, true, lg); err != nil {
		t.Fatal(err)
	}
	if !s.Done() || s.Exit != sim.ExitClosed {
		t.Errorf("stage %s exit %s, expected a closed session", s.Stage(), s.Exit)
	}
	if s.TickCount() != 120 {
		t.Errorf("ran %d ticks, expected 120", s.TickCount())
	}
	if !s.Player().Autopilot {
		t.Errorf("autopilot not engaged")
	}
	for _, logged := range []string{`"msg":"flight event"`, `"type":"StageChanged"`, `"type":"FlightEnded"`} {
		if !strings.Contains(buf.String(), logged) {
			t.Errorf("log does not contain %s", logged)
		}
	}
}

func TestHeadingGlyph(t *testing.T) {
	for _, c := range []struct {
		h float64
		r rune
	}{{0, '^'}, {90, '>'}, {180, 'v'}, {-90, '<'}, {-176, 'v'}, {44, '/'}, {-135, '/'}} {
		if g := headingGlyph(c.h); g != c.r {
			t.Errorf("heading %f: got %c, expected %c", c.h, g, c.r)
		}
	}
}
