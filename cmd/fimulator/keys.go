// cmd/fimulator/keys.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/slightfim/fimulator/sim"
	"github.com/slightfim/fimulator/util"

	"github.com/gdamore/tcell/v2"
)

var namedKeys = map[string]tcell.Key{
	"Left":      tcell.KeyLeft,
	"Right":     tcell.KeyRight,
	"Up":        tcell.KeyUp,
	"Down":      tcell.KeyDown,
	"Enter":     tcell.KeyEnter,
	"Escape":    tcell.KeyEscape,
	"Tab":       tcell.KeyTab,
	"Backspace": tcell.KeyBackspace2,
	"Pause":     tcell.KeyPause,
	"Insert":    tcell.KeyInsert,
	"Delete":    tcell.KeyDelete,
	"Home":      tcell.KeyHome,
	"End":       tcell.KeyEnd,
	"PgUp":      tcell.KeyPgUp,
	"PgDn":      tcell.KeyPgDn,
}

func init() {
	for i := range 12 {
		namedKeys[fmt.Sprintf("F%d", i+1)] = tcell.KeyF1 + tcell.Key(i)
	}
}

// action is what a key is bound to: either an axis, which is held, or a
// command, which is issued once per press.
type action struct {
	isAxis  bool
	axis    sim.Axis
	command sim.Command
}

type keyBindings struct {
	keys  map[tcell.Key]action
	runes map[rune]action
}

// parseBindings resolves the configured key names. Single characters
// bind that character; anything else must be one of the named keys.
func parseBindings(b map[string]string) (keyBindings, error) {
	kb := keyBindings{keys: make(map[tcell.Key]action), runes: make(map[rune]action)}

	var e util.ErrorLogger
	e.Push("controls")
	for _, name := range util.SortedMapKeys(b) {
		var act action
		if a, err := sim.ParseAxis(b[name]); err == nil {
			act = action{isAxis: true, axis: a}
		} else if c, err := sim.ParseCommand(b[name]); err == nil {
			act = action{command: c}
		} else {
			e.ErrorString("%s: %q is not an axis or a command", name, b[name])
			continue
		}

		if k, ok := namedKeys[name]; ok {
			kb.keys[k] = act
		} else if r, n := utf8.DecodeRuneInString(name); n == len(name) && r != utf8.RuneError {
			kb.runes[r] = act
		} else {
			e.ErrorString("%s: unknown key", name)
		}
	}
	e.Pop()

	return kb, e.Err()
}

// lookup returns the action bound to a key event's key and rune.
func (kb keyBindings) lookup(key tcell.Key, r rune) (action, bool) {
	if key == tcell.KeyRune {
		act, ok := kb.runes[r]
		return act, ok
	}
	act, ok := kb.keys[key]
	return act, ok
}

// holdTracker turns the key repeats a terminal delivers into press and
// release events: an axis is pressed on its first key event and released
// once no repeat has arrived for the timeout.
type holdTracker struct {
	mu       sync.Mutex
	timeout  time.Duration
	lastSeen [sim.NumAxes]time.Time
	held     [sim.NumAxes]bool
}

func newHoldTracker(timeout time.Duration) *holdTracker {
	return &holdTracker{timeout: timeout}
}

// Key records a key event for the axis at the given time. It returns true
// if the axis was not already held.
func (h *holdTracker) Key(a sim.Axis, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastSeen[a] = now
	pressed := !h.held[a]
	h.held[a] = true
	return pressed
}

// Expired returns the held axes whose keys have not repeated within the
// timeout and marks them released.
func (h *holdTracker) Expired(now time.Time) []sim.Axis {
	h.mu.Lock()
	defer h.mu.Unlock()

	var released []sim.Axis
	for a := range sim.NumAxes {
		if h.held[a] && now.Sub(h.lastSeen[a]) > h.timeout {
			h.held[a] = false
			released = append(released, a)
		}
	}
	return released
}

// ReleaseAll releases everything; it's used when the autopilot takes
// over, which drops held keys in the session as well.
func (h *holdTracker) ReleaseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.held = [sim.NumAxes]bool{}
}
