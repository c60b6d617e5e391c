// cmd/fimulator/terminal.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/slightfim/fimulator/log"
	"github.com/slightfim/fimulator/math"
	"github.com/slightfim/fimulator/sim"
	"github.com/slightfim/fimulator/units"
	"github.com/slightfim/fimulator/util"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"
)

var (
	styleDefault = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleHeader  = styleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleLabel   = styleDefault.Foreground(tcell.ColorGray)
	styleWarning = styleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow).Bold(true)
	styleDanger  = styleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed).Bold(true)
	styleStatus  = styleDefault.Foreground(tcell.ColorLime)
	styleBorder  = styleDefault.Foreground(tcell.ColorDarkGray)
	styleMarker  = styleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleTarget  = styleDefault.Foreground(tcell.ColorFuchsia).Bold(true)
)

const endScreenDuration = 4 * time.Second

// terminal is the interactive front-end: one goroutine reads keys and
// queues inputs, another runs the session and draws the HUD.
type terminal struct {
	screen    tcell.Screen
	session   *sim.Session
	bindings  keyBindings
	holds     *holdTracker
	endScreen time.Duration

	// Only used by the tick goroutine.
	events   *sim.EventsSubscription
	messages messageLog

	mu    sync.Mutex
	units units.System

	lg *log.Logger
}

func newTerminal(screen tcell.Screen, s *sim.Session, kb keyBindings, holdTimeout time.Duration,
	lg *log.Logger) *terminal {
	t := &terminal{
		screen:    screen,
		session:   s,
		bindings:  kb,
		holds:     newHoldTracker(holdTimeout),
		endScreen: endScreenDuration,
		events:    s.Events.Subscribe(),
		messages:  messageLog{playerID: s.PlayerID, tickDuration: s.TickDuration()},
		lg:        lg,
	}
	s.Announcer = t
	return t
}

// Announce implements sim.Announcer; there's no audio, so the terminal
// bell stands in for the warning sounds. The HUD shows which warnings
// are active.
func (t *terminal) Announce(aircraftID int, kinds []sim.WarningKind) {
	if aircraftID != t.session.PlayerID {
		return
	}
	if err := t.screen.Beep(); err != nil {
		t.lg.Debug("beep", slog.Any("error", err))
	}
}

func (t *terminal) unitSystem() units.System {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.units
}

// Run flies the session until it ends or the context is canceled.
func (t *terminal) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer t.events.Unsubscribe()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		defer t.lg.CatchAndReportCrash(&err)
		return t.inputLoop(ctx)
	})
	eg.Go(func() (err error) {
		defer t.lg.CatchAndReportCrash(&err)
		// Wake up the input loop so that it notices we're done; the
		// context must already be canceled when it does.
		defer t.screen.PostEvent(tcell.NewEventInterrupt(nil))
		defer cancel()
		return t.tickLoop(ctx)
	})
	return eg.Wait()
}

func (t *terminal) inputLoop(ctx context.Context) error {
	id := t.session.PlayerID
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return nil
		}

		switch ev := ev.(type) {
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		case *tcell.EventResize:
			t.screen.Sync()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC {
				t.session.Enqueue(sim.Input{AircraftID: id, Kind: sim.CommandIssued, Command: sim.CommandQuit})
				continue
			}

			act, ok := t.bindings.lookup(ev.Key(), ev.Rune())
			if !ok {
				continue
			}
			if act.isAxis {
				if t.holds.Key(act.axis, time.Now()) {
					t.session.Enqueue(sim.Input{AircraftID: id, Kind: sim.AxisPressed, Axis: act.axis})
				}
				continue
			}

			switch act.command {
			case sim.CommandCycleUnits:
				// Presentation only; the session never sees it.
				t.mu.Lock()
				t.units = t.units.Next()
				t.mu.Unlock()
			case sim.CommandAutopilot:
				t.holds.ReleaseAll()
				fallthrough
			default:
				t.session.Enqueue(sim.Input{AircraftID: id, Kind: sim.CommandIssued, Command: act.command})
			}
		}
	}
}

func (t *terminal) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(t.session.TickDuration())
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, a := range t.holds.Expired(now) {
				t.session.Enqueue(sim.Input{AircraftID: t.session.PlayerID, Kind: sim.AxisReleased, Axis: a})
			}

			if _, err := t.session.Step(now.Sub(last)); err != nil {
				return err
			}
			last = now
			t.messages.update(t.events.Get())

			snap := t.session.Snapshot()
			t.render(&snap)

			if snap.Stage == sim.StageEnd {
				// Leave the result up for a moment.
				select {
				case <-ctx.Done():
				case <-time.After(t.endScreen):
				}
				return nil
			}
		}
	}
}

///////////////////////////////////////////////////////////////////////////
// HUD

func (t *terminal) render(snap *sim.Snapshot) {
	t.screen.Clear()
	width, height := t.screen.Size()
	u := t.unitSystem()

	drawText(t.screen, 0, 0, width, styleHeader, " FIMULATOR ")
	drawText(t.screen, 12, 0, width-12, styleLabel, fmt.Sprintf("units: %s   tick %d   %s", u, snap.Tick,
		formatDuration(snap.SimTime)))

	switch snap.Stage {
	case sim.StageStart:
		drawText(t.screen, 2, 2, width-2, styleStatus, "Press Enter to take off, Escape to quit.")
		t.drawHelp(height - 1)
		t.screen.Show()
		return
	case sim.StageEnd:
		drawText(t.screen, 2, 2, width-2, styleHeader, snap.Exit.Title())
		drawText(t.screen, 2, 3, width-2, styleStatus, t.messages.status)
		t.screen.Show()
		return
	}

	ac := snap.Player()
	lines := []struct {
		label, value string
	}{
		{"X", u.Format(units.Distance, ac.X)},
		{"Z", u.Format(units.Distance, ac.Z)},
		{"ALT", u.Format(units.Distance, ac.Altitude)},
		{"SPD", u.Format(units.Speed, ac.Speed)},
		{"V/S", u.Format(units.Speed, ac.TotalVerticalVelocity())},
		{"SINK", u.Format(units.Speed, -ac.Gravity)},
		{"THR", fmt.Sprintf("%.0f%%", ac.Throttle)},
		{"HDG", fmt.Sprintf("%03.0f", math.NormalizeHeading360(ac.Heading))},
		{"PITCH", fmt.Sprintf("%+.0f", ac.PitchDegrees())},
		{"ROLL", fmt.Sprintf("%+.1f", ac.RollDegrees())},
		{"HEALTH", fmt.Sprintf("%.1f", ac.Health)},
		{"POINTS", fmt.Sprintf("%d / %d", ac.Points, snap.Airspace.RequiredPoints)},
		{"AUTO", map[bool]string{true: "ON", false: "off"}[ac.Autopilot]},
	}
	for i, l := range lines {
		drawText(t.screen, 2, 2+i, 8, styleLabel, l.label)
		drawText(t.screen, 10, 2+i, 16, styleDefault, l.value)
	}

	row := 3 + len(lines)
	if obj := snap.ClosestObjective(); obj != nil {
		d := math.Distance2f(ac.Position(), obj.Position())
		drawText(t.screen, 2, row, width-2, styleLabel, fmt.Sprintf("objective %s away, altitude %s",
			u.Format(units.Distance, d), u.Format(units.Distance, obj.Altitude)))
		row++
	}

	ws := snap.Warnings[snap.PlayerID]
	active := util.FilterSlice(allWarningKinds(), func(k sim.WarningKind) bool { return ws.Active(k) })
	col := 2
	for _, k := range active {
		style := styleWarning
		if k == sim.PullUpWarning || k == sim.TerrainWarning {
			style = styleDanger
		}
		label := " " + warningLabel(k) + " "
		drawText(t.screen, col, row, len(label), style, label)
		col += len(label) + 1
	}
	row++

	if snap.Paused {
		drawText(t.screen, 2, row, width-2, styleWarning, " PAUSED ")
	} else {
		drawText(t.screen, 2, row, width-2, styleStatus, t.messages.status)
	}
	for i, msg := range t.messages.recent {
		drawText(t.screen, 2, row+2+i, 26, styleLabel, msg)
	}

	t.drawMap(snap, 30, 2, width-32, height-5)
	t.drawHelp(height - 1)
	t.screen.Show()
}

// drawMap draws the airspace seen from above in the given box, with the
// objectives and the player's aircraft.
func (t *terminal) drawMap(snap *sim.Snapshot, x0, y0, w, h int) {
	if w < 4 || h < 4 {
		return
	}
	for x := x0; x < x0+w; x++ {
		t.screen.SetContent(x, y0, '-', nil, styleBorder)
		t.screen.SetContent(x, y0+h-1, '-', nil, styleBorder)
	}
	for y := y0; y < y0+h; y++ {
		t.screen.SetContent(x0, y, '|', nil, styleBorder)
		t.screen.SetContent(x0+w-1, y, '|', nil, styleBorder)
	}

	bounds := snap.Airspace.Bounds()
	plot := func(px, pz float64, r rune, style tcell.Style) {
		cx := x0 + 1 + int(px/bounds.Width()*float64(w-2))
		cy := y0 + 1 + int(pz/bounds.Height()*float64(h-2))
		if cx > x0 && cx < x0+w-1 && cy > y0 && cy < y0+h-1 {
			t.screen.SetContent(cx, cy, r, nil, style)
		}
	}
	for _, id := range util.SortedMapKeys(snap.Objectives) {
		obj := snap.Objectives[id]
		plot(obj.X, obj.Z, 'O', styleTarget)
	}
	for _, id := range util.SortedMapKeys(snap.Aircraft) {
		ac := snap.Aircraft[id]
		plot(ac.X, ac.Z, headingGlyph(ac.Heading), styleMarker)
	}
}

func (t *terminal) drawHelp(row int) {
	width, _ := t.screen.Size()
	drawText(t.screen, 0, row, width, styleLabel,
		" arrows: fly   F2/F4: throttle   F1/F3/F5: presets   z: autopilot   p: pause   u: units   Esc: quit")
}

func drawText(screen tcell.Screen, x, y, maxWidth int, style tcell.Style, text string) {
	col := 0
	for _, r := range text {
		if col >= maxWidth {
			break
		}
		screen.SetContent(x+col, y, r, nil, style)
		col++
	}
}

func headingGlyph(h float64) rune {
	// 0 is toward -z, which is up the screen.
	return []rune{'^', '/', '>', '\\', 'v', '/', '<', '\\'}[int(math.NormalizeHeading360(h)+22.5)/45%8]
}

func allWarningKinds() []sim.WarningKind {
	kinds := make([]sim.WarningKind, sim.NumWarningKinds)
	for k := range sim.NumWarningKinds {
		kinds[k] = k
	}
	return kinds
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
