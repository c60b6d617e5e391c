// sim/session_test.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"slices"
	"testing"
	"time"

	"github.com/slightfim/fimulator/math"
)

type frameCollector struct {
	frames []Frame
}

func (c *frameCollector) WriteFrame(f Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

type announcements struct {
	kinds [][]WarningKind
}

func (a *announcements) Announce(id int, kinds []WarningKind) {
	a.kinds = append(a.kinds, kinds)
}

func makeTestSession(t *testing.T) *Session {
	t.Helper()
	p := DefaultSessionParams()
	p.Seed = 1234
	s, err := NewSession(p, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func command(s *Session, c Command) {
	s.Enqueue(Input{AircraftID: s.PlayerID, Kind: CommandIssued, Command: c})
}

func startFlight(t *testing.T, s *Session) {
	t.Helper()
	command(s, CommandStart)
	if err := s.Tick(s.TickDuration()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if s.Stage() != StageFlight {
		t.Fatalf("stage %s after start command", s.Stage())
	}
}

func TestSessionStartsIdle(t *testing.T) {
	s := makeTestSession(t)
	if s.Stage() != StageStart {
		t.Fatalf("initial stage %s", s.Stage())
	}
	if len(s.Airspace.Objectives) != 1 {
		t.Errorf("%d objectives at start, expected 1", len(s.Airspace.Objectives))
	}

	for range 10 {
		if err := s.Tick(s.TickDuration()); err != nil {
			t.Fatal(err)
		}
	}
	if s.TickCount() != 0 || s.Player().Speed != 0 {
		t.Errorf("simulation ran before the flight started")
	}
}

func TestSessionFirstTick(t *testing.T) {
	s := makeTestSession(t)
	startFlight(t, s)

	ac := s.Player()
	if s.TickCount() != 1 {
		t.Errorf("tick count %d, expected 1", s.TickCount())
	}
	if math.Abs(ac.Acceleration-10) > 1e-9 {
		t.Errorf("acceleration %f, expected 10", ac.Acceleration)
	}
	if math.Abs(ac.Speed-10./60) > 1e-6 {
		t.Errorf("speed %f, expected %f", ac.Speed, 10./60)
	}
	if ac.Altitude != 1800 {
		t.Errorf("altitude %f, expected 1800", ac.Altitude)
	}
}

func TestSessionStep(t *testing.T) {
	s := makeTestSession(t)
	startFlight(t, s)

	if n, err := s.Step(40 * time.Millisecond); err != nil || n != 2 {
		t.Errorf("step 40ms: ran %d ticks (err %v), expected 2", n, err)
	}
	if n, _ := s.Step(10 * time.Millisecond); n != 1 {
		t.Errorf("step 10ms with carried time: ran %d ticks, expected 1", n)
	}
	if n, _ := s.Step(time.Millisecond); n != 0 {
		t.Errorf("step 1ms: ran %d ticks, expected 0", n)
	}
	if n, _ := s.Step(time.Hour); n != maxCatchUpTicks {
		t.Errorf("step 1h: ran %d ticks, expected %d", n, maxCatchUpTicks)
	}
	if s.TickCount() != 4+maxCatchUpTicks {
		t.Errorf("tick count %d, expected %d", s.TickCount(), 4+maxCatchUpTicks)
	}
}

func TestSessionControls(t *testing.T) {
	s := makeTestSession(t)
	startFlight(t, s)
	ac := s.Player()

	s.Enqueue(Input{AircraftID: s.PlayerID, Kind: AxisPressed, Axis: ThrottleUp})
	for range 3 {
		s.Tick(s.TickDuration())
	}
	s.Enqueue(Input{AircraftID: s.PlayerID, Kind: AxisReleased, Axis: ThrottleUp})
	s.Tick(s.TickDuration())

	dt := s.TickDuration().Seconds()
	expected := 50 + Ramp(1, dt) + Ramp(2, dt) + Ramp(3, dt)
	if math.Abs(ac.Throttle-expected) > 1e-9 {
		t.Errorf("throttle %f, expected %f", ac.Throttle, expected)
	}

	command(s, CommandThrottle100)
	s.Tick(s.TickDuration())
	if ac.Throttle != 100 {
		t.Errorf("throttle %f after preset, expected 100", ac.Throttle)
	}

	command(s, CommandAutopilot)
	command(s, CommandThrottle25)
	s.Tick(s.TickDuration())
	if !ac.Autopilot || ac.Throttle != 100 {
		t.Errorf("autopilot %v throttle %f, expected engaged with throttle unchanged", ac.Autopilot, ac.Throttle)
	}
	command(s, CommandAutopilot)
	s.Tick(s.TickDuration())
	if ac.Autopilot {
		t.Errorf("autopilot still engaged")
	}
}

func TestSessionPause(t *testing.T) {
	s := makeTestSession(t)
	startFlight(t, s)

	command(s, CommandPause)
	for range 5 {
		s.Tick(s.TickDuration())
	}
	if s.TickCount() != 1 || !s.Paused {
		t.Errorf("tick count %d paused %v; expected the session to be paused at tick 1", s.TickCount(), s.Paused)
	}
	command(s, CommandPause)
	s.Tick(s.TickDuration())
	if s.TickCount() != 2 {
		t.Errorf("tick count %d after resuming, expected 2", s.TickCount())
	}
}

func TestSessionQuit(t *testing.T) {
	s := makeTestSession(t)
	sub := s.Events.Subscribe()
	telemetry := &frameCollector{}
	s.Telemetry = telemetry
	startFlight(t, s)

	command(s, CommandQuit)
	s.Tick(s.TickDuration())
	if !s.Done() || s.Exit != ExitClosed {
		t.Fatalf("stage %s exit %s after quit", s.Stage(), s.Exit)
	}

	// No more ticks once ended.
	n := s.TickCount()
	s.Tick(s.TickDuration())
	if s.TickCount() != n {
		t.Errorf("ticks ran after the session ended")
	}

	var ended []Event
	for _, ev := range sub.Get() {
		if ev.Type == FlightEndedEvent {
			ended = append(ended, ev)
		}
	}
	if len(ended) != 1 || ended[0].Exit != ExitClosed {
		t.Errorf("flight ended events %+v", ended)
	}
	// One frame when the flight starts and one when it ends.
	if len(telemetry.frames) != 2 {
		t.Errorf("%d telemetry frames, expected 2", len(telemetry.frames))
	}
}

func TestSessionQuitFromStart(t *testing.T) {
	s := makeTestSession(t)
	command(s, CommandQuit)
	s.Tick(s.TickDuration())
	if !s.Done() || s.Exit != ExitClosed {
		t.Errorf("stage %s exit %s after quit", s.Stage(), s.Exit)
	}
}

func TestSessionCrash(t *testing.T) {
	s := makeTestSession(t)
	startFlight(t, s)
	s.Player().Health = 0
	s.Tick(s.TickDuration())

	if !s.Done() || s.Exit != ExitCrashed {
		t.Errorf("stage %s exit %s, expected ended and crashed", s.Stage(), s.Exit)
	}
	if r := s.Result(); r.Exit != ExitCrashed || r.Ticks != 2 {
		t.Errorf("result %+v", r)
	}
	if s.Status != ExitCrashed.Reason(0) {
		t.Errorf("status %q", s.Status)
	}
}

func TestSessionCapture(t *testing.T) {
	s := makeTestSession(t)
	sub := s.Events.Subscribe()
	startFlight(t, s)

	ac := s.Player()
	for id := range s.Airspace.Objectives {
		delete(s.Airspace.Objectives, id)
	}
	obj := NewObjective(100, "objectivemarker", ac.X, ac.Z, ac.Altitude, 1000)
	s.Airspace.AddObjective(obj)
	if err := s.Tick(s.TickDuration()); err != nil {
		t.Fatal(err)
	}

	if ac.Points != 1 || len(s.Airspace.Objectives) != 1 {
		t.Errorf("points %d objectives %d, expected 1 and 1", ac.Points, len(s.Airspace.Objectives))
	}
	if s.Status != "Objective captured." {
		t.Errorf("status %q", s.Status)
	}
	captured := slices.ContainsFunc(sub.Get(), func(ev Event) bool {
		_, replaced := s.Airspace.Objectives[ev.NextObjectiveID]
		return ev.Type == ObjectiveCapturedEvent && ev.ObjectiveID == 100 && ev.AircraftID == ac.ID && replaced
	})
	if !captured {
		t.Errorf("no capture event posted")
	}
	if snap := s.Snapshot(); snap.ClosestObjective() == nil {
		t.Errorf("no objective after capture")
	}
}

func TestSessionTelemetryAndWarnings(t *testing.T) {
	s := makeTestSession(t)
	telemetry := &frameCollector{}
	recorder := &frameCollector{}
	ann := &announcements{}
	s.Telemetry, s.Recorder, s.Announcer = telemetry, recorder, ann
	startFlight(t, s)

	// A little over ten seconds of flight; the aircraft starts slow so the
	// stall warning holds throughout.
	for range 609 {
		if err := s.Tick(s.TickDuration()); err != nil {
			t.Fatal(err)
		}
	}
	if s.Done() {
		t.Fatalf("session ended unexpectedly: %s", s.Exit)
	}

	// Flight start, then every 5s.
	if len(telemetry.frames) != 3 {
		t.Errorf("%d telemetry frames, expected 3", len(telemetry.frames))
	}
	if len(recorder.frames) != 610 {
		t.Errorf("%d recorder frames, expected 610", len(recorder.frames))
	}
	if f := recorder.frames[len(recorder.frames)-1]; f.Tick != 610 || len(f.Aircraft) != 1 || len(f.Objectives) != 1 {
		t.Errorf("last frame: tick %d, %d aircraft, %d objectives", f.Tick, len(f.Aircraft), len(f.Objectives))
	}

	// Every two seconds.
	if len(ann.kinds) != 5 {
		t.Errorf("%d announcements, expected 5", len(ann.kinds))
	}
	for _, k := range ann.kinds {
		if !slices.Contains(k, StallWarning) {
			t.Errorf("announcement %v does not include stall", k)
		}
	}
}

func TestSessionSnapshotIsolated(t *testing.T) {
	s := makeTestSession(t)
	startFlight(t, s)

	snap := s.Snapshot()
	if snap.Stage != StageFlight || snap.Player() == nil {
		t.Fatalf("snapshot stage %s player %v", snap.Stage, snap.Player())
	}
	snap.Player().Altitude = -1
	for id := range snap.Objectives {
		delete(snap.Objectives, id)
	}

	if s.Player().Altitude == -1 || len(s.Airspace.Objectives) != 1 {
		t.Errorf("changes to the snapshot reached the session")
	}
}

func TestSessionJoinAircraft(t *testing.T) {
	s := makeTestSession(t)
	spec := s.Params.Player
	spec.X, spec.Z = 5000, 5000

	if _, err := s.JoinAircraft(4, spec); err != nil {
		t.Fatal(err)
	}
	if _, err := s.JoinAircraft(4, spec); err == nil {
		t.Errorf("expected error joining with a duplicate id")
	}
	ac, err := s.AddAircraft(spec)
	if err != nil {
		t.Fatal(err)
	}
	if ac.ID != 5 {
		t.Errorf("allocated id %d, expected 5", ac.ID)
	}
	if _, ok := s.Warnings[4]; !ok {
		t.Errorf("no warning set for joined aircraft")
	}
}

func TestSessionAutopilotIgnoresHeldKeys(t *testing.T) {
	s := makeTestSession(t)
	startFlight(t, s)
	ac := s.Player()
	cs := s.Controls[s.PlayerID]

	command(s, CommandAutopilot)
	s.Enqueue(Input{AircraftID: s.PlayerID, Kind: AxisPressed, Axis: RollLeft})
	for range 5 {
		s.Tick(s.TickDuration())
	}
	if cs.Held[RollLeft] || cs.Ticks[RollLeft] != 0 {
		t.Errorf("roll- held %v for %d ticks under the autopilot", cs.Held[RollLeft], cs.Ticks[RollLeft])
	}

	command(s, CommandAutopilot)
	s.Enqueue(Input{AircraftID: s.PlayerID, Kind: AxisPressed, Axis: RollLeft})
	s.Tick(s.TickDuration())
	if ac.Autopilot {
		t.Fatalf("autopilot still engaged")
	}
	if cs.Ticks[RollLeft] != 1 {
		t.Errorf("roll- held for %d ticks after disengaging, expected 1", cs.Ticks[RollLeft])
	}
	if expected := -Ramp(1, s.TickDuration().Seconds()); math.Abs(ac.RollLevel-expected) > 1e-12 {
		t.Errorf("roll level %f, expected %f", ac.RollLevel, expected)
	}
}

func TestSessionJoinedAircraftLeaves(t *testing.T) {
	s := makeTestSession(t)
	spec := s.Params.Player
	spec.X = -5000
	if _, err := s.JoinAircraft(4, spec); err != nil {
		t.Fatal(err)
	}
	sub := s.Events.Subscribe()
	startFlight(t, s)

	if _, ok := s.Airspace.Aircraft[4]; ok {
		t.Errorf("aircraft 4 still in the airspace after leaving it")
	}
	if _, ok := s.Warnings[4]; ok {
		t.Errorf("aircraft 4 still has warnings")
	}
	if s.Done() {
		t.Errorf("session ended with another aircraft's flight")
	}
	ended := slices.ContainsFunc(sub.Get(), func(ev Event) bool {
		return ev.Type == FlightEndedEvent && ev.AircraftID == 4 && ev.Exit == ExitLeftArea
	})
	if !ended {
		t.Errorf("no flight ended event for aircraft 4")
	}

	// Inputs for it are dropped.
	s.Enqueue(Input{AircraftID: 4, Kind: AxisPressed, Axis: RollLeft})
	if err := s.Tick(s.TickDuration()); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshotClosestObjective(t *testing.T) {
	s := makeTestSession(t)
	ac := s.Player()
	for id := range s.Airspace.Objectives {
		delete(s.Airspace.Objectives, id)
	}
	s.Airspace.AddObjective(NewObjective(100, "objectivemarker", ac.X+5000, ac.Z, 3000, 500))
	s.Airspace.AddObjective(NewObjective(101, "objectivemarker", ac.X, ac.Z-1000, 3000, 500))

	snap := s.Snapshot()
	if obj := snap.ClosestObjective(); obj == nil || obj.ID != 101 {
		t.Errorf("closest objective %v, expected 101", obj)
	}
	if s.Airspace.ClosestObjective(ac).ID != 101 {
		t.Errorf("airspace and snapshot disagree on the closest objective")
	}

	snap.Objectives = nil
	if obj := snap.ClosestObjective(); obj != nil {
		t.Errorf("closest objective %v with none left", obj)
	}
}
