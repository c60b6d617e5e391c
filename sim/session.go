// sim/session.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/slightfim/fimulator/log"
	"github.com/slightfim/fimulator/rand"
	"github.com/slightfim/fimulator/util"

	"github.com/brunoga/deep"
)

// Steps beyond this many in one call to Step are dropped rather than
// simulated, so that a long stall (e.g., the process was suspended)
// doesn't turn into a burst of physics.
const maxCatchUpTicks = 30

type SessionParams struct {
	TickRate        int // ticks per second
	Seed            int64
	Airspace        AirspaceParams
	Objectives      ObjectiveParams
	ObjectiveMarker string
	Player          AircraftSpec
	WarningInterval time.Duration
	LogInterval     time.Duration
}

func DefaultSessionParams() SessionParams {
	as := DefaultAirspaceParams()
	center := as.Bounds().Center()
	return SessionParams{
		TickRate:        60,
		Seed:            time.Now().UnixNano(),
		Airspace:        as,
		Objectives:      DefaultObjectiveParams(),
		ObjectiveMarker: "objectivemarker",
		Player: AircraftSpec{
			Performance: DefaultPerformance(),
			Marker:      "navmarker",
			X:           center[0],
			Z:           center[1],
			Altitude:    1800,
			Throttle:    50,
		},
		WarningInterval: 2 * time.Second,
		LogInterval:     5 * time.Second,
	}
}

// FrameSink receives flight frames; the telemetry log and the flight
// recorder are both FrameSinks.
type FrameSink interface {
	WriteFrame(f Frame) error
}

// Announcer presents warnings, e.g. by playing a sound for each.
type Announcer interface {
	Announce(aircraftID int, kinds []WarningKind)
}

// Frame is a flat copy of the state of everything in the airspace at the
// end of a tick, with aircraft and objectives in ascending id order.
type Frame struct {
	Tick         int
	TickDuration time.Duration
	SimTime      time.Duration
	Aircraft     []Aircraft
	Objectives   []Objective
	Exit         ExitCode
}

// Snapshot is a deep copy of the session's state for renderers; nothing
// in it is shared with the running session.
type Snapshot struct {
	Tick       int
	SimTime    time.Duration
	Stage      Stage
	Paused     bool
	Exit       ExitCode
	PlayerID   int
	Airspace   AirspaceParams
	Aircraft   map[int]*Aircraft
	Objectives map[int]*Objective
	Warnings   map[int]WarningSet
}

func (s *Snapshot) Player() *Aircraft {
	return s.Aircraft[s.PlayerID]
}

// ClosestObjective returns the objective nearest the player, or nil if
// there are none.
func (s *Snapshot) ClosestObjective() *Objective {
	ac := s.Player()
	if ac == nil {
		return nil
	}
	return closestObjective(ac, s.Objectives)
}

// Session runs one flight: it owns the airspace and everything in it and
// advances it tick by tick. Apart from Enqueue, its methods must all be
// called from a single goroutine.
type Session struct {
	Params   SessionParams
	Airspace *Airspace
	PlayerID int
	Warnings map[int]*WarningSet
	Controls map[int]*ControlState
	Stages   *StageMachine
	Events   *EventStream
	Exit     ExitCode
	Paused   bool
	Status   string

	Telemetry FrameSink
	Recorder  FrameSink
	Announcer Announcer

	inputs       InputQueue
	aircraftIDs  IDAllocator
	objectiveIDs IDAllocator

	tick         int
	simTime      time.Duration
	lastDuration time.Duration
	slop         time.Duration
	sinceWarning time.Duration
	sinceLog     time.Duration

	lg *log.Logger
}

func NewSession(p SessionParams, lg *log.Logger) (*Session, error) {
	s := &Session{
		Params:   p,
		Warnings: make(map[int]*WarningSet),
		Controls: make(map[int]*ControlState),
		Stages:   NewStageMachine(lg),
		Events:   NewEventStream(lg),
		lg:       lg,
	}

	gen := NewObjectiveGenerator(p.Objectives, rand.NewSeeded(p.Seed), &s.objectiveIDs, lg)
	s.Airspace = NewAirspace(p.Airspace, gen, lg)

	player, err := s.AddAircraft(p.Player)
	if err != nil {
		return nil, err
	}
	s.PlayerID = player.ID

	if _, err := s.Airspace.SeedObjective(p.ObjectiveMarker, player.Altitude); err != nil {
		return nil, fmt.Errorf("seed objective: %w", err)
	}

	s.Stages.OnEnter(StageFlight, s.enterFlight)
	s.Stages.OnEnter(StageEnd, s.enterEnd)

	lg.Info("session created", slog.Int64("seed", p.Seed), slog.Int("tick_rate", p.TickRate))
	return s, nil
}

// AddAircraft adds an aircraft with a newly allocated id.
func (s *Session) AddAircraft(spec AircraftSpec) (*Aircraft, error) {
	return s.addAircraft(NewAircraft(s.aircraftIDs.Next(), spec))
}

// JoinAircraft adds an aircraft whose id was assigned elsewhere, such as
// a multiplayer slot number.
func (s *Session) JoinAircraft(id int, spec AircraftSpec) (*Aircraft, error) {
	s.aircraftIDs.Reserve(id)
	return s.addAircraft(NewAircraft(id, spec))
}

func (s *Session) addAircraft(ac *Aircraft) (*Aircraft, error) {
	if err := s.Airspace.AddAircraft(ac); err != nil {
		return nil, err
	}
	ws := NewWarningSet()
	s.Warnings[ac.ID] = &ws
	s.Controls[ac.ID] = &ControlState{}
	return ac, nil
}

func (s *Session) removeAircraft(id int, exit ExitCode) {
	ac := s.Airspace.Aircraft[id]
	s.lg.Info("aircraft flight ended", slog.String("exit", exit.String()), slog.Int("tick", s.tick),
		slog.Any("aircraft", ac))
	s.Events.Post(Event{Type: FlightEndedEvent, Tick: s.tick, AircraftID: id, Exit: exit,
		Text: exit.Reason(ac.Points)})

	s.Airspace.RemoveAircraft(id)
	delete(s.Warnings, id)
	delete(s.Controls, id)
}

func (s *Session) Player() *Aircraft {
	return s.Airspace.Aircraft[s.PlayerID]
}

func (s *Session) Stage() Stage {
	return s.Stages.Current()
}

func (s *Session) Done() bool {
	return s.Stages.Current() == StageEnd
}

func (s *Session) TickCount() int {
	return s.tick
}

func (s *Session) SimTime() time.Duration {
	return s.simTime
}

// TickDuration is the length of one fixed tick.
func (s *Session) TickDuration() time.Duration {
	return time.Second / time.Duration(s.Params.TickRate)
}

// Enqueue queues an input for the next tick. It may be called from any
// goroutine.
func (s *Session) Enqueue(in Input) {
	s.inputs.Push(in)
}

// Step advances the session by the given amount of wall-clock time,
// running as many whole fixed-length ticks as fit. Time left over is
// carried to the next call. It returns the number of ticks run.
func (s *Session) Step(elapsed time.Duration) (int, error) {
	elapsed += s.slop
	dt := s.TickDuration()

	n := int(elapsed / dt)
	if n > maxCatchUpTicks {
		s.lg.Warn("unexpected hitch in update rate", slog.Duration("elapsed", elapsed),
			slog.Int("steps", n))
		n = maxCatchUpTicks
		elapsed = time.Duration(n) * dt
	}

	for i := range n {
		if err := s.Tick(dt); err != nil {
			s.slop = 0
			return i, err
		}
	}
	s.slop = elapsed - time.Duration(n)*dt

	return n, nil
}

// Tick runs one tick of dt: queued inputs are applied, then, if a flight
// is underway and not paused, the airspace is advanced and warnings and
// exit conditions are evaluated. An error is only returned for internal
// failures, which end the session.
func (s *Session) Tick(dt time.Duration) error {
	for _, in := range s.inputs.Drain() {
		s.applyInput(in)
	}

	if s.Stages.Current() != StageFlight || s.Paused {
		return nil
	}

	s.tick++
	s.simTime += dt
	s.lastDuration = dt
	secs := dt.Seconds()

	deltas := make(map[int]ControlDelta, len(s.Controls))
	for id, cs := range s.Controls {
		deltas[id] = cs.Tick(secs)
	}

	captures, err := s.Airspace.Update(secs, deltas)
	if err != nil {
		s.lg.Error("airspace update failed", slog.Int("tick", s.tick), slog.Any("error", err))
		return fmt.Errorf("tick %d: %w", s.tick, err)
	}
	for _, c := range captures {
		s.Events.Post(Event{Type: ObjectiveCapturedEvent, Tick: s.tick, AircraftID: c.AircraftID,
			ObjectiveID: c.ObjectiveID, NextObjectiveID: c.Replacement})
		if c.AircraftID == s.PlayerID {
			s.setStatus("Objective captured.")
		}
	}

	for _, id := range util.SortedMapKeys(s.Airspace.Aircraft) {
		ac := s.Airspace.Aircraft[id]
		s.Warnings[id].Evaluate(ac, s.Airspace.ClosestObjective(ac), s.Airspace.AltitudeTolerance)
	}

	if s.sinceWarning += dt; s.sinceWarning >= s.Params.WarningInterval {
		s.sinceWarning = 0
		s.announce()
	}

	// Other aircraft leave the airspace when their flights end; the
	// session itself ends with the player's.
	for _, id := range util.SortedMapKeys(s.Airspace.Aircraft) {
		if id == s.PlayerID {
			continue
		}
		if exit := CheckExit(s.Airspace.Aircraft[id], s.Airspace); exit != ExitNone {
			s.removeAircraft(id, exit)
		}
	}
	if exit := CheckExit(s.Player(), s.Airspace); exit != ExitNone {
		s.end(exit)
		return nil
	}

	if s.sinceLog += dt; s.sinceLog >= s.Params.LogInterval {
		s.sinceLog = 0
		s.writeFrame(s.Telemetry)
	}
	s.writeFrame(s.Recorder)

	return nil
}

func (s *Session) applyInput(in Input) {
	cs, ok := s.Controls[in.AircraftID]
	if !ok {
		s.lg.Warn("input for unknown aircraft", slog.Any("input", in))
		return
	}
	ac := s.Airspace.Aircraft[in.AircraftID]

	switch in.Kind {
	case AxisPressed:
		// Held time doesn't accumulate under the autopilot.
		if !ac.Autopilot {
			cs.Press(in.Axis)
		}
	case AxisReleased:
		cs.Release(in.Axis)
	case CommandIssued:
		s.lg.Debug("command", slog.Any("input", in))

		switch in.Command {
		case CommandStart:
			if s.Stages.Current() == StageStart {
				if err := s.Stages.Transition(StageFlight); err != nil {
					s.lg.Error("start flight", slog.Any("error", err))
				}
			}
		case CommandQuit:
			s.Abort()
		case CommandPause:
			if s.Stages.Current() == StageFlight {
				s.Paused = !s.Paused
				if s.Paused {
					s.setStatus("Paused.")
				} else {
					s.setStatus("Resumed.")
				}
			}
		case CommandAutopilot:
			ac.Autopilot = !ac.Autopilot
			if ac.Autopilot {
				// Keys held when the autopilot takes over would otherwise
				// resume ramping when it is disengaged.
				cs.ReleaseAll()
				s.setStatus("Autopilot engaged.")
			} else {
				s.setStatus("Autopilot disengaged.")
			}
		default:
			if t, ok := in.Command.ThrottlePreset(); ok {
				if !ac.Autopilot {
					ac.SetThrottle(t)
				}
			} else {
				s.lg.Debug("command not handled by the session", slog.String("command", in.Command.String()))
			}
		}
	}
}

// Abort ends the session at the current tick boundary with ExitClosed.
func (s *Session) Abort() {
	if s.Stages.Current() != StageEnd {
		s.Exit = ExitClosed
		s.Stages.Abort()
	}
}

func (s *Session) end(exit ExitCode) {
	s.Exit = exit
	if err := s.Stages.Transition(StageEnd); err != nil {
		s.lg.Error("end flight", slog.Any("error", err))
	}
}

func (s *Session) enterFlight(from Stage) {
	s.Events.Post(Event{Type: StageChangedEvent, Tick: s.tick, Stage: StageFlight})
	s.setStatus("Fly to the objective.")
	s.writeFrame(s.Telemetry)
}

func (s *Session) enterEnd(from Stage) {
	ac := s.Player()
	reason := s.Exit.Reason(ac.Points)
	s.lg.Info("flight ended", slog.String("exit", s.Exit.String()), slog.Int("tick", s.tick),
		slog.Any("aircraft", ac))

	s.Events.Post(Event{Type: StageChangedEvent, Tick: s.tick, Stage: StageEnd})
	s.Events.Post(Event{Type: FlightEndedEvent, Tick: s.tick, AircraftID: ac.ID, Exit: s.Exit,
		Text: reason})
	s.setStatus(reason)

	if from == StageFlight {
		s.writeFrame(s.Telemetry)
		s.writeFrame(s.Recorder)
	}
}

func (s *Session) announce() {
	for _, id := range util.SortedMapKeys(s.Warnings) {
		kinds := s.Warnings[id].Announce()
		if len(kinds) == 0 {
			continue
		}
		for _, k := range kinds {
			s.Events.Post(Event{Type: WarningEvent, Tick: s.tick, AircraftID: id, Warning: k})
		}
		if s.Announcer != nil {
			s.Announcer.Announce(id, kinds)
		}
	}
}

func (s *Session) setStatus(msg string) {
	s.Status = msg
	s.Events.Post(Event{Type: StatusMessageEvent, Tick: s.tick, Text: msg})
}

// Frame returns a flat copy of the current airspace state.
func (s *Session) Frame() Frame {
	f := Frame{
		Tick:         s.tick,
		TickDuration: s.lastDuration,
		SimTime:      s.simTime,
		Exit:         s.Exit,
	}
	for _, id := range util.SortedMapKeys(s.Airspace.Aircraft) {
		f.Aircraft = append(f.Aircraft, *s.Airspace.Aircraft[id])
	}
	for _, id := range util.SortedMapKeys(s.Airspace.Objectives) {
		f.Objectives = append(f.Objectives, *s.Airspace.Objectives[id])
	}
	return f
}

func (s *Session) writeFrame(sink FrameSink) {
	if sink == nil {
		return
	}
	if err := sink.WriteFrame(s.Frame()); err != nil {
		s.lg.Warn("unable to write frame", slog.Int("tick", s.tick), slog.Any("error", err))
	}
}

// Snapshot returns a copy of the session state that the caller may keep
// and read while the session continues to run.
func (s *Session) Snapshot() Snapshot {
	warnings := make(map[int]WarningSet, len(s.Warnings))
	for id, ws := range s.Warnings {
		warnings[id] = *ws
	}
	return deep.MustCopy(Snapshot{
		Tick:       s.tick,
		SimTime:    s.simTime,
		Stage:      s.Stages.Current(),
		Paused:     s.Paused,
		Exit:       s.Exit,
		PlayerID:   s.PlayerID,
		Airspace:   s.Airspace.AirspaceParams,
		Aircraft:   s.Airspace.Aircraft,
		Objectives: s.Airspace.Objectives,
		Warnings:   warnings,
	})
}

// FlightResult summarizes a finished (or abandoned) flight.
type FlightResult struct {
	Exit       ExitCode
	Points     int
	Health     float64
	Ticks      int
	FlightTime time.Duration
}

func (s *Session) Result() FlightResult {
	ac := s.Player()
	return FlightResult{
		Exit:       s.Exit,
		Points:     ac.Points,
		Health:     ac.Health,
		Ticks:      s.tick,
		FlightTime: s.simTime,
	}
}
