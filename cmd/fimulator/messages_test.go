// cmd/fimulator/messages_test.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/slightfim/fimulator/sim"
)

func makeTestSession(t *testing.T) *sim.Session {
	t.Helper()
	p := sim.DefaultSessionParams()
	p.Seed = 7
	s, err := sim.NewSession(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMessageLogFollowsSession(t *testing.T) {
	s := makeTestSession(t)
	sub := s.Events.Subscribe()
	defer sub.Unsubscribe()
	m := messageLog{playerID: s.PlayerID, tickDuration: s.TickDuration()}

	s.Enqueue(sim.Input{AircraftID: s.PlayerID, Kind: sim.CommandIssued, Command: sim.CommandStart})
	if err := s.Tick(s.TickDuration()); err != nil {
		t.Fatal(err)
	}
	m.update(sub.Get())
	if m.status != "Fly to the objective." {
		t.Errorf("status %q after takeoff", m.status)
	}

	// Put an objective right on the aircraft.
	ac := s.Player()
	for id := range s.Airspace.Objectives {
		delete(s.Airspace.Objectives, id)
	}
	s.Airspace.AddObjective(sim.NewObjective(100, "objectivemarker", ac.X, ac.Z, ac.Altitude, 1000))
	if err := s.Tick(s.TickDuration()); err != nil {
		t.Fatal(err)
	}
	m.update(sub.Get())

	if m.status != "Objective captured." {
		t.Errorf("status %q after capture", m.status)
	}
	captured := slices.ContainsFunc(m.recent, func(msg string) bool {
		return strings.HasPrefix(msg, "00:00 objective 100 captured, next is ")
	})
	if !captured {
		t.Errorf("no capture message in %q", m.recent)
	}
}

func TestMessageLogWarningsAndOthers(t *testing.T) {
	m := messageLog{playerID: 1, tickDuration: time.Second / 60}
	m.update([]sim.Event{
		{Type: sim.WarningEvent, Tick: 60, AircraftID: 1, Warning: sim.BankAngleWarning},
		{Type: sim.WarningEvent, Tick: 60, AircraftID: 2, Warning: sim.StallWarning},
		{Type: sim.FlightEndedEvent, Tick: 120, AircraftID: 2, Exit: sim.ExitLeftArea},
	})
	expected := []string{"00:01 BANK ANGLE", "00:02 aircraft 2: Failed"}
	if !slices.Equal(m.recent, expected) {
		t.Errorf("got %q, expected %q", m.recent, expected)
	}

	for i := range 10 {
		m.update([]sim.Event{{Type: sim.ObjectiveCapturedEvent, AircraftID: 3, ObjectiveID: i}})
	}
	if len(m.recent) != maxMessages || !strings.HasSuffix(m.recent[maxMessages-1], "objective 9") {
		t.Errorf("recent messages %q", m.recent)
	}
}
