// cmd/fimulator/messages.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/slightfim/fimulator/sim"
)

const maxMessages = 4

// messageLog follows the session's event stream for the HUD: the latest
// status message and a short list of recent happenings.
type messageLog struct {
	playerID     int
	tickDuration time.Duration

	status string
	recent []string
}

func (m *messageLog) update(events []sim.Event) {
	for _, ev := range events {
		switch ev.Type {
		case sim.StatusMessageEvent:
			m.status = ev.Text

		case sim.ObjectiveCapturedEvent:
			if ev.AircraftID == m.playerID {
				m.add(ev.Tick, fmt.Sprintf("objective %d captured, next is %d", ev.ObjectiveID, ev.NextObjectiveID))
			} else {
				m.add(ev.Tick, fmt.Sprintf("aircraft %d captured objective %d", ev.AircraftID, ev.ObjectiveID))
			}

		case sim.WarningEvent:
			if ev.AircraftID == m.playerID {
				m.add(ev.Tick, warningLabel(ev.Warning))
			}

		case sim.FlightEndedEvent:
			if ev.AircraftID != m.playerID {
				m.add(ev.Tick, fmt.Sprintf("aircraft %d: %s", ev.AircraftID, ev.Exit.Title()))
			}
		}
	}
}

func (m *messageLog) add(tick int, msg string) {
	msg = formatDuration(time.Duration(tick)*m.tickDuration) + " " + msg
	m.recent = append(m.recent, msg)
	if n := len(m.recent); n > maxMessages {
		m.recent = m.recent[n-maxMessages:]
	}
}

func warningLabel(k sim.WarningKind) string {
	return strings.ToUpper(strings.ReplaceAll(k.String(), "_", " "))
}
