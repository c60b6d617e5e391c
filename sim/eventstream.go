// sim/eventstream.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/slightfim/fimulator/log"
)

// EventStream is a basic pub/sub event queue. The session posts what
// happens during each tick and presentation code (HUD, audio, recorder)
// subscribes and picks the events up on its own schedule.
type EventStream struct {
	mu            sync.Mutex
	events        []Event
	subscriptions map[*EventsSubscription]any
	lg            *log.Logger
}

type EventsSubscription struct {
	stream *EventStream
	// offset is offset in the EventStream events array up to which the
	// subscriber has consumed events so far.
	offset int
	source string
}

func (e *EventsSubscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("offset", e.offset),
		slog.String("source", e.source))
}

func NewEventStream(lg *log.Logger) *EventStream {
	return &EventStream{
		subscriptions: make(map[*EventsSubscription]any),
		lg:            lg,
	}
}

// Subscribe registers a new subscriber; only events posted after this
// call are returned by its Get method.
func (e *EventStream) Subscribe() *EventsSubscription {
	// Record the subscriber's callsite, so that we can more easily debug
	// subscribers that aren't consuming events.
	_, fn, line, _ := runtime.Caller(1)

	e.mu.Lock()
	defer e.mu.Unlock()

	sub := &EventsSubscription{
		stream: e,
		offset: len(e.events),
		source: fmt.Sprintf("%s:%d", fn, line),
	}
	e.subscriptions[sub] = nil
	return sub
}

// Unsubscribe removes a subscriber from the subscriber list
func (e *EventsSubscription) Unsubscribe() {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to unsubscribe invalid subscription: %+v", e)
	}
	delete(e.stream.subscriptions, e)
	e.stream.compact()
}

// Post adds an event to the event stream.
func (e *EventStream) Post(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lg.Debug("posted event", slog.Any("event", event))

	// Ignore the event if no one's paying attention.
	if len(e.subscriptions) > 0 {
		e.events = append(e.events, event)
	}
}

// Get returns all of the events from the stream since the last time Get
// was called for this subscription.
func (e *EventsSubscription) Get() []Event {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to get with unregistered subscription: %+v", e)
		return nil
	}

	events := slices.Clone(e.stream.events[e.offset:])
	e.offset = len(e.stream.events)
	e.stream.compact()

	return events
}

// compact reclaims storage for events that all subscribers have seen so
// that memory use doesn't grow without bound.
func (e *EventStream) compact() {
	minOffset := len(e.events)
	for sub := range e.subscriptions {
		minOffset = min(minOffset, sub.offset)
	}

	if minOffset > cap(e.events)/2 {
		n := len(e.events) - minOffset

		copy(e.events, e.events[minOffset:])
		e.events = e.events[:n]

		for sub := range e.subscriptions {
			sub.offset -= minOffset
		}
	}
}

///////////////////////////////////////////////////////////////////////////

type EventType int

const (
	StageChangedEvent EventType = iota
	ObjectiveCapturedEvent
	WarningEvent
	StatusMessageEvent
	FlightEndedEvent
	NumEventTypes
)

func (t EventType) String() string {
	return []string{"StageChanged", "ObjectiveCaptured", "Warning", "StatusMessage", "FlightEnded"}[t]
}

type Event struct {
	Type            EventType
	Tick            int
	AircraftID      int
	ObjectiveID     int
	NextObjectiveID int // objective generated in place of a captured one
	Stage           Stage
	Warning         WarningKind
	Exit            ExitCode
	Text            string
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", e.Type.String()), slog.Int("tick", e.Tick)}
	switch e.Type {
	case StageChangedEvent:
		attrs = append(attrs, slog.String("stage", e.Stage.String()))
	case ObjectiveCapturedEvent:
		attrs = append(attrs, slog.Int("aircraft", e.AircraftID), slog.Int("objective", e.ObjectiveID),
			slog.Int("next_objective", e.NextObjectiveID))
	case WarningEvent:
		attrs = append(attrs, slog.Int("aircraft", e.AircraftID), slog.String("warning", e.Warning.String()))
	case FlightEndedEvent:
		attrs = append(attrs, slog.Int("aircraft", e.AircraftID), slog.String("exit", e.Exit.String()))
	}
	if e.Text != "" {
		attrs = append(attrs, slog.String("text", e.Text))
	}
	return slog.GroupValue(attrs...)
}
