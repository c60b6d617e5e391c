// telemetry/telemetry.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package telemetry writes periodic flight frames as tab-separated text
// that can be pasted straight into a spreadsheet.
package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/slightfim/fimulator/log"
	"github.com/slightfim/fimulator/sim"

	"gopkg.in/natefinch/lumberjack.v2"
)

var aircraftLabels = []string{"x", "z", "altitude", "speed", "acceleration", "vertical_velocity", "throttle",
	"heading", "vertical_heading", "roll_level", "roll", "vertical_roll", "points", "damage"}

var objectiveLabels = []string{"x", "z", "altitude"}

// Writer is a sim.FrameSink. Each frame becomes one record line; the two
// header lines are written before the first record and again whenever
// the set of aircraft or objectives changes, so that columns always line
// up with the header above them.
type Writer struct {
	w       io.Writer
	closer  io.Closer
	layout  string
	records int
	lg      *log.Logger
}

func NewWriter(w io.Writer, lg *log.Logger) *Writer {
	tw := &Writer{w: w, lg: lg}
	if c, ok := w.(io.Closer); ok {
		tw.closer = c
	}
	return tw
}

// NewFileWriter returns a Writer that writes to a new file in dir, named
// for the current time. Files are rotated once they reach maxSizeMB.
func NewFileWriter(dir string, maxSizeMB int, lg *log.Logger) *Writer {
	name := "telemetry-" + time.Now().Format("20060102-150405") + ".tsv"
	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
	}
	lg.Info("writing telemetry", slog.String("path", lj.Filename))
	return NewWriter(lj, lg)
}

func (t *Writer) WriteFrame(f sim.Frame) error {
	var b strings.Builder

	if layout := frameLayout(f); layout != t.layout {
		t.layout = layout
		writeHeader(&b, f)
	}

	fmt.Fprintf(&b, "%d\t%d\t", f.Tick, f.TickDuration.Milliseconds())
	for i := range f.Aircraft {
		ac := &f.Aircraft[i]
		for _, v := range []float64{ac.X, ac.Z, ac.Altitude, ac.Speed, ac.Acceleration, ac.VerticalVelocity,
			ac.Throttle, ac.Heading, ac.VerticalHeading, ac.RollLevel, ac.Roll, ac.VerticalRollLevel} {
			fmt.Fprintf(&b, "%.3f\t", v)
		}
		fmt.Fprintf(&b, "%d\t%.3f\t", ac.Points, ac.Damage())
	}
	for _, obj := range f.Objectives {
		fmt.Fprintf(&b, "%.3f\t%.3f\t%.3f\t", obj.X, obj.Z, obj.Altitude)
	}
	b.WriteString("\n")

	if _, err := io.WriteString(t.w, b.String()); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	t.records++
	return nil
}

func (t *Writer) Close() error {
	if t.closer == nil {
		return nil
	}
	t.lg.Debug("closing telemetry", slog.Int("records", t.records))
	return t.closer.Close()
}

func frameLayout(f sim.Frame) string {
	var b strings.Builder
	for _, ac := range f.Aircraft {
		fmt.Fprintf(&b, "P%d,", ac.ID)
	}
	for _, obj := range f.Objectives {
		fmt.Fprintf(&b, "O%d,", obj.ID)
	}
	return b.String()
}

func writeHeader(b *strings.Builder, f sim.Frame) {
	b.WriteString("TIME\t\t")
	for _, ac := range f.Aircraft {
		fmt.Fprintf(b, "PLN-%d\t%s", ac.ID, strings.Repeat("\t", len(aircraftLabels)-1))
	}
	for _, obj := range f.Objectives {
		fmt.Fprintf(b, "OBJ-%d\t%s", obj.ID, strings.Repeat("\t", len(objectiveLabels)-1))
	}
	b.WriteString("\n")

	b.WriteString("TICK\tDT\t")
	labels := slices.Concat(slices.Repeat(aircraftLabels, len(f.Aircraft)),
		slices.Repeat(objectiveLabels, len(f.Objectives)))
	for _, l := range labels {
		b.WriteString(l + "\t")
	}
	b.WriteString("\n")
}
