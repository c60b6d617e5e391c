// record/record.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package record writes and reads flight recordings: a header followed by
// one msgpack-encoded frame per tick, all in a single zstd stream.
package record

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/slightfim/fimulator/log"
	"github.com/slightfim/fimulator/sim"
	"github.com/slightfim/fimulator/util"

	"github.com/Masterminds/semver/v3"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// FormatVersion is written to every recording. Readers accept any
// recording with the same major version.
const FormatVersion = "1.0.0"

var ErrIncompatibleRecording = errors.New("incompatible recording version")

type Header struct {
	Version  string
	Created  time.Time
	Seed     int64
	TickRate int
}

// Recorder is a sim.FrameSink that appends every frame to a recording.
type Recorder struct {
	closer io.Closer
	cw     *util.CountingWriter
	zw     *zstd.Encoder
	enc    *msgpack.Encoder
	frames int
	lg     *log.Logger
}

// Create starts a new recording in the file at path.
func Create(path string, p sim.SessionParams, lg *log.Logger) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r, err := NewRecorder(f, p, lg)
	if err != nil {
		f.Close()
		return nil, err
	}
	lg.Info("recording flight", slog.String("path", path))
	return r, nil
}

// NewRecorder starts a recording written to w. If w is an io.Closer, it
// is closed by Close.
func NewRecorder(w io.Writer, p sim.SessionParams, lg *log.Logger) (*Recorder, error) {
	cw := &util.CountingWriter{Writer: w}
	zw, err := zstd.NewWriter(cw, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		cw:  cw,
		zw:  zw,
		enc: msgpack.NewEncoder(zw),
		lg:  lg,
	}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}

	hdr := Header{
		Version:  FormatVersion,
		Created:  time.Now().UTC(),
		Seed:     p.Seed,
		TickRate: p.TickRate,
	}
	if err := r.enc.Encode(hdr); err != nil {
		return nil, fmt.Errorf("recording header: %w", err)
	}
	return r, nil
}

func (r *Recorder) WriteFrame(f sim.Frame) error {
	if err := r.enc.Encode(f); err != nil {
		return fmt.Errorf("recording tick %d: %w", f.Tick, err)
	}
	r.frames++
	return nil
}

func (r *Recorder) Frames() int {
	return r.frames
}

// Close flushes the compressed stream and closes the underlying writer.
func (r *Recorder) Close() error {
	err := r.zw.Close()
	if r.closer != nil {
		err = errors.Join(err, r.closer.Close())
	}
	r.lg.Info("recording closed", slog.Int("frames", r.frames), slog.Int64("bytes", r.cw.N))
	return err
}

// Read decodes a recording. Frames are returned in the order they were
// written.
func Read(rd io.Reader) (Header, []sim.Frame, error) {
	zr, err := zstd.NewReader(rd, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return Header{}, nil, err
	}
	defer zr.Close()

	dec := msgpack.NewDecoder(zr)

	var hdr Header
	if err := dec.Decode(&hdr); err != nil {
		return Header{}, nil, fmt.Errorf("recording header: %w", err)
	}
	if err := checkVersion(hdr.Version); err != nil {
		return hdr, nil, err
	}

	var frames []sim.Frame
	for {
		var f sim.Frame
		if err := dec.Decode(&f); errors.Is(err, io.EOF) {
			return hdr, frames, nil
		} else if err != nil {
			return hdr, frames, fmt.Errorf("recording frame %d: %w", len(frames), err)
		}
		frames = append(frames, f)
	}
}

// ReadFile is Read for the recording in the file at path.
func ReadFile(path string) (Header, []sim.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer f.Close()

	return Read(f)
}

func checkVersion(v string) error {
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%q: %w", v, ErrIncompatibleRecording)
	}
	want, _ := semver.NewVersion(FormatVersion)
	c, err := semver.NewConstraint(fmt.Sprintf("^%d", want.Major()))
	if err != nil {
		return err
	}
	if !c.Check(ver) {
		return fmt.Errorf("%s (reader is %s): %w", v, FormatVersion, ErrIncompatibleRecording)
	}
	return nil
}
