// cmd/fimulator/main.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/slightfim/fimulator/config"
	"github.com/slightfim/fimulator/log"
	"github.com/slightfim/fimulator/record"
	"github.com/slightfim/fimulator/scores"
	"github.com/slightfim/fimulator/sim"
	"github.com/slightfim/fimulator/telemetry"
	"github.com/slightfim/fimulator/units"

	"github.com/apenwarr/fixconsole"
	"github.com/gdamore/tcell/v2"
	"github.com/goforj/godump"
)

var (
	configFile = flag.String("config", "", "YAML configuration file")
	logLevel   = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory")
	headless   = flag.Bool("headless", false, "fly without the terminal UI for at most -ticks ticks")
	maxTicks   = flag.Int("ticks", 3600, "number of ticks to run in headless mode")
	autopilot  = flag.Bool("autopilot", false, "engage the autopilot at takeoff in headless mode")
	seed       = flag.Int64("seed", 0, "random seed for objective placement (0: from the configuration or the clock)")
	recordPath = flag.String("record", "", "write a flight recording to this file")
	dumpPath   = flag.String("dump", "", "print the header and final frame of a flight recording and exit")
	showScores = flag.Int("scores", 0, "print the given number of best flights and exit")
)

func main() {
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		fmt.Printf("FixConsole: %v\n", err)
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash(&err)

	if *dumpPath != "" {
		if err := dumpRecording(*dumpPath); err != nil {
			return fmt.Errorf("%s: %w", *dumpPath, err)
		}
		return nil
	}

	cfg := config.Default()
	if *configFile != "" {
		if cfg, err = config.Load(*configFile); err != nil {
			lg.Errorf("%v", err)
			return err
		}
	}

	var store *scores.Store
	if cfg.Scores.Enable || *showScores > 0 {
		path := cfg.Scores.Path
		if path == "" {
			path = filepath.Join(lg.LogDir, "fimulator.db")
		}
		if store, err = scores.Open(path, lg); err != nil {
			// Not worth refusing to fly over.
			lg.Warn("unable to open scores database", slog.String("path", path), slog.Any("error", err))
			store = nil
		} else {
			defer store.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *showScores > 0 {
		if store == nil {
			return errors.New("scores database unavailable")
		}
		return printScores(ctx, store, *showScores)
	}

	p := cfg.SessionParams()
	if *seed != 0 {
		p.Seed = *seed
	}
	s, err := sim.NewSession(p, lg)
	if err != nil {
		lg.Errorf("%v", err)
		return err
	}

	if cfg.Telemetry.Enable {
		dir := cfg.Telemetry.Dir
		if dir == "" {
			dir = lg.LogDir
		}
		tw := telemetry.NewFileWriter(dir, cfg.Telemetry.MaxSizeMB, lg)
		defer tw.Close()
		s.Telemetry = tw
	}

	path := *recordPath
	if path == "" && cfg.Record.Enable {
		path = cfg.Record.Path
	}
	if path != "" {
		rec, err := record.Create(path, p, lg)
		if err != nil {
			lg.Errorf("%s: %v", path, err)
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				lg.Errorf("%s: %v", path, err)
			}
		}()
		s.Recorder = rec
	}

	if *headless {
		err = runHeadless(ctx, s, *maxTicks, *autopilot, lg)
	} else {
		err = runTerminal(ctx, s, cfg, lg)
	}
	if err != nil {
		lg.Errorf("%v", err)
		return err
	}

	// Flights that were started count; quitting from the start screen
	// doesn't.
	result := s.Result()
	if store != nil && result.Ticks > 0 {
		if _, err := store.Record(ctx, result, p.Seed, time.Now()); err != nil {
			lg.Warn("unable to record flight", slog.Any("error", err))
		}
	}

	fmt.Printf("%s: %s\n", s.Exit.Title(), s.Exit.Reason(result.Points))
	return nil
}

// runHeadless flies the session without any UI, as fast as it will go,
// logging what happens along the way. The flight is abandoned if it is
// still going after maxTicks.
func runHeadless(ctx context.Context, s *sim.Session, maxTicks int, autopilot bool, lg *log.Logger) error {
	sub := s.Events.Subscribe()
	defer sub.Unsubscribe()
	logEvents := func() {
		for _, ev := range sub.Get() {
			lg.Info("flight event", slog.Any("event", ev))
		}
	}
	defer logEvents()

	s.Enqueue(sim.Input{AircraftID: s.PlayerID, Kind: sim.CommandIssued, Command: sim.CommandStart})
	if autopilot {
		s.Enqueue(sim.Input{AircraftID: s.PlayerID, Kind: sim.CommandIssued, Command: sim.CommandAutopilot})
	}

	for i := 0; i < maxTicks && !s.Done() && ctx.Err() == nil; i++ {
		if err := s.Tick(s.TickDuration()); err != nil {
			s.Abort()
			return err
		}
		logEvents()
	}
	s.Abort()
	lg.Info("headless flight finished", slog.Int("ticks", s.TickCount()), slog.String("exit", s.Exit.String()))
	return nil
}

func runTerminal(ctx context.Context, s *sim.Session, cfg config.Config, lg *log.Logger) error {
	kb, err := parseBindings(cfg.Controls.Bindings)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()
	screen.SetStyle(styleDefault)

	t := newTerminal(screen, s, kb, cfg.Controls.HoldTimeout, lg)
	// Validate already rejected unknown names.
	t.units, _ = units.ParseSystem(cfg.HUD.Units)
	err = t.Run(ctx)
	// Interrupted from outside.
	s.Abort()
	return err
}

func dumpRecording(path string) error {
	hdr, frames, err := record.ReadFile(path)
	if err != nil {
		return err
	}
	godump.Dump(hdr)
	if len(frames) == 0 {
		fmt.Println("no frames recorded")
		return nil
	}
	fmt.Printf("%d frames; final frame:\n", len(frames))
	godump.Dump(frames[len(frames)-1])
	return nil
}

func printScores(ctx context.Context, store *scores.Store, n int) error {
	best, err := store.Best(ctx, n)
	if err != nil {
		return err
	}
	fmt.Printf("%-4s %-20s %-18s %6s %8s %8s\n", "#", "DATE", "RESULT", "POINTS", "HEALTH", "TIME")
	for i, e := range best {
		fmt.Printf("%-4d %-20s %-18s %6d %8.1f %8s\n", i+1, e.Time.Format("2006-01-02 15:04:05"), e.Exit,
			e.Points, e.Health, formatDuration(e.FlightTime))
	}
	return nil
}
