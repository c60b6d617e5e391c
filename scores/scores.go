// scores/scores.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package scores keeps the results of finished flights in a SQLite
// database.
package scores

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/slightfim/fimulator/log"
	"github.com/slightfim/fimulator/sim"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
	lg *log.Logger
}

type Entry struct {
	ID         int64
	Time       time.Time
	Exit       sim.ExitCode
	Points     int
	Health     float64
	Ticks      int
	FlightTime time.Duration
	Seed       int64
}

// Open opens the database at path, creating it and its directory if
// necessary.
func Open(path string, lg *log.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS flights (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		finished_at INTEGER NOT NULL,
		exit_code INTEGER NOT NULL,
		points INTEGER NOT NULL,
		health REAL NOT NULL,
		ticks INTEGER NOT NULL,
		flight_ms INTEGER NOT NULL,
		seed INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	lg.Info("opened scores database", slog.String("path", path))
	return &Store{db: db, lg: lg}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record saves the result of a flight that finished at the given time.
func (s *Store) Record(ctx context.Context, r sim.FlightResult, seed int64, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO flights (finished_at, exit_code, points, health, ticks, flight_ms, seed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		at.UnixMilli(), int(r.Exit), r.Points, r.Health, r.Ticks, r.FlightTime.Milliseconds(), seed)
	if err != nil {
		return 0, fmt.Errorf("record flight: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.lg.Info("recorded flight", slog.Int64("id", id), slog.String("exit", r.Exit.String()),
		slog.Int("points", r.Points))
	return id, nil
}

// Best returns up to n flights ordered by points, then by shortest
// flight time; ties after that go to the earlier flight.
func (s *Store) Best(ctx context.Context, n int) ([]Entry, error) {
	return s.query(ctx, `SELECT id, finished_at, exit_code, points, health, ticks, flight_ms, seed
		FROM flights ORDER BY points DESC, flight_ms ASC, id ASC LIMIT ?`, n)
}

// Recent returns the last n flights, most recent first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	return s.query(ctx, `SELECT id, finished_at, exit_code, points, health, ticks, flight_ms, seed
		FROM flights ORDER BY id DESC LIMIT ?`, n)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at, ms int64
		var exit int
		if err := rows.Scan(&e.ID, &at, &exit, &e.Points, &e.Health, &e.Ticks, &ms, &e.Seed); err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		e.Time = time.UnixMilli(at)
		e.Exit = sim.ExitCode(exit)
		e.FlightTime = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
