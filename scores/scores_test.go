// scores/scores_test.go
// Copyright(c) 2022-2025 fimulator contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package scores

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/slightfim/fimulator/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "fimulator.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndBest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	results := []sim.FlightResult{
		{Exit: sim.ExitCrashed, Points: 3, Health: -0.5, Ticks: 6000, FlightTime: 100 * time.Second},
		{Exit: sim.ExitCompleted, Points: 10, Health: 80, Ticks: 36000, FlightTime: 600 * time.Second},
		{Exit: sim.ExitClosed, Points: 10, Health: 100, Ticks: 30000, FlightTime: 500 * time.Second},
		{Exit: sim.ExitLeftArea, Points: 0, Health: 100, Ticks: 600, FlightTime: 10 * time.Second},
	}
	for i, r := range results {
		id, err := s.Record(ctx, r, int64(i), at.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), id)
	}

	best, err := s.Best(ctx, 3)
	require.NoError(t, err)
	require.Len(t, best, 3)

	// Equal points: the faster flight ranks first.
	assert.Equal(t, sim.ExitClosed, best[0].Exit)
	assert.Equal(t, 500*time.Second, best[0].FlightTime)
	assert.Equal(t, sim.ExitCompleted, best[1].Exit)
	assert.Equal(t, 3, best[2].Points)
	assert.Equal(t, -0.5, best[2].Health)

	assert.True(t, best[1].Time.Equal(at.Add(time.Minute)), "time %s", best[1].Time)
	assert.Equal(t, int64(1), best[1].Seed)
	assert.Equal(t, 36000, best[1].Ticks)
}

func TestRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := range 5 {
		_, err := s.Record(ctx, sim.FlightResult{Exit: sim.ExitClosed, Points: i}, 0, time.Now())
		require.NoError(t, err)
	}

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 4, recent[0].Points)
	assert.Equal(t, 3, recent[1].Points)
}

func TestReopenKeepsResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fimulator.db")
	ctx := context.Background()

	s, err := Open(path, nil)
	require.NoError(t, err)
	_, err = s.Record(ctx, sim.FlightResult{Exit: sim.ExitCompleted, Points: 10}, 7, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	best, err := s.Best(ctx, 10)
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, int64(7), best[0].Seed)
}

func TestEmpty(t *testing.T) {
	s := openTestStore(t)
	best, err := s.Best(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, best)
}
