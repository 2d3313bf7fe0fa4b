package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/packwave/internal/sweep"
)

func TestStoreSinkLifecycle(t *testing.T) {
	store := NewSweepStore(newTestDB(t))
	sink := NewStoreSink(store)
	ctx := context.Background()

	record := sampleRecord("sink-sweep", 1)
	require.NoError(t, sink.WriteCheckpoint(ctx, record))

	stored, err := store.GetSweep("sink-sweep")
	require.NoError(t, err)
	require.NotNil(t, stored, "first checkpoint should insert the sweep row")
	assert.Equal(t, string(sweep.StatusRunning), stored.Status)
	assert.Equal(t, 1, stored.Combinations)
	assert.True(t, stored.StartedAt.Equal(record.Timestamp))

	record.Results = sampleRecord("sink-sweep", 2).Results
	require.NoError(t, sink.WriteCheckpoint(ctx, record))

	stored, err = store.GetSweep("sink-sweep")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, string(sweep.StatusRunning), stored.Status)
	assert.Equal(t, 2, stored.Combinations)

	record.Timestamp = time.Date(2026, 3, 1, 12, 45, 0, 0, time.UTC)
	require.NoError(t, sink.WriteFinal(ctx, record))

	stored, err = store.GetSweep("sink-sweep")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, string(sweep.StatusDone), stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(record.Timestamp))

	loaded, err := store.LoadSweepRecord("sink-sweep")
	require.NoError(t, err)
	if diff := cmp.Diff(record, loaded); diff != "" {
		t.Errorf("stored record mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreSinkHandlesConsecutiveSweeps(t *testing.T) {
	store := NewSweepStore(newTestDB(t))
	sink := NewStoreSink(store)
	ctx := context.Background()

	first := sampleRecord("sink-first", 1)
	require.NoError(t, sink.WriteCheckpoint(ctx, first))
	require.NoError(t, sink.WriteFinal(ctx, first))

	second := sampleRecord("sink-second", 1)
	second.Timestamp = first.Timestamp.Add(time.Hour)
	require.NoError(t, sink.WriteCheckpoint(ctx, second))

	sweeps, err := store.ListSweeps(10)
	require.NoError(t, err)
	require.Len(t, sweeps, 2, "reusing a sink for a new sweep should insert a new row")
	assert.Equal(t, "sink-second", sweeps[0].SweepID)
	assert.Equal(t, "sink-first", sweeps[1].SweepID)
}

func TestStoreSinkFinalWithoutCheckpoint(t *testing.T) {
	store := NewSweepStore(newTestDB(t))
	sink := NewStoreSink(store)

	record := sampleRecord("sink-direct", 1)
	require.NoError(t, sink.WriteFinal(context.Background(), record))

	stored, err := store.GetSweep("sink-direct")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, string(sweep.StatusDone), stored.Status)
	assert.Equal(t, 1, stored.Combinations)
}
