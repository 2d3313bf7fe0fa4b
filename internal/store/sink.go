package store

import (
	"context"
	"sync"

	"github.com/banshee-data/packwave/internal/sweep"
)

// StoreSink persists sweep progress to the database. The first write for a
// sweep inserts its row in the running state; later checkpoints update the
// stored record in place, and the final write marks the sweep done.
type StoreSink struct {
	store *SweepStore

	mu      sync.Mutex
	started string
}

var _ sweep.Sink = (*StoreSink)(nil)

// NewStoreSink creates a sink writing through store.
func NewStoreSink(store *SweepStore) *StoreSink {
	return &StoreSink{store: store}
}

// WriteCheckpoint stores the partial record after a completed combination.
func (s *StoreSink) WriteCheckpoint(ctx context.Context, record *sweep.SweepRecord) error {
	if err := s.ensureStarted(record); err != nil {
		return err
	}
	return s.store.SaveSweepCheckpoint(record)
}

// WriteFinal stores the completed record and marks the sweep done.
func (s *StoreSink) WriteFinal(ctx context.Context, record *sweep.SweepRecord) error {
	if err := s.ensureStarted(record); err != nil {
		return err
	}
	return s.store.SaveSweepComplete(record)
}

// ensureStarted inserts the sweep row on the first write for a record.
// Reusing the sink for a fresh sweep starts a fresh row.
func (s *StoreSink) ensureStarted(record *sweep.SweepRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started == record.ID {
		return nil
	}
	if err := s.store.SaveSweepStart(record); err != nil {
		return err
	}
	s.started = record.ID
	return nil
}
