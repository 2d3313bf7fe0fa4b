package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"

	"github.com/banshee-data/packwave/internal/monitoring"
	"github.com/banshee-data/packwave/internal/timeutil"
)

// Runner executes sweeps strictly sequentially over combinations, with
// concurrency confined to replications inside a combination. One Runner
// runs at most one sweep at a time; State can be read from other
// goroutines at any point.
type Runner struct {
	simulate SimulateFunc
	sink     Sink
	clock    timeutil.Clock
	logf     func(format string, v ...interface{})

	mu    sync.RWMutex
	state State
}

// Option adjusts a Runner at construction.
type Option func(*Runner)

// WithClock substitutes the time source, for tests.
func WithClock(c timeutil.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// NewRunner builds a Runner over a simulation function and a sink.
func NewRunner(simulate SimulateFunc, sink Sink, opts ...Option) *Runner {
	r := &Runner{
		simulate: simulate,
		sink:     sink,
		clock:    timeutil.RealClock{},
		logf:     monitoring.Prefixed("sweep"),
		state:    State{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns a snapshot of the runner's progress. The copy is deep, so
// callers may hold it across sweep progress.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.state
	s.Results = copyResults(r.state.Results)
	return s
}

// Run executes the sweep described by req: expand the grid, then for each
// combination run all replications, aggregate, and checkpoint before
// moving on. Cancellation is honored at combination boundaries only; a
// combination in flight always finishes and checkpoints. The first error
// of any kind fails the sweep, leaving prior checkpoints in place.
func (r *Runner) Run(ctx context.Context, req Request) (*SweepRecord, error) {
	if err := r.begin(req); err != nil {
		return nil, err
	}

	combos, err := GenerateCombinations(req.Grid, req.Base)
	if err != nil {
		return nil, r.fail(err)
	}
	if req.Replications < 1 {
		return nil, r.fail(&ConfigurationError{Field: "replications", Reason: "must be at least 1"})
	}
	if req.Replications > maxReplications {
		return nil, r.fail(&ConfigurationError{Field: "replications", Reason: "more than 1000 replications per combination"})
	}

	record := &SweepRecord{
		ID:             uuid.New().String(),
		ExperimentName: req.Name,
		Description:    req.Description,
		Timestamp:      r.clock.Now().UTC(),
		Parameters:     ParameterColumns(req.Grid, req.Base),
		Results:        make([]AggregatedResult, 0, len(combos)),
	}
	r.setState(func(s *State) {
		s.SweepID = record.ID
		s.Total = len(combos)
	})
	r.logf("sweep %s (%q): %d combinations x %d replications", record.ID, req.Name, len(combos), req.Replications)

	for i, combo := range combos {
		// Cancellation is only observed here, once per combination.
		if err := ctx.Err(); err != nil {
			return nil, r.fail(fmt.Errorf("cancelled before combination %d/%d: %w", i+1, len(combos), err))
		}

		r.progress(StatusRunning, i+1)
		start := r.clock.Now()
		agg, durations, err := runReplications(ctx, combo, req.Replications, r.simulate, r.clock)
		if err != nil {
			return nil, r.fail(err)
		}
		record.Results = append(record.Results, agg)

		r.progress(StatusCheckpointing, i+1)
		r.setState(func(s *State) { s.Results = copyResults(record.Results) })
		if err := r.sink.WriteCheckpoint(ctx, record); err != nil {
			return nil, r.fail(&PersistenceError{Op: "checkpoint", Combination: i + 1, Err: err})
		}
		r.logf("combination %d/%d done in %v (%s)",
			i+1, len(combos), r.clock.Since(start).Round(time.Millisecond), replicationSummary(durations))
	}

	r.progress(StatusFinalizing, len(combos))
	record.Timestamp = r.clock.Now().UTC()
	if err := r.sink.WriteFinal(ctx, record); err != nil {
		return nil, r.fail(&PersistenceError{Op: "final", Combination: len(combos), Err: err})
	}

	r.setState(func(s *State) { s.Status = StatusDone })
	r.logf("sweep %s complete: %d results", record.ID, len(record.Results))
	return record, nil
}

// begin transitions idle/done/failed to expanding, rejecting concurrent runs.
func (r *Runner) begin(req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Status.active() {
		return fmt.Errorf("sweep already running (started %s)", r.state.StartedAt.Format(time.RFC3339))
	}
	now := r.clock.Now().UTC()
	r.state = State{
		Status:    StatusExpanding,
		Name:      req.Name,
		StartedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (r *Runner) setState(mutate func(*State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mutate(&r.state)
	r.state.UpdatedAt = r.clock.Now().UTC()
}

func (r *Runner) progress(status Status, combination int) {
	r.setState(func(s *State) {
		s.Status = status
		s.Combination = combination
	})
}

func (r *Runner) fail(err error) error {
	r.setState(func(s *State) {
		s.Status = StatusFailed
		s.Error = err.Error()
	})
	r.logf("sweep failed: %v", err)
	return err
}

// replicationSummary condenses per-replication wall times into a one-line
// latency digest for the combination log. Samples outside the histogram
// range of 1ms to 10 minutes are dropped.
func replicationSummary(durations []time.Duration) string {
	h := hdrhistogram.New(1, 600000, 3)
	for _, d := range durations {
		_ = h.RecordValue(d.Milliseconds())
	}
	return fmt.Sprintf("replication ms p50=%d p95=%d max=%d",
		h.ValueAtQuantile(50), h.ValueAtQuantile(95), h.Max())
}
