// Package sweep runs multi-parameter experiment sweeps: it expands a
// parameter grid into combinations, runs independent simulation replications
// for each combination, aggregates their metrics, and persists results
// incrementally through a sink.
package sweep

import (
	"context"
	"time"
)

// SimulateFunc runs one simulation replication with fully resolved
// parameters (including "seed") and returns its metrics. Implementations
// should be deterministic for identical parameters; the orchestrator does
// not enforce this, but averaging across replications assumes it.
type SimulateFunc func(ctx context.Context, params map[string]float64) (map[string]float64, error)

// GridParam is one swept parameter: a name and its ordered candidate values.
// Declaration order is significant, it determines combination enumeration
// order and CSV column order.
type GridParam struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Request describes one experiment sweep. It arrives already validated
// (internal/config produces it); the runner re-checks only structural
// invariants it depends on.
type Request struct {
	Name         string
	Description  string
	Grid         []GridParam
	Base         map[string]float64
	Replications int
}

// Combination is one fully resolved assignment of values to every
// parameter: the base defaults overridden by one point of the grid.
type Combination struct {
	Index  int                // position in generated order, 0-based
	Params map[string]float64 // resolved parameter values
}

// ReplicationResult is the outcome of a single simulation replication.
type ReplicationResult struct {
	Seed    float64            `json:"seed"`
	Metrics map[string]float64 `json:"metrics"`
}

// AggregatedResult carries one combination's parameters and the per-metric
// arithmetic mean over its replications.
type AggregatedResult struct {
	Combination map[string]float64 `json:"combination"`
	Metrics     map[string]float64 `json:"metrics"`
}

// SweepRecord is the persisted form of one sweep: written incrementally
// after every combination (checkpoint) and finally with the terminal
// timestamp. Parameters holds the CSV column order for the flattened
// export, so a stored record is self-contained.
type SweepRecord struct {
	ID             string             `json:"id"`
	ExperimentName string             `json:"experiment_name"`
	Description    string             `json:"description,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
	Parameters     []string           `json:"parameters"`
	Results        []AggregatedResult `json:"results"`
}

// Status names one stage of the sweep state machine.
type Status string

// Sweep states. A sweep moves idle → expanding → (running →
// checkpointing)* → finalizing → done, or to failed on the first error.
const (
	StatusIdle          Status = "idle"
	StatusExpanding     Status = "expanding"
	StatusRunning       Status = "running"
	StatusCheckpointing Status = "checkpointing"
	StatusFinalizing    Status = "finalizing"
	StatusDone          Status = "done"
	StatusFailed        Status = "failed"
)

// active reports whether a sweep in this state is still in flight.
func (s Status) active() bool {
	switch s {
	case StatusExpanding, StatusRunning, StatusCheckpointing, StatusFinalizing:
		return true
	}
	return false
}

// State is a point-in-time snapshot of runner progress. Combination is
// 1-based; 0 means no combination has started yet.
type State struct {
	Status      Status             `json:"status"`
	SweepID     string             `json:"sweep_id,omitempty"`
	Name        string             `json:"name,omitempty"`
	Combination int                `json:"combination"`
	Total       int                `json:"total"`
	StartedAt   time.Time          `json:"started_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Error       string             `json:"error,omitempty"`
	Results     []AggregatedResult `json:"results,omitempty"`
}

func copyResults(results []AggregatedResult) []AggregatedResult {
	if results == nil {
		return nil
	}
	out := make([]AggregatedResult, len(results))
	for i, r := range results {
		out[i] = AggregatedResult{
			Combination: copyParams(r.Combination),
			Metrics:     copyParams(r.Metrics),
		}
	}
	return out
}

func copyParams(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
