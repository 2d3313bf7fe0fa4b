package sweep

import (
	"context"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/packwave/internal/timeutil"
)

// DefaultSeed is the base random seed when a combination does not set one.
// Replication i runs with seed base+i.
const DefaultSeed = 42

// maxReplications bounds the fan-out per combination; every replication
// runs as its own goroutine.
const maxReplications = 1000

// RunReplications runs the requested number of independent replications of
// one combination concurrently and returns the per-metric mean across them.
// Replication i gets seed base+i where base is the combination's "seed"
// parameter, or DefaultSeed when unset. If any replication errors, the
// lowest-index failure is returned as a ReplicationFailure and the
// aggregate is discarded. All replications must report the same metric
// keys; a mismatch is a ConfigurationError.
func RunReplications(ctx context.Context, combo Combination, replications int, simulate SimulateFunc) (AggregatedResult, error) {
	agg, _, err := runReplications(ctx, combo, replications, simulate, nil)
	return agg, err
}

// runReplications is RunReplications plus optional per-replication wall
// time, measured with clock when non-nil. Durations are index-keyed and
// returned even on failure.
func runReplications(ctx context.Context, combo Combination, replications int, simulate SimulateFunc, clock timeutil.Clock) (AggregatedResult, []time.Duration, error) {
	if simulate == nil {
		return AggregatedResult{}, nil, &ConfigurationError{Field: "simulate", Reason: "no simulation function"}
	}
	if replications < 1 {
		return AggregatedResult{}, nil, &ConfigurationError{Field: "replications", Reason: "must be at least 1"}
	}
	if replications > maxReplications {
		return AggregatedResult{}, nil, &ConfigurationError{Field: "replications", Reason: "more than 1000 replications per combination"}
	}

	seedBase := float64(DefaultSeed)
	if s, ok := combo.Params["seed"]; ok {
		seedBase = s
	}

	// Each goroutine writes only its own index; no shared mutable state.
	reps := make([]ReplicationResult, replications)
	errs := make([]error, replications)
	durations := make([]time.Duration, replications)

	var wg sync.WaitGroup
	for i := 0; i < replications; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seed := seedBase + float64(i)
			params := make(map[string]float64, len(combo.Params)+1)
			for k, v := range combo.Params {
				params[k] = v
			}
			params["seed"] = seed

			var start time.Time
			if clock != nil {
				start = clock.Now()
			}
			metrics, err := simulate(ctx, params)
			if clock != nil {
				durations[i] = clock.Since(start)
			}
			reps[i] = ReplicationResult{Seed: seed, Metrics: metrics}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	// Fail fast on the lowest replication index, not on arrival order.
	for i, err := range errs {
		if err != nil {
			return AggregatedResult{}, durations, &ReplicationFailure{
				Combination: combo,
				Seed:        seedBase + float64(i),
				Err:         err,
			}
		}
	}

	keys := metricKeys(reps[0].Metrics)
	for i := 1; i < replications; i++ {
		if !sameMetricKeys(keys, reps[i].Metrics) {
			return AggregatedResult{}, durations, &ConfigurationError{
				Field:  "metrics",
				Reason: "replications disagree on metric keys (simulation output is not stable)",
			}
		}
	}

	agg := AggregatedResult{
		Combination: copyParams(combo.Params),
		Metrics:     make(map[string]float64, len(keys)),
	}
	samples := make([]float64, replications)
	for _, key := range keys {
		for i := range reps {
			samples[i] = reps[i].Metrics[key]
		}
		agg.Metrics[key] = stat.Mean(samples, nil)
	}
	return agg, durations, nil
}

func metricKeys(metrics map[string]float64) []string {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sameMetricKeys(keys []string, metrics map[string]float64) bool {
	if len(metrics) != len(keys) {
		return false
	}
	for _, k := range keys {
		if _, ok := metrics[k]; !ok {
			return false
		}
	}
	return true
}
