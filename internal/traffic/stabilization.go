package traffic

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// recentWindowMax bounds how many trailing moving-average points are
// examined when judging convergence.
const recentWindowMax = 5

// StabilizationResult reports whether a metric series has numerically
// converged. Value carries the best current estimate of the metric: the
// recent-window mean once enough history exists, otherwise the last
// observation. ConfidenceLevel is 1-CV clamped to [0,1].
type StabilizationResult struct {
	Value           float64 `json:"value"`
	IsStabilized    bool    `json:"is_stabilized"`
	ConfidenceLevel float64 `json:"confidence_level"`
}

// DetectStabilization decides whether series has converged by comparing the
// coefficient of variation of recent trailing moving averages against
// stabilityThreshold. windowSize is the moving-average span in samples;
// values below 1 are treated as 1. The function is total and deterministic.
//
// With fewer than 2*windowSize samples there is not enough history to
// judge, and the result is not-stabilized with zero confidence.
func DetectStabilization(series []float64, windowSize int, stabilityThreshold float64) StabilizationResult {
	if windowSize < 1 {
		windowSize = 1
	}

	if len(series) < 2*windowSize {
		var last float64
		if len(series) > 0 {
			last = series[len(series)-1]
		}
		return StabilizationResult{Value: last}
	}

	averages := trailingAverages(series, windowSize)

	n := min(recentWindowMax, len(averages))
	recent := averages[len(averages)-n:]
	if len(recent) < 2 {
		var last float64
		if len(averages) > 0 {
			last = averages[len(averages)-1]
		}
		return StabilizationResult{Value: last}
	}

	mean := stat.Mean(recent, nil)
	stddev := stat.PopStdDev(recent, nil)

	// A zero mean makes CV undefined; treat as maximally variable so the
	// series is never reported stable.
	cv := 1.0
	if mean != 0 {
		cv = stddev / math.Abs(mean)
	}

	return StabilizationResult{
		Value:           mean,
		IsStabilized:    cv < stabilityThreshold,
		ConfidenceLevel: clamp(1-cv, 0, 1),
	}
}

// trailingAverages computes the mean of the preceding windowSize raw samples
// at every index from windowSize-1 onward, using a rolling sum.
func trailingAverages(series []float64, windowSize int) []float64 {
	out := make([]float64, 0, len(series)-windowSize+1)
	var sum float64
	for i, v := range series {
		sum += v
		if i >= windowSize {
			sum -= series[i-windowSize]
		}
		if i >= windowSize-1 {
			out = append(out, sum/float64(windowSize))
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
