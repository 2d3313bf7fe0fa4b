// Package sim implements the ring-road traffic model that sweep
// replications execute. Vehicles circulate on a closed loop, relax toward
// individual target speeds and brake when the headway to their leader
// shrinks, which is enough for speed perturbations to grow into packs.
package sim

import (
	"github.com/banshee-data/packwave/internal/sweep"
	"github.com/banshee-data/packwave/internal/traffic"
)

// Config holds fully resolved simulation parameters.
type Config struct {
	VehicleCount       int
	LaneLength         float64 // metres
	LaneCount          int
	TargetSpeed        float64 // m/s
	SpeedVariation     float64 // stddev of per-vehicle target speed, m/s
	MinHeadway         float64 // metres; braking starts below this gap
	StepSeconds        float64
	Steps              int
	GapThreshold       float64
	SpeedDiffThreshold float64
	WindowSize         int
	StabilityThreshold float64
	Seed               int64
}

// defaults define the accepted parameter names. A sweep or config file may
// override any of them; anything else is rejected.
var defaults = map[string]float64{
	"vehicle_count":        40,
	"lane_length":          1000,
	"lane_count":           1,
	"target_speed":         27.8, // ~100 km/h
	"speed_variation":      3,
	"min_headway":          12,
	"step_seconds":         0.5,
	"steps":                600,
	"gap_threshold":        traffic.DefaultGapThreshold,
	"speed_diff_threshold": traffic.DefaultSpeedDiffThreshold,
	"window_size":          30,
	"stability_threshold":  0.05,
	"seed":                 42,
}

// Defaults returns a copy of the default parameter map.
func Defaults() map[string]float64 {
	out := make(map[string]float64, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// Resolve merges params over the defaults and validates the result.
// Unknown parameter names are rejected rather than silently ignored, so a
// typo in a sweep grid fails the sweep instead of sweeping nothing.
// Fractional counts truncate.
func Resolve(params map[string]float64) (Config, error) {
	merged := Defaults()
	for name, value := range params {
		if _, ok := merged[name]; !ok {
			return Config{}, &sweep.ConfigurationError{Field: name, Reason: "unknown simulation parameter"}
		}
		merged[name] = value
	}

	cfg := Config{
		VehicleCount:       int(merged["vehicle_count"]),
		LaneLength:         merged["lane_length"],
		LaneCount:          int(merged["lane_count"]),
		TargetSpeed:        merged["target_speed"],
		SpeedVariation:     merged["speed_variation"],
		MinHeadway:         merged["min_headway"],
		StepSeconds:        merged["step_seconds"],
		Steps:              int(merged["steps"]),
		GapThreshold:       merged["gap_threshold"],
		SpeedDiffThreshold: merged["speed_diff_threshold"],
		WindowSize:         int(merged["window_size"]),
		StabilityThreshold: merged["stability_threshold"],
		Seed:               int64(merged["seed"]),
	}

	switch {
	case cfg.VehicleCount < 1:
		return Config{}, &sweep.ConfigurationError{Field: "vehicle_count", Reason: "must be at least 1"}
	case cfg.VehicleCount > 100000:
		return Config{}, &sweep.ConfigurationError{Field: "vehicle_count", Reason: "more than 100000 vehicles"}
	case cfg.LaneLength <= 0:
		return Config{}, &sweep.ConfigurationError{Field: "lane_length", Reason: "must be positive"}
	case cfg.LaneCount < 1:
		return Config{}, &sweep.ConfigurationError{Field: "lane_count", Reason: "must be at least 1"}
	case cfg.TargetSpeed <= 0:
		return Config{}, &sweep.ConfigurationError{Field: "target_speed", Reason: "must be positive"}
	case cfg.SpeedVariation < 0:
		return Config{}, &sweep.ConfigurationError{Field: "speed_variation", Reason: "must not be negative"}
	case cfg.MinHeadway < 0:
		return Config{}, &sweep.ConfigurationError{Field: "min_headway", Reason: "must not be negative"}
	case cfg.StepSeconds <= 0:
		return Config{}, &sweep.ConfigurationError{Field: "step_seconds", Reason: "must be positive"}
	case cfg.Steps < 1:
		return Config{}, &sweep.ConfigurationError{Field: "steps", Reason: "must be at least 1"}
	case cfg.GapThreshold <= 0:
		return Config{}, &sweep.ConfigurationError{Field: "gap_threshold", Reason: "must be positive"}
	case cfg.SpeedDiffThreshold < 0:
		return Config{}, &sweep.ConfigurationError{Field: "speed_diff_threshold", Reason: "must not be negative"}
	case cfg.WindowSize < 1:
		return Config{}, &sweep.ConfigurationError{Field: "window_size", Reason: "must be at least 1"}
	case cfg.StabilityThreshold <= 0:
		return Config{}, &sweep.ConfigurationError{Field: "stability_threshold", Reason: "must be positive"}
	}

	return cfg, nil
}
