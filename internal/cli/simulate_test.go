package cli

import (
	"encoding/json"
	"strings"
	"testing"
)

// uniformArgs describe a fleet with identical targets and generous spacing,
// so the run settles at exactly the target speed.
var uniformArgs = []string{
	"--set", "vehicle_count=10",
	"--set", "target_speed=20",
	"--set", "speed_variation=0",
	"--set", "steps=50",
	"--set", "window_size=10",
}

func TestSimulateCmdJSON(t *testing.T) {
	out, err := runCmd(t, nil, append([]string{"simulate", "--json"}, uniformArgs...)...)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	var metrics map[string]float64
	if err := json.Unmarshal([]byte(out), &metrics); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if metrics["mean_speed"] != 20 {
		t.Errorf("mean_speed = %g, expected 20", metrics["mean_speed"])
	}
	if metrics["stabilized"] != 1 {
		t.Errorf("stabilized = %g, expected 1", metrics["stabilized"])
	}
	if metrics["pack_count"] != 10 {
		t.Errorf("pack_count = %g, expected 10", metrics["pack_count"])
	}
}

func TestSimulateCmdTable(t *testing.T) {
	out, err := runCmd(t, nil, append([]string{"simulate", "--units", "mph"}, uniformArgs...)...)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	if !strings.Contains(out, "mean_speed") {
		t.Errorf("output missing mean_speed row: %q", out)
	}
	// 20 m/s converts to 44.74 mph.
	if !strings.Contains(out, "44.74 mph") {
		t.Errorf("output missing converted speed: %q", out)
	}
	if !strings.Contains(out, "pack_count") {
		t.Errorf("output missing pack_count row: %q", out)
	}
}

func TestSimulateCmdSeedChangesMetrics(t *testing.T) {
	base := []string{"simulate", "--json", "--set", "speed_variation=5", "--set", "steps=50"}

	first, err := runCmd(t, nil, append(base, "--seed", "1")...)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	second, err := runCmd(t, nil, append(base, "--seed", "2")...)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	same, err := runCmd(t, nil, append(base, "--seed", "1")...)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	if first == second {
		t.Error("different seeds produced identical metrics")
	}
	if first != same {
		t.Error("same seed produced different metrics")
	}
}

func TestSimulateCmdRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"malformed set", []string{"simulate", "--set", "vehicle_count"}},
		{"non-numeric set", []string{"simulate", "--set", "vehicle_count=lots"}},
		{"unknown parameter", []string{"simulate", "--set", "vehicle_cout=40"}},
		{"invalid units", []string{"simulate", "--units", "furlongs"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := runCmd(t, nil, tc.args...); err == nil {
				t.Errorf("expected error for %v", tc.args)
			}
		})
	}
}
