package sim

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/packwave/internal/sweep"
	"github.com/banshee-data/packwave/internal/traffic"
)

// Relaxation rates per second. Braking reacts harder than free-flow
// acceleration so jams propagate backwards instead of dissolving.
const (
	accelRate = 0.5
	brakeRate = 2.0

	// Floor for per-vehicle target speeds after noise is applied.
	minTargetSpeed = 0.5
)

// Model is one instance of the ring-road simulation. It is not safe for
// concurrent use; sweep replications each construct their own.
type Model struct {
	cfg      Config
	rng      *rand.Rand
	vehicles []vehicle
}

type vehicle struct {
	id       int
	lane     int
	position float64
	speed    float64
	target   float64
}

// New seeds a model with cfg.Seed and places vehicles round-robin across
// lanes, evenly spaced within each lane, starting at their individual
// target speed.
func New(cfg Config) *Model {
	rng := rand.New(rand.NewSource(cfg.Seed))
	vehicles := make([]vehicle, cfg.VehicleCount)

	laneCounts := make([]int, cfg.LaneCount)
	for i := range vehicles {
		laneCounts[i%cfg.LaneCount]++
	}

	slot := make([]int, cfg.LaneCount)
	for i := range vehicles {
		lane := i % cfg.LaneCount
		spacing := cfg.LaneLength / float64(laneCounts[lane])
		target := cfg.TargetSpeed + rng.NormFloat64()*cfg.SpeedVariation
		if target < minTargetSpeed {
			target = minTargetSpeed
		}
		vehicles[i] = vehicle{
			id:       i,
			lane:     lane,
			position: float64(slot[lane]) * spacing,
			speed:    target,
			target:   target,
		}
		slot[lane]++
	}

	return &Model{cfg: cfg, rng: rng, vehicles: vehicles}
}

// Step advances the model by one tick. Speeds are computed from the
// pre-step state for every vehicle, then applied, so update order never
// influences the outcome.
func (m *Model) Step() {
	dt := m.cfg.StepSeconds
	next := make([]float64, len(m.vehicles))

	for _, laneIdx := range m.laneOrder() {
		for k, vi := range laneIdx {
			v := m.vehicles[vi]
			if len(laneIdx) == 1 {
				next[vi] = approach(v.speed, v.target, accelRate*dt)
				continue
			}
			leader := m.vehicles[laneIdx[(k+1)%len(laneIdx)]]
			gap := traffic.CircularGap(v.position, leader.position, m.cfg.LaneLength)
			if gap < m.cfg.MinHeadway {
				// Too close: match a fraction of the leader's speed,
				// smaller the tighter the gap.
				want := leader.speed * gap / m.cfg.MinHeadway
				next[vi] = approach(v.speed, want, brakeRate*dt)
			} else {
				next[vi] = approach(v.speed, v.target, accelRate*dt)
			}
			if next[vi] < 0 {
				next[vi] = 0
			}
		}
	}

	for i := range m.vehicles {
		m.vehicles[i].speed = next[i]
		m.vehicles[i].position = math.Mod(m.vehicles[i].position+next[i]*dt, m.cfg.LaneLength)
	}
}

// laneOrder returns vehicle indices grouped by lane, sorted by position,
// so each vehicle's leader is the next entry in its lane (circularly).
func (m *Model) laneOrder() [][]int {
	order := make([][]int, m.cfg.LaneCount)
	for i, v := range m.vehicles {
		order[v.lane] = append(order[v.lane], i)
	}
	for _, laneIdx := range order {
		sort.Slice(laneIdx, func(a, b int) bool {
			return m.vehicles[laneIdx[a]].position < m.vehicles[laneIdx[b]].position
		})
	}
	return order
}

// Snapshot returns the current vehicle state in detector form.
func (m *Model) Snapshot() []traffic.VehicleSnapshot {
	out := make([]traffic.VehicleSnapshot, len(m.vehicles))
	for i, v := range m.vehicles {
		out[i] = traffic.VehicleSnapshot{ID: v.id, Position: v.position, Speed: v.speed, Lane: v.lane}
	}
	return out
}

// Result is one completed simulation run: the emergent metrics plus the
// raw state the CLI reports on.
type Result struct {
	Metrics   map[string]float64
	Series    []float64 // mean speed per tick
	Snapshots []traffic.VehicleSnapshot
	Packs     []traffic.Pack
	Stability traffic.StabilizationResult
}

// Run steps the model to completion and derives metrics from the final
// state. Cancellation is honored only before stepping starts; a run in
// flight is cheap enough to always finish.
func (m *Model) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	series := make([]float64, 0, m.cfg.Steps)
	speeds := make([]float64, len(m.vehicles))
	for step := 0; step < m.cfg.Steps; step++ {
		m.Step()
		for i, v := range m.vehicles {
			speeds[i] = v.speed
		}
		series = append(series, stat.Mean(speeds, nil))
	}

	snapshots := m.Snapshot()
	packs, _ := traffic.DetectPacks(snapshots, m.cfg.GapThreshold, m.cfg.SpeedDiffThreshold, m.cfg.LaneLength, m.cfg.LaneCount > 1)
	stability := traffic.DetectStabilization(series, m.cfg.WindowSize, m.cfg.StabilityThreshold)

	metrics := map[string]float64{
		"mean_speed":            stat.Mean(speeds, nil),
		"speed_stddev":          stat.PopStdDev(speeds, nil),
		"pack_count":            float64(len(packs)),
		"mean_pack_size":        traffic.MeanPackSize(packs),
		"largest_pack":          float64(traffic.LargestPackSize(packs)),
		"stabilized":            boolMetric(stability.IsStabilized),
		"stability_confidence":  stability.ConfidenceLevel,
		"stabilized_mean_speed": stability.Value,
	}

	return &Result{
		Metrics:   metrics,
		Series:    series,
		Snapshots: snapshots,
		Packs:     packs,
		Stability: stability,
	}, nil
}

// Simulate resolves params, runs one replication and returns its metrics.
// It is the production sweep.SimulateFunc.
func Simulate(ctx context.Context, params map[string]float64) (map[string]float64, error) {
	cfg, err := Resolve(params)
	if err != nil {
		return nil, err
	}
	result, err := New(cfg).Run(ctx)
	if err != nil {
		return nil, err
	}
	return result.Metrics, nil
}

var _ sweep.SimulateFunc = Simulate

func approach(current, want, fraction float64) float64 {
	if fraction > 1 {
		fraction = 1
	}
	return current + (want-current)*fraction
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
