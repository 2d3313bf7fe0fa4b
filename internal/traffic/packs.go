// Package traffic groups instantaneous vehicle state into packs for
// congestion analysis and decides when a running metric series has
// numerically converged. Both detectors are pure functions over their
// inputs and are safe to call from any goroutine.
package traffic

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Default detection thresholds, tuned for metre/second-scale inputs.
const (
	// DefaultGapThreshold is the largest following gap in metres that still
	// keeps two vehicles in the same pack.
	DefaultGapThreshold = 25.0
	// DefaultSpeedDiffThreshold is the largest speed offset in m/s from the
	// pack's representative speed that still keeps a vehicle in the pack.
	DefaultSpeedDiffThreshold = 5.0
)

// VehicleSnapshot is one vehicle's state at a single simulation tick.
// Position is measured along a circular lane of known length, so it may
// legitimately wrap through zero between ticks.
type VehicleSnapshot struct {
	ID       int
	Position float64 // metres along the lane
	Speed    float64 // m/s
	Lane     int
}

// Pack is a maximal run of vehicles, in sorted position order, whose
// following gaps and speed offsets stay inside the detection thresholds.
// IDs are assigned in scan order starting at zero. RepresentativeSpeed is
// the speed of the pack's first member, the anchor every later candidate
// was compared against.
type Pack struct {
	ID                  int     `json:"pack_id"`
	RepresentativeSpeed float64 `json:"representative_speed"`
	MemberIDs           []int   `json:"member_ids"`
}

// Size returns the number of vehicles in the pack.
func (p Pack) Size() int { return len(p.MemberIDs) }

// DetectPacks partitions a snapshot set into packs. Vehicles are scanned in
// ascending position order (ties broken by ID) and a new pack starts when a
// vehicle's speed differs from the current pack's representative speed by
// more than speedDiffThreshold, when its gap to the previous vehicle exceeds
// gapThreshold, or, with laneAware set, when it sits in a different lane
// than the previous vehicle.
//
// The returned packs partition the input exactly: every vehicle ID appears
// in exactly one pack, and assignment maps each ID to its pack. Empty input
// yields empty output. The function never fails.
func DetectPacks(snapshots []VehicleSnapshot, gapThreshold, speedDiffThreshold, laneLength float64, laneAware bool) ([]Pack, map[int]int) {
	assignment := make(map[int]int, len(snapshots))
	if len(snapshots) == 0 {
		return []Pack{}, assignment
	}

	ordered := make([]VehicleSnapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position < ordered[j].Position
		}
		return ordered[i].ID < ordered[j].ID
	})

	packs := make([]Pack, 0, 4)
	current := Pack{
		ID:                  0,
		RepresentativeSpeed: ordered[0].Speed,
		MemberIDs:           []int{ordered[0].ID},
	}
	assignment[ordered[0].ID] = 0

	for i := 1; i < len(ordered); i++ {
		v := ordered[i]
		prev := ordered[i-1]
		gap := CircularGap(prev.Position, v.Position, laneLength)

		split := math.Abs(v.Speed-current.RepresentativeSpeed) > speedDiffThreshold ||
			gap > gapThreshold ||
			(laneAware && v.Lane != prev.Lane)

		if split {
			packs = append(packs, current)
			current = Pack{
				ID:                  current.ID + 1,
				RepresentativeSpeed: v.Speed,
				MemberIDs:           []int{v.ID},
			}
		} else {
			current.MemberIDs = append(current.MemberIDs, v.ID)
		}
		assignment[v.ID] = current.ID
	}

	packs = append(packs, current)
	return packs, assignment
}

// CircularGap returns the forward distance from one position to the next on
// a circular lane of length laneLength, always in [0, laneLength). A
// non-positive laneLength degenerates to the plain difference.
func CircularGap(from, to, laneLength float64) float64 {
	if laneLength <= 0 {
		return to - from
	}
	return math.Mod(math.Mod(to-from, laneLength)+laneLength, laneLength)
}

// PackSizes returns each pack's member count in scan order.
func PackSizes(packs []Pack) []int {
	sizes := make([]int, len(packs))
	for i, p := range packs {
		sizes[i] = p.Size()
	}
	return sizes
}

// MeanPackSize returns the average member count across packs, or 0 for an
// empty slice.
func MeanPackSize(packs []Pack) float64 {
	if len(packs) == 0 {
		return 0
	}
	sizes := make([]float64, len(packs))
	for i, p := range packs {
		sizes[i] = float64(p.Size())
	}
	return stat.Mean(sizes, nil)
}

// LargestPackSize returns the member count of the largest pack, or 0 for an
// empty slice.
func LargestPackSize(packs []Pack) int {
	largest := 0
	for _, p := range packs {
		if p.Size() > largest {
			largest = p.Size()
		}
	}
	return largest
}
