package traffic

import (
	"math"
	"math/rand"
	"testing"
)

// contiguousSnapshots builds n vehicles one metre apart at the given speeds.
func contiguousSnapshots(speeds []float64) []VehicleSnapshot {
	snaps := make([]VehicleSnapshot, len(speeds))
	for i, s := range speeds {
		snaps[i] = VehicleSnapshot{ID: i + 1, Position: float64(i), Speed: s, Lane: 0}
	}
	return snaps
}

func TestDetectPacksEmpty(t *testing.T) {
	packs, assignment := DetectPacks(nil, 5, 20, 100, false)
	if len(packs) != 0 {
		t.Errorf("expected no packs for empty input, got %d", len(packs))
	}
	if len(assignment) != 0 {
		t.Errorf("expected empty assignment, got %d entries", len(assignment))
	}
}

func TestDetectPacksSinglePack(t *testing.T) {
	snaps := contiguousSnapshots([]float64{60, 60, 60, 60})

	packs, assignment := DetectPacks(snaps, 5, 20, 100, false)
	if len(packs) != 1 {
		t.Fatalf("expected 1 pack, got %d", len(packs))
	}
	if packs[0].Size() != 4 {
		t.Errorf("expected pack of 4 vehicles, got %d", packs[0].Size())
	}
	if packs[0].RepresentativeSpeed != 60 {
		t.Errorf("expected representative speed 60, got %v", packs[0].RepresentativeSpeed)
	}
	for id, packID := range assignment {
		if packID != 0 {
			t.Errorf("vehicle %d assigned to pack %d, expected 0", id, packID)
		}
	}
}

func TestDetectPacksSpeedSplit(t *testing.T) {
	snaps := contiguousSnapshots([]float64{60, 60, 85, 85})

	packs, _ := DetectPacks(snaps, 5, 20, 100, false)
	if len(packs) != 2 {
		t.Fatalf("expected 2 packs, got %d", len(packs))
	}
	for i, p := range packs {
		if p.Size() != 2 {
			t.Errorf("pack %d: expected 2 members, got %d", i, p.Size())
		}
	}
	if packs[0].RepresentativeSpeed != 60 || packs[1].RepresentativeSpeed != 85 {
		t.Errorf("expected representative speeds 60 and 85, got %v and %v",
			packs[0].RepresentativeSpeed, packs[1].RepresentativeSpeed)
	}
}

func TestDetectPacksGapSplit(t *testing.T) {
	snaps := []VehicleSnapshot{
		{ID: 1, Position: 0, Speed: 60},
		{ID: 2, Position: 10, Speed: 60},
	}

	packs, _ := DetectPacks(snaps, 5, 20, 100, false)
	if len(packs) != 2 {
		t.Fatalf("expected 2 packs, got %d", len(packs))
	}
	for i, p := range packs {
		if p.Size() != 1 {
			t.Errorf("pack %d: expected 1 member, got %d", i, p.Size())
		}
	}
}

func TestDetectPacksLaneAware(t *testing.T) {
	snaps := []VehicleSnapshot{
		{ID: 1, Position: 0, Speed: 60, Lane: 0},
		{ID: 2, Position: 1, Speed: 60, Lane: 1},
		{ID: 3, Position: 2, Speed: 60, Lane: 0},
	}

	packs, _ := DetectPacks(snaps, 5, 20, 100, false)
	if len(packs) != 1 {
		t.Errorf("lane-blind: expected 1 pack, got %d", len(packs))
	}

	packs, _ = DetectPacks(snaps, 5, 20, 100, true)
	if len(packs) != 3 {
		t.Errorf("lane-aware: expected 3 packs, got %d", len(packs))
	}
}

func TestDetectPacksPositionTieBrokenByID(t *testing.T) {
	snaps := []VehicleSnapshot{
		{ID: 7, Position: 5, Speed: 60},
		{ID: 3, Position: 5, Speed: 60},
	}

	packs, _ := DetectPacks(snaps, 5, 20, 100, false)
	if len(packs) != 1 {
		t.Fatalf("expected 1 pack, got %d", len(packs))
	}
	if packs[0].MemberIDs[0] != 3 || packs[0].MemberIDs[1] != 7 {
		t.Errorf("expected members ordered [3 7], got %v", packs[0].MemberIDs)
	}
}

func TestDetectPacksMonotonePackIDs(t *testing.T) {
	snaps := contiguousSnapshots([]float64{60, 85, 60, 85})

	packs, _ := DetectPacks(snaps, 5, 20, 100, false)
	for i, p := range packs {
		if p.ID != i {
			t.Errorf("pack at index %d has ID %d", i, p.ID)
		}
	}
}

// TestDetectPacksPartition checks the partition property across a grid of
// thresholds: every input ID lands in exactly one pack, and the assignment
// map agrees with pack membership.
func TestDetectPacksPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	snaps := make([]VehicleSnapshot, 50)
	for i := range snaps {
		snaps[i] = VehicleSnapshot{
			ID:       i,
			Position: rng.Float64() * 1000,
			Speed:    10 + rng.Float64()*30,
			Lane:     rng.Intn(3),
		}
	}

	gaps := []float64{0.5, 5, 50, 1000}
	diffs := []float64{0.1, 2, 10, 100}
	for _, gap := range gaps {
		for _, diff := range diffs {
			for _, laneAware := range []bool{false, true} {
				packs, assignment := DetectPacks(snaps, gap, diff, 1000, laneAware)

				seen := make(map[int]int)
				for _, p := range packs {
					for _, id := range p.MemberIDs {
						seen[id]++
						if assignment[id] != p.ID {
							t.Errorf("gap=%v diff=%v: vehicle %d in pack %d but assigned %d",
								gap, diff, id, p.ID, assignment[id])
						}
					}
				}
				if len(seen) != len(snaps) {
					t.Errorf("gap=%v diff=%v: %d vehicles covered, expected %d",
						gap, diff, len(seen), len(snaps))
				}
				for id, count := range seen {
					if count != 1 {
						t.Errorf("gap=%v diff=%v: vehicle %d appears %d times",
							gap, diff, id, count)
					}
				}
			}
		}
	}
}

func TestCircularGap(t *testing.T) {
	cases := []struct {
		name           string
		from, to, lane float64
		want           float64
	}{
		{"forward", 0, 10, 100, 10},
		{"wraparound", 90, 10, 100, 20},
		{"identical", 42, 42, 100, 0},
		{"beyond lane length", 0, 150, 100, 50},
		{"degenerate lane", 5, 9, 0, 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := CircularGap(c.from, c.to, c.lane)
			if math.Abs(got-c.want) > 1e-9 {
				t.Errorf("CircularGap(%v, %v, %v) = %v, expected %v", c.from, c.to, c.lane, got, c.want)
			}
		})
	}
}

func TestPackSizeHelpers(t *testing.T) {
	packs := []Pack{
		{ID: 0, MemberIDs: []int{1, 2, 3}},
		{ID: 1, MemberIDs: []int{4}},
		{ID: 2, MemberIDs: []int{5, 6}},
	}

	sizes := PackSizes(packs)
	want := []int{3, 1, 2}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("PackSizes[%d] = %d, expected %d", i, sizes[i], want[i])
		}
	}

	if got := MeanPackSize(packs); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("MeanPackSize = %v, expected 2", got)
	}
	if got := LargestPackSize(packs); got != 3 {
		t.Errorf("LargestPackSize = %d, expected 3", got)
	}

	if got := MeanPackSize(nil); got != 0 {
		t.Errorf("MeanPackSize(nil) = %v, expected 0", got)
	}
	if got := LargestPackSize(nil); got != 0 {
		t.Errorf("LargestPackSize(nil) = %d, expected 0", got)
	}
}
