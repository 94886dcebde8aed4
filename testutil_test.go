package cellmap

import (
	"math"
	"sort"
)

func sortPairKeys(pairs []pairKey) []pairKey {
	out := append([]pairKey(nil), pairs...)
	sort.Slice(out, func(a, b int) bool {
		if out[a].i != out[b].i {
			return out[a].i < out[b].i
		}
		return out[a].j < out[b].j
	})
	return out
}

const floatTol = 1e-9

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// bruteForcePairs is an O(n^2) oracle for same-set traversal: for
// Orthorhombic/Triclinic boxes it checks the direct (zero) offset plus every
// periodic image offset in box's full replication stencil (spec §4.2 ghost
// replication), so it agrees with the cell-list traversal regardless of box
// kind.
func bruteForcePairs(box *Box[float64], points [][]float64) []pairKey {
	var out []pairKey
	offsets := [][]int{make([]int, box.Dim)}
	if box.Kind != NonPeriodic {
		offsets = append(offsets, box.replicationOffsets...)
	}
	wrapped := make([][]float64, len(points))
	for i, p := range points {
		w := make([]float64, box.Dim)
		box.WrapToFirst(w, p, nil)
		wrapped[i] = w
	}
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			best := math.Inf(1)
			for _, off := range offsets {
				shifted := make([]float64, box.Dim)
				for d := 0; d < box.Dim; d++ {
					var s float64
					for k := 0; k < box.Dim; k++ {
						s += box.M[d][k] * float64(off[k])
					}
					shifted[d] = wrapped[j][d] + s
				}
				d2 := dist2(wrapped[i], shifted)
				if d2 < best {
					best = d2
				}
			}
			if best <= box.CutoffSq {
				out = append(out, pairKey{i, j})
			}
		}
	}
	return out
}

// bruteForceCrossPairs is the O(n*m) oracle for cross-set traversal.
func bruteForceCrossPairs(box *Box[float64], a, b [][]float64) []pairKey {
	var out []pairKey
	offsets := [][]int{make([]int, box.Dim)}
	if box.Kind != NonPeriodic {
		offsets = append(offsets, box.replicationOffsets...)
	}
	wa := make([][]float64, len(a))
	for i, p := range a {
		w := make([]float64, box.Dim)
		box.WrapToFirst(w, p, nil)
		wa[i] = w
	}
	wb := make([][]float64, len(b))
	for i, p := range b {
		w := make([]float64, box.Dim)
		box.WrapToFirst(w, p, nil)
		wb[i] = w
	}
	for i := range wa {
		for j := range wb {
			best := math.Inf(1)
			for _, off := range offsets {
				shifted := make([]float64, box.Dim)
				for d := 0; d < box.Dim; d++ {
					var s float64
					for k := 0; k < box.Dim; k++ {
						s += box.M[d][k] * float64(off[k])
					}
					shifted[d] = wb[j][d] + s
				}
				d2 := dist2(wa[i], shifted)
				if d2 < best {
					best = d2
				}
			}
			if best <= box.CutoffSq {
				out = append(out, pairKey{i, j})
			}
		}
	}
	return out
}
