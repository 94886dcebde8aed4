package cellmap

import (
	"math/rand"
	"sort"
	"testing"
)

func randomPoints2D(n int, seed int64) [][]float64 {
	r := rand.New(rand.NewSource(seed))
	pts := make([][]float64, n)
	for i := range pts {
		pts[i] = []float64{r.Float64() * 50, r.Float64() * 50}
	}
	return pts
}

func randomPoints3D(n int, seed int64) [][]float64 {
	r := rand.New(rand.NewSource(seed))
	pts := make([][]float64, n)
	for i := range pts {
		pts[i] = []float64{r.Float64() * 20, r.Float64() * 20, r.Float64() * 20}
	}
	return pts
}

// pairKey packs an ordered index pair into a sortable key for comparing
// pair sets regardless of traversal/merge order.
type pairKey struct {
	i, j int
}

func collectPairs(box *Box[float64], grid PairSource[float64], opts Options) []pairKey {
	emit := func(pi, pj []float64, i, j int, d2 float64, acc []pairKey) []pairKey {
		if i > j {
			i, j = j, i
		}
		return append(acc, pairKey{i, j})
	}
	reduce := func(init []pairKey, perWorker [][]pairKey) []pairKey {
		out := append([]pairKey(nil), init...)
		for _, pw := range perWorker {
			out = append(out, pw...)
		}
		return out
	}
	pairs, err := MapPairwise[float64, []pairKey](box, grid, nil, emit, reduce, opts)
	if err != nil {
		panic(err)
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].i != pairs[b].i {
			return pairs[a].i < pairs[b].i
		}
		return pairs[a].j < pairs[b].j
	})
	return pairs
}

func TestBuilder_SerialParallelEquivalence(t *testing.T) {
	box, err := NewBox([]float64{50, 50}, 2.0, 1)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	pts := randomPoints2D(2000, 1)

	serialGrid, err := NewCellGrid(box, pts, Options{Parallel: false})
	if err != nil {
		t.Fatalf("serial build: %v", err)
	}
	serialPairs := collectPairs(box, serialGrid, Options{Parallel: false})

	for _, workers := range []int{1, 2, 4} {
		grid, err := NewCellGrid(box, pts, Options{Parallel: true, Workers: workers})
		if err != nil {
			t.Fatalf("workers=%d: build: %v", workers, err)
		}
		if grid.NRealPoints != serialGrid.NRealPoints {
			t.Errorf("workers=%d: NRealPoints = %d, want %d", workers, grid.NRealPoints, serialGrid.NRealPoints)
		}
		got := collectPairs(box, grid, Options{Parallel: false})
		if len(got) != len(serialPairs) {
			t.Fatalf("workers=%d: pair count = %d, want %d", workers, len(got), len(serialPairs))
		}
		for k := range serialPairs {
			if got[k] != serialPairs[k] {
				t.Errorf("workers=%d: pair[%d] = %v, want %v", workers, k, got[k], serialPairs[k])
			}
		}
	}
}

func TestBuilder_UpdateRebuildsCleanly(t *testing.T) {
	box, err := NewBox([]float64{50, 50}, 2.0, 1)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	bd := NewBuilder[float64](box)
	first := randomPoints2D(100, 2)
	g1, err := bd.Build(first, Options{Parallel: true})
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	if g1.NRealPoints != len(first) {
		t.Fatalf("NRealPoints = %d, want %d", g1.NRealPoints, len(first))
	}

	second := randomPoints2D(300, 3)
	g2, err := bd.Build(second, Options{Parallel: true})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if g2 != g1 {
		t.Errorf("Build returned a different *CellGrid identity across calls")
	}
	if g2.NRealPoints != len(second) {
		t.Errorf("NRealPoints after rebuild = %d, want %d", g2.NRealPoints, len(second))
	}
}
