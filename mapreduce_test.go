package cellmap

import "testing"

func TestMapPairwise_SerialParallelEquivalence(t *testing.T) {
	box, err := NewBox([]float64{40, 40}, 1.5, 1)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	pts := randomPoints2D(1500, 50)
	grid, err := NewCellGrid(box, pts, Options{Parallel: false})
	if err != nil {
		t.Fatalf("NewCellGrid: %v", err)
	}

	sum := func(pi, pj []float64, i, j int, d2 float64, acc float64) float64 {
		return acc + d2
	}
	reduce := func(init float64, perWorker []float64) float64 {
		total := init
		for _, w := range perWorker {
			total += w
		}
		return total
	}

	serial, err := MapPairwise[float64, float64](box, grid, 0, sum, reduce, Options{Parallel: false})
	if err != nil {
		t.Fatalf("serial MapPairwise: %v", err)
	}

	for _, workers := range []int{1, 2, 4} {
		got, err := MapPairwise[float64, float64](box, grid, 0, sum, reduce, Options{Parallel: true, Workers: workers})
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if !almostEqual(got, serial, 1e-6) {
			t.Errorf("workers=%d: sum = %v, want %v", workers, got, serial)
		}
	}
}

func TestMapPairwise_EmptyGridReturnsInit(t *testing.T) {
	box, err := NewBox([]float64{10, 10}, 1.0, 1)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	grid, err := NewCellGrid(box, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("NewCellGrid: %v", err)
	}
	f := func(pi, pj []float64, i, j int, d2 float64, acc int) int { return acc + 1 }
	reduce := func(init int, perWorker []int) int {
		total := init
		for _, w := range perWorker {
			total += w
		}
		return total
	}
	got, err := MapPairwise[float64, int](box, grid, 7, f, reduce, DefaultOptions())
	if err != nil {
		t.Fatalf("MapPairwise: %v", err)
	}
	if got != 7 {
		t.Errorf("got = %d, want 7 (init unchanged for an empty grid)", got)
	}
}

func TestMapPairwise_CountMatchesPairList(t *testing.T) {
	box, err := NewBox([]float64{30, 30}, 1.2, 1)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	pts := randomPoints2D(600, 51)
	grid, err := NewCellGrid(box, pts, Options{Parallel: false})
	if err != nil {
		t.Fatalf("NewCellGrid: %v", err)
	}
	count := func(pi, pj []float64, i, j int, d2 float64, acc int) int { return acc + 1 }
	reduce := func(init int, perWorker []int) int {
		total := init
		for _, w := range perWorker {
			total += w
		}
		return total
	}
	got, err := MapPairwise[float64, int](box, grid, 0, count, reduce, Options{Parallel: false})
	if err != nil {
		t.Fatalf("MapPairwise: %v", err)
	}
	want := len(collectPairs(box, grid, Options{Parallel: false}))
	if got != want {
		t.Errorf("pair count via MapPairwise = %d, want %d", got, want)
	}
}
