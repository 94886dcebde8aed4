package cellmap

import "testing"

func TestTraverseCell_MatchesBruteForce_Orthorhombic(t *testing.T) {
	box, err := NewBox([]float64{20, 20}, 1.5, 2)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	pts := randomPoints2D(400, 10)
	grid, err := NewCellGrid(box, pts, Options{Parallel: false})
	if err != nil {
		t.Fatalf("NewCellGrid: %v", err)
	}
	got := sortPairKeys(collectPairs(box, grid, Options{Parallel: false}))
	want := sortPairKeys(bruteForcePairs(box, pts))
	if len(got) != len(want) {
		t.Fatalf("pair count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTraverseCell_MatchesBruteForce_Triclinic(t *testing.T) {
	m := [][]float64{
		{20, 4, 0},
		{0, 20, 0},
		{0, 0, 20},
	}
	box, err := NewBoxFromMatrix(m, 1.5, 2, false)
	if err != nil {
		t.Fatalf("NewBoxFromMatrix: %v", err)
	}
	pts := randomPoints3D(300, 11)
	grid, err := NewCellGrid(box, pts, Options{Parallel: false})
	if err != nil {
		t.Fatalf("NewCellGrid: %v", err)
	}
	got := sortPairKeys(collectPairs(box, grid, Options{Parallel: false}))
	want := sortPairKeys(bruteForcePairs(box, pts))
	if len(got) != len(want) {
		t.Fatalf("pair count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTraverseCell_NoSelfImagePairs(t *testing.T) {
	// A box small enough that a point's periodic ghost lands exactly at
	// cutoff distance from itself were self-pairing not suppressed.
	box, err := NewBox([]float64{1, 1}, 1.0, 1)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	pts := [][]float64{{0, 0}}
	grid, err := NewCellGrid(box, pts, Options{Parallel: false})
	if err != nil {
		t.Fatalf("NewCellGrid: %v", err)
	}
	got := collectPairs(box, grid, Options{Parallel: false})
	if len(got) != 0 {
		t.Errorf("got %d self-image pairs for a single point, want 0: %v", len(got), got)
	}
}

func TestTraverseCell_LargerLCellAgreesWithLCellOne(t *testing.T) {
	pts := randomPoints2D(500, 12)
	box1, err := NewBox([]float64{30, 30}, 1.0, 1)
	if err != nil {
		t.Fatalf("NewBox lcell=1: %v", err)
	}
	box3, err := NewBox([]float64{30, 30}, 1.0, 3)
	if err != nil {
		t.Fatalf("NewBox lcell=3: %v", err)
	}
	g1, err := NewCellGrid(box1, pts, Options{Parallel: false})
	if err != nil {
		t.Fatalf("build lcell=1: %v", err)
	}
	g3, err := NewCellGrid(box3, pts, Options{Parallel: false})
	if err != nil {
		t.Fatalf("build lcell=3: %v", err)
	}
	p1 := sortPairKeys(collectPairs(box1, g1, Options{Parallel: false}))
	p3 := sortPairKeys(collectPairs(box3, g3, Options{Parallel: false}))
	if len(p1) != len(p3) {
		t.Fatalf("lcell=1 found %d pairs, lcell=3 found %d", len(p1), len(p3))
	}
	for i := range p1 {
		if p1[i] != p3[i] {
			t.Errorf("pair[%d] = %v (lcell=1) vs %v (lcell=3)", i, p1[i], p3[i])
		}
	}
}
