package cellmap

import "testing"

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if !opts.Parallel {
		t.Errorf("DefaultOptions().Parallel = false, want true")
	}
	if opts.Workers != 0 {
		t.Errorf("DefaultOptions().Workers = %d, want 0 (runtime.NumCPU fallback)", opts.Workers)
	}
	if opts.UpdateLists {
		t.Errorf("DefaultOptions().UpdateLists = true, want false (lazy by default)")
	}
}

func TestResolveWorkers_ClampsToShardThreshold(t *testing.T) {
	if w := resolveWorkers(10, 8, 0); w != 1 {
		t.Errorf("resolveWorkers(10, 8, 0) = %d, want 1 (below shardThreshold)", w)
	}
	if w := resolveWorkers(shardThreshold*4, 2, 0); w != 2 {
		t.Errorf("resolveWorkers(%d, 2) = %d, want 2 (capped by workerCount)", shardThreshold*4, w)
	}
	if w := resolveWorkers(shardThreshold*4, 16, 0); w != 4 {
		t.Errorf("resolveWorkers(%d, 16) = %d, want 4 (capped by n/shardThreshold)", shardThreshold*4, w)
	}
}

func TestResolveWorkers_BatchesOverridesShardThreshold(t *testing.T) {
	if w := resolveWorkers(10, 8, 6); w != 6 {
		t.Errorf("resolveWorkers(10, 8, 6) = %d, want 6 (explicit batches overrides n/shardThreshold)", w)
	}
	if w := resolveWorkers(10, 8, 100); w != 8 {
		t.Errorf("resolveWorkers(10, 8, 100) = %d, want 8 (still capped by workerCount)", w)
	}
	if w := resolveWorkers(10, 20, 100); w != 10 {
		t.Errorf("resolveWorkers(10, 20, 100) = %d, want 10 (still capped by n)", w)
	}
}

func TestOptions_ShowProgressReportsBuildAndTraverse(t *testing.T) {
	box, err := NewBox([]float64{40, 40}, 1.5, 1)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	pts := randomPoints2D(200, 11)

	var buildCalls []int
	buildOpts := Options{
		Parallel:     false,
		ShowProgress: true,
		Progress: func(done, total int) {
			buildCalls = append(buildCalls, done)
			if total != len(pts) {
				t.Errorf("build Progress total = %d, want %d", total, len(pts))
			}
		},
	}
	grid, err := NewCellGrid(box, pts, buildOpts)
	if err != nil {
		t.Fatalf("NewCellGrid: %v", err)
	}
	if len(buildCalls) < 2 {
		t.Fatalf("build Progress called %d times, want at least 2 (start and finish)", len(buildCalls))
	}
	if buildCalls[0] != 0 {
		t.Errorf("first build Progress call = %d, want 0", buildCalls[0])
	}
	if last := buildCalls[len(buildCalls)-1]; last != len(pts) {
		t.Errorf("last build Progress call = %d, want %d", last, len(pts))
	}

	var traverseCalls int
	traverseOpts := Options{
		Parallel:     false,
		ShowProgress: true,
		Progress:     func(done, total int) { traverseCalls++ },
	}
	_, err = MapPairwise[float64, int](box, grid, 0,
		func(pi, pj []float64, i, j int, d2 float64, acc int) int { return acc + 1 },
		func(init int, perWorker []int) int {
			total := init
			for _, w := range perWorker {
				total += w
			}
			return total
		},
		traverseOpts,
	)
	if err != nil {
		t.Fatalf("MapPairwise: %v", err)
	}
	if traverseCalls == 0 {
		t.Errorf("traverse Progress never called with ShowProgress set")
	}
}

func TestOptions_ProgressNotCalledWhenShowProgressFalse(t *testing.T) {
	box, err := NewBox([]float64{40, 40}, 1.5, 1)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	pts := randomPoints2D(50, 12)
	called := false
	opts := Options{
		Parallel: false,
		Progress: func(done, total int) { called = true },
	}
	if _, err := NewCellGrid(box, pts, opts); err != nil {
		t.Fatalf("NewCellGrid: %v", err)
	}
	if called {
		t.Errorf("Progress called despite ShowProgress being false")
	}
}
