package cellmap

// Options tunes how a build or traversal runs (spec §4.3, §4.5, §6).
// The zero Options runs everything serially; DefaultOptions enables
// parallel execution, and callers override only what they need.
type Options struct {
	// Parallel enables sharded builds and multi-worker traversal. When
	// false, Workers and NBatches are ignored.
	Parallel bool

	// Workers bounds how many goroutines a parallel build or traversal may
	// use. Zero means runtime.NumCPU(); the actual worker count is further
	// capped by input size (spec §4.3's n/500 rule).
	Workers int

	// NBatchesBuild and NBatchesTraverse, when positive, override the
	// n/500 shard-count rule (spec §4.3) for a parallel build or traversal
	// respectively, so a caller can oversubscribe workers relative to
	// batches for better load balance on uneven inputs. Zero defers to the
	// input-size-based default.
	NBatchesBuild    int
	NBatchesTraverse int

	// UpdateLists, when true, has NeighborList.Update/UpdateCross refresh
	// and cache the full pair list eagerly; when false (the default), the
	// list is computed lazily the next time NeighborList() is called.
	UpdateLists bool

	// ShowProgress, when true, has Builder and MapPairwise call Progress
	// with (done, total) work-unit counts as a build/traversal proceeds.
	// A build (serial or parallel) and a parallel traversal call Progress
	// once before and once after the run (calling it mid-flight would need
	// to serialize across worker goroutines); a serial traversal calls it
	// once before and then once per unit. Progress is never called if
	// ShowProgress is false, even if non-nil.
	ShowProgress bool
	Progress     func(done, total int)
}

// DefaultOptions returns the package's default Options: parallel execution
// enabled, worker/batch counts auto-sized, lists computed lazily.
func DefaultOptions() Options {
	return Options{
		Parallel: true,
	}
}
