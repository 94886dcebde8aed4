package cellmap

import "sync"

// PairSource is implemented by CellGrid (same-set traversal) and
// PairedGrid (cross-set traversal): anything MapPairwise can drive. Both
// divide their traversal into independent "work units" (a real-point
// cell, or a single query point) that can be split across workers with no
// coordination beyond the final reduce.
type PairSource[T Float] interface {
	numWorkUnits() int
	prepareWorkers(w int)
	traverseUnit(box *Box[T], unit, worker int, ws *workerState[T], emit func(pi, pj []T, i, j int, d2 T))
}

// workerState holds every per-worker scratch buffer a traversal needs, so
// MapPairwise allocates one of these per worker rather than per pair (spec
// §9, "Arena reuse").
type workerState[T Float] struct {
	traverse *TraverseScratch[T]
	wrapBuf  []T
	fracBuf  []T
	cartBuf  []int
	nbrBuf   []int
}

func newWorkerState[T Float](dim int) *workerState[T] {
	return &workerState[T]{
		traverse: NewTraverseScratch[T](dim),
		wrapBuf:  make([]T, dim),
		fracBuf:  make([]T, dim),
		cartBuf:  make([]int, dim),
		nbrBuf:   make([]int, dim),
	}
}

// MapPairwise folds f over every pair within cutoff that grid's traversal
// visits, splitting work across opts.Workers goroutines when opts.Parallel
// (opts.NBatchesTraverse overrides the batch count, if positive), and
// combines the resulting per-worker accumulators with reduce (spec §4.5).
// When opts.ShowProgress is set, opts.Progress is called with the completed
// work-unit count: per unit on the serial path, before/after on the
// parallel path (reporting mid-flight progress there would need to
// serialize calls across workers).
//
// f is expected to be a pure fold — it returns the next accumulator value
// rather than mutating one in place — so each worker can start from a
// plain Go copy of init (`acc := init`) with no deep-clone machinery: two
// workers never share the backing memory of a mutated accumulator, because
// neither one mutates in place to begin with.
func MapPairwise[T Float, Acc any](
	box *Box[T], grid PairSource[T], init Acc,
	f func(pi, pj []T, i, j int, d2 T, acc Acc) Acc,
	reduce func(init Acc, perWorker []Acc) Acc,
	opts Options,
) (Acc, error) {
	n := grid.numWorkUnits()
	report := func(done int) {
		if opts.ShowProgress && opts.Progress != nil {
			opts.Progress(done, n)
		}
	}
	if n == 0 {
		report(0)
		return reduce(init, nil), nil
	}
	report(0)

	w := 1
	if opts.Parallel {
		w = resolveWorkers(n, opts.Workers, opts.NBatchesTraverse)
	}
	if w <= 1 {
		ws := newWorkerState[T](box.Dim)
		acc := init
		for unit := 0; unit < n; unit++ {
			grid.traverseUnit(box, unit, 0, ws, func(pi, pj []T, i, j int, d2 T) {
				acc = f(pi, pj, i, j, d2, acc)
			})
			report(unit + 1)
		}
		return reduce(init, []Acc{acc}), nil
	}

	grid.prepareWorkers(w)
	perWorker := make([]Acc, w)
	unitsPerWorker := (n + w - 1) / w

	var wg sync.WaitGroup
	for wi := 0; wi < w; wi++ {
		start := wi * unitsPerWorker
		end := start + unitsPerWorker
		if end > n {
			end = n
		}
		if start >= n {
			perWorker[wi] = init
			continue
		}
		wg.Add(1)
		go func(wi, start, end int) {
			defer wg.Done()
			ws := newWorkerState[T](box.Dim)
			acc := init
			for unit := start; unit < end; unit++ {
				grid.traverseUnit(box, unit, wi, ws, func(pi, pj []T, i, j int, d2 T) {
					acc = f(pi, pj, i, j, d2, acc)
				})
			}
			perWorker[wi] = acc
		}(wi, start, end)
	}
	wg.Wait()
	report(n)

	return reduce(init, perWorker), nil
}
