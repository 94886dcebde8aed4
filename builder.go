package cellmap

import (
	"runtime"
	"sync"
)

// shardThreshold is the spec §4.3 divisor: a parallel build uses at most
// n_real_points/shardThreshold workers, so tiny inputs never pay thread
// overhead.
const shardThreshold = 500

// resolveWorkers implements spec §4.3's W = max(1, min(n/500, workerCount)),
// except that a positive batches overrides the n/500 term: callers can
// request a specific shard/batch count independent of input size (e.g. to
// oversubscribe workers relative to batches for load balance on uneven
// inputs).
func resolveWorkers(n, workerCount, batches int) int {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	w := n / shardThreshold
	if batches > 0 {
		w = batches
	}
	if w > workerCount {
		w = workerCount
	}
	if w < 1 {
		w = 1
	}
	if w > n {
		w = n
	}
	return w
}

// Builder fills a CellGrid from a point set, either serially or by sharding
// the point range across goroutines and merging the per-shard grids (spec
// §4.3). It owns all its buffers across calls: repeated Build calls on
// similarly-sized inputs settle into zero further allocation (spec §9).
type Builder[T Float] struct {
	box *Box[T]

	grid     *CellGrid[T]
	scratch  *ReplicatorScratch[T]
	cartBuf  []int

	shardGrids   []*CellGrid[T]
	shardScratch []*ReplicatorScratch[T]
	shardCart    [][]int
}

// NewBuilder creates a Builder targeting box. A fresh CellGrid is owned by
// the Builder and returned (reused) by every Build call.
func NewBuilder[T Float](box *Box[T]) *Builder[T] {
	return &Builder[T]{
		box:     box,
		grid:    newEmptyCellGrid[T](box),
		scratch: NewReplicatorScratch[T](box.Dim),
		cartBuf: make([]int, box.Dim),
	}
}

// Rebind retargets the Builder at a new Box (e.g. after a cutoff/cell
// update), keeping its grids: the serial scratch buffers are reallocated
// only when the dimension changes, while each shard's scratch buffers are
// reallocated on every call. cellIndexOf is resized by the next Reset.
func (bd *Builder[T]) Rebind(box *Box[T]) {
	bd.box = box
	if bd.scratch == nil || len(bd.scratch.shift) != box.Dim {
		bd.scratch = NewReplicatorScratch[T](box.Dim)
		bd.cartBuf = make([]int, box.Dim)
	}
	for i := range bd.shardScratch {
		bd.shardScratch[i] = NewReplicatorScratch[T](box.Dim)
		bd.shardCart[i] = make([]int, box.Dim)
	}
}

// Build fills (resets and repopulates) the Builder's own CellGrid from
// points, per opts (worker/batch counts, parallelism, progress). It returns
// the Builder's owned grid. Used internally by PairedGrid and NeighborList,
// which only need one grid with a stable identity across rebuilds.
func (bd *Builder[T]) Build(points [][]T, opts Options) (*CellGrid[T], error) {
	if err := bd.BuildInto(bd.grid, points, opts); err != nil {
		return nil, err
	}
	return bd.grid, nil
}

// BuildInto fills (resets and repopulates) an externally owned CellGrid,
// so that callers who need their own grid identity across rebuilds (the
// public NewCellGrid/CellGrid.Update API) can still reuse a Builder's
// shard/scratch machinery for parallel builds. When opts.ShowProgress is
// set, opts.Progress is called once before the build starts (done=0) and
// once after it finishes (done=len(points)); mid-build granularity would
// need to serialize calls across shard goroutines, which isn't worth it
// for a one-shot build.
func (bd *Builder[T]) BuildInto(dst *CellGrid[T], points [][]T, opts Options) error {
	if err := bd.validate(points); err != nil {
		return err
	}
	report := func(done int) {
		if opts.ShowProgress && opts.Progress != nil {
			opts.Progress(done, len(points))
		}
	}
	report(0)
	if !opts.Parallel {
		bd.buildSerial(dst, bd.box, bd.scratch, bd.cartBuf, points, 0)
		report(len(points))
		return nil
	}
	w := resolveWorkers(len(points), opts.Workers, opts.NBatchesBuild)
	if w <= 1 {
		bd.buildSerial(dst, bd.box, bd.scratch, bd.cartBuf, points, 0)
		report(len(points))
		return nil
	}
	bd.ensureShards(w)
	bd.buildParallel(dst, points, w)
	report(len(points))
	return nil
}

func (bd *Builder[T]) validate(points [][]T) error {
	for _, p := range points {
		if len(p) != bd.box.Dim {
			return ErrDimensionMismatch
		}
	}
	return nil
}

func (bd *Builder[T]) ensureShards(w int) {
	for len(bd.shardGrids) < w {
		bd.shardGrids = append(bd.shardGrids, newEmptyCellGrid[T](bd.box))
		bd.shardScratch = append(bd.shardScratch, NewReplicatorScratch[T](bd.box.Dim))
		bd.shardCart = append(bd.shardCart, make([]int, bd.box.Dim))
	}
}

// buildSerial resets dst and inserts every point of points, numbering them
// from startIdx so a shard's points keep their global indices (startIdx is
// always 0 for the single-threaded path).
func (bd *Builder[T]) buildSerial(dst *CellGrid[T], box *Box[T], scratch *ReplicatorScratch[T], cart []int, points [][]T, startIdx int) {
	dst.Reset(box)
	for i, p := range points {
		wrapped := dst.AllocCoord(box.Dim)
		box.WrapToFirst(wrapped, p, scratch.frac)
		box.CellOf(wrapped, cart)
		dst.InsertReal(box, cart, wrapped, startIdx+i)
		Replicate(box, dst, wrapped, startIdx+i, scratch)
	}
}

func (bd *Builder[T]) buildParallel(dst *CellGrid[T], points [][]T, w int) {
	n := len(points)
	rowsPerWorker := (n + w - 1) / w

	var wg sync.WaitGroup
	for wi := 0; wi < w; wi++ {
		start := wi * rowsPerWorker
		end := start + rowsPerWorker
		if end > n {
			end = n
		}
		if start >= n {
			bd.shardGrids[wi].Reset(bd.box)
			continue
		}
		wg.Add(1)
		go func(wi, start, end int) {
			defer wg.Done()
			bd.buildSerial(bd.shardGrids[wi], bd.box, bd.shardScratch[wi], bd.shardCart[wi], points[start:end], start)
		}(wi, start, end)
	}
	wg.Wait()

	bd.mergeShards(dst, w)
}

// mergeShards merges the first w shard grids into dst (spec §4.3): for
// each non-empty source cell, either claim an empty destination slot or
// append to the existing one. The resulting pair set is deterministic; the
// per-cell order across shard boundaries is not (spec §4.4 "Determinism").
func (bd *Builder[T]) mergeShards(dst *CellGrid[T], w int) {
	box := bd.box
	dst.Reset(box)

	for wi := 0; wi < w; wi++ {
		shard := bd.shardGrids[wi]
		for si := range shard.Cells {
			sc := &shard.Cells[si]
			if sc.NPoints == 0 {
				continue
			}
			dstSlot := dst.slotFor(box, sc.LinearIndex, sc.CartesianIndex)
			dc := &dst.Cells[dstSlot]
			wasReal := dc.ContainsReal

			for k := 0; k < sc.NReal; k++ {
				dc.insertReal(sc.Points[k])
			}
			for k := sc.NReal; k < sc.NPoints; k++ {
				dc.insertGhost(sc.Points[k])
			}

			if dc.ContainsReal && !wasReal {
				dst.RealCellSlots = append(dst.RealCellSlots, dstSlot)
				dst.NCellsWithRealPoints++
			}
			dst.NRealPoints += sc.NReal
			dst.NTotalPoints += sc.NPoints
		}
	}
}
