package cellmap

// PairedGrid supports cross-set traversal (spec §4.4 "Cross-set
// traversal"): finding every pair (p_i, p_j) within cutoff where p_i comes
// from set a and p_j from set b. It builds a single CellGrid over the
// smaller of the two sets (the "reference" set, complete with periodic
// ghosts) and scans the other set's points against it one at a time; this
// is cheaper than building two grids and avoids the same-set dedup rules
// (half-stencil / i<j ordering) entirely, since a-indices and b-indices can
// never collide.
//
// When len(b) < len(a) the sets are swapped internally so the reference
// grid is always the smaller one (spec §6 "autoswap"); TraverseQuery
// corrects the reported (i, j) back to the caller's original (a, b)
// numbering so the swap is invisible to callers.
type PairedGrid[T Float] struct {
	box    *Box[T]
	ref    *CellGrid[T]
	query  [][]T // the non-reference set, in the caller's original order
	refIsA bool
	nA, nB int

	builder *Builder[T]
}

// NewPairedGrid builds a PairedGrid for cross-set traversal between a and
// b under box.
func NewPairedGrid[T Float](box *Box[T], a, b [][]T, opts Options) (*PairedGrid[T], error) {
	pg := &PairedGrid[T]{
		builder: NewBuilder[T](box),
	}
	if err := pg.Update(box, a, b, opts); err != nil {
		return nil, err
	}
	return pg, nil
}

// Update rebuilds the reference grid from (possibly new) box, a, and b.
func (pg *PairedGrid[T]) Update(box *Box[T], a, b [][]T, opts Options) error {
	pg.box = box
	pg.builder.Rebind(box)
	pg.nA, pg.nB = len(a), len(b)
	pg.refIsA = len(a) <= len(b)

	ref, query := a, b
	if !pg.refIsA {
		ref, query = b, a
	}
	grid, err := pg.builder.Build(ref, opts)
	if err != nil {
		return err
	}
	pg.ref = grid
	pg.query = query
	return nil
}

// Box returns the PairedGrid's current Box.
func (pg *PairedGrid[T]) Box() *Box[T] { return pg.box }

// NA and NB return the original (pre-autoswap) sizes of sets a and b.
func (pg *PairedGrid[T]) NA() int { return pg.nA }
func (pg *PairedGrid[T]) NB() int { return pg.nB }

// TraverseQuery visits every reference-set point within cutoff of the
// query point at queryCoords (the caller's original, unwrapped
// coordinates; originalIndex is the point's index within its own set, a or
// b according to which set is *not* the reference). wrapBuf, fracBuf,
// cartBuf, and neighborCart are caller-owned per-worker scratch (each
// dim-length) so concurrent callers (spec §5) never share state and
// repeated calls settle into zero further allocation (spec §9). emit
// receives wrapped coordinates and indices corrected back to (i in a, j in
// b) regardless of which set ended up as the reference.
func (pg *PairedGrid[T]) TraverseQuery(queryCoords []T, originalIndex int, wrapBuf, fracBuf []T, cartBuf, neighborCart []int, emit func(pi, pj []T, i, j int, d2 T)) {
	box := pg.box
	box.WrapToFirst(wrapBuf, queryCoords, fracBuf)
	box.CellOf(wrapBuf, cartBuf)

	for _, delta := range box.CrossStencil() {
		ok := true
		for i := 0; i < box.Dim; i++ {
			v := cartBuf[i] + delta[i]
			if v < 0 || v >= box.NC[i] {
				ok = false
				break
			}
			neighborCart[i] = v
		}
		if !ok {
			continue
		}
		slot, found := pg.ref.SlotAt(box.Linear(neighborCart))
		if !found {
			continue
		}
		cell := &pg.ref.Cells[slot]
		for _, rp := range cell.Live() {
			d2 := dist2(wrapBuf, rp.Coords)
			if d2 > box.CutoffSq {
				continue
			}
			if pg.refIsA {
				emit(rp.Coords, wrapBuf, rp.OriginalIndex, originalIndex, d2)
			} else {
				emit(wrapBuf, rp.Coords, originalIndex, rp.OriginalIndex, d2)
			}
		}
	}
}

func (pg *PairedGrid[T]) numWorkUnits() int { return len(pg.query) }

func (pg *PairedGrid[T]) prepareWorkers(w int) {}

func (pg *PairedGrid[T]) traverseUnit(box *Box[T], unit, worker int, ws *workerState[T], emit func(pi, pj []T, i, j int, d2 T)) {
	pg.TraverseQuery(pg.query[unit], unit, ws.wrapBuf, ws.fracBuf, ws.cartBuf, ws.nbrBuf, emit)
}
