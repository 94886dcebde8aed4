package cellmap

import "fmt"

// Pair is one neighbor pair reported by NeighborList: points I and J are
// within the configured cutoff, at distance D. D is the true Euclidean
// distance (sqrt paid once per reported pair, not once per candidate).
type Pair[T Float] struct {
	I, J int
	D    T
}

// CellSpec requests a periodic unit cell from NewNeighborList,
// NewCrossNeighborList, Update, or UpdateCross. Exactly one of Sides or
// Matrix should be set: Sides builds an Orthorhombic box (NewBox), Matrix a
// Triclinic one (NewBoxFromMatrix). A nil *CellSpec (the default) leaves the
// façade inferring a NonPeriodic box from the points, as before.
type CellSpec[T Float] struct {
	Sides  []T
	Matrix [][]T
}

func (cs *CellSpec[T]) buildBox(points [][]T, cutoff T, lcell int) (*Box[T], error) {
	if cs == nil {
		return NewNonPeriodicBox(points, cutoff, lcell)
	}
	if cs.Sides != nil && cs.Matrix != nil {
		return nil, fmt.Errorf("%w: CellSpec has both Sides and Matrix set", ErrDimensionMismatch)
	}
	if cs.Matrix != nil {
		return NewBoxFromMatrix(cs.Matrix, cutoff, lcell, false)
	}
	if cs.Sides != nil {
		return NewBox(cs.Sides, cutoff, lcell)
	}
	return nil, fmt.Errorf("%w: CellSpec has neither Sides nor Matrix set", ErrDimensionMismatch)
}

// NeighborList is the convenience façade over Box/CellGrid/PairedGrid/
// MapPairwise (spec §6): given one or two point sets and a cutoff, it
// exposes the complete list of pairs within cutoff. Passing a nil CellSpec
// to Update/UpdateCross infers a NonPeriodic box sized to the input points;
// passing one builds the periodic box it describes. Callers who need
// anything more bespoke use Box/CellGrid/PairedGrid/MapPairwise directly.
type NeighborList[T Float] struct {
	cutoff T
	lcell  int
	opts   Options
	cross  bool

	box     *Box[T]
	builder *Builder[T]
	grid    *CellGrid[T]
	paired  *PairedGrid[T]

	pairs []Pair[T]
	dirty bool
}

// NewNeighborList builds a NeighborList over a single point set. cell is
// nil for a NonPeriodic box inferred from points, or a *CellSpec to build a
// periodic one.
func NewNeighborList[T Float](points [][]T, cutoff T, cell *CellSpec[T], opts Options) (*NeighborList[T], error) {
	if err := validateCutoff(cutoff); err != nil {
		return nil, err
	}
	nl := &NeighborList[T]{cutoff: cutoff, lcell: defaultLCell, opts: opts}
	if err := nl.Update(points, cell); err != nil {
		return nil, err
	}
	return nl, nil
}

// NewCrossNeighborList builds a NeighborList reporting pairs (i, j) with
// point i from a and point j from b. cell is nil for a NonPeriodic box
// inferred from a and b together, or a *CellSpec to build a periodic one.
func NewCrossNeighborList[T Float](a, b [][]T, cutoff T, cell *CellSpec[T], opts Options) (*NeighborList[T], error) {
	if err := validateCutoff(cutoff); err != nil {
		return nil, err
	}
	nl := &NeighborList[T]{cutoff: cutoff, lcell: defaultLCell, opts: opts}
	if err := nl.UpdateCross(a, b, cell); err != nil {
		return nil, err
	}
	return nl, nil
}

// Update replaces the point set (same cutoff, same Options) and rebuilds
// the underlying CellGrid, reusing every buffer the Builder owns. A nil
// cell infers a NonPeriodic box from points, as before.
func (nl *NeighborList[T]) Update(points [][]T, cell *CellSpec[T]) error {
	box, err := cell.buildBox(points, nl.cutoff, nl.lcell)
	if err != nil {
		return err
	}
	nl.box = box
	nl.cross = false
	if nl.builder == nil {
		nl.builder = NewBuilder[T](box)
	} else {
		nl.builder.Rebind(box)
	}
	grid, err := nl.builder.Build(points, nl.opts)
	if err != nil {
		return err
	}
	nl.grid = grid
	nl.paired = nil
	nl.dirty = true
	if nl.opts.UpdateLists {
		_, err := nl.NeighborList()
		return err
	}
	return nil
}

// UpdateCross replaces both point sets and rebuilds the underlying
// PairedGrid. A nil cell infers a NonPeriodic box from a and b together, as
// before.
func (nl *NeighborList[T]) UpdateCross(a, b [][]T, cell *CellSpec[T]) error {
	var box *Box[T]
	var err error
	if cell == nil {
		all := make([][]T, 0, len(a)+len(b))
		all = append(all, a...)
		all = append(all, b...)
		box, err = NewNonPeriodicBox(all, nl.cutoff, nl.lcell)
	} else {
		box, err = cell.buildBox(nil, nl.cutoff, nl.lcell)
	}
	if err != nil {
		return err
	}
	nl.box = box
	nl.cross = true
	if nl.paired == nil {
		pg, err := NewPairedGrid[T](box, a, b, nl.opts)
		if err != nil {
			return err
		}
		nl.paired = pg
	} else if err := nl.paired.Update(box, a, b, nl.opts); err != nil {
		return err
	}
	nl.grid = nil
	nl.dirty = true
	if nl.opts.UpdateLists {
		_, err := nl.NeighborList()
		return err
	}
	return nil
}

// NeighborList returns the current list of pairs within cutoff, computing
// (or recomputing, if Update/UpdateCross ran since the last call) it the
// first time it's needed.
func (nl *NeighborList[T]) NeighborList() ([]Pair[T], error) {
	if !nl.dirty {
		return nl.pairs, nil
	}

	var source PairSource[T]
	if nl.cross {
		source = nl.paired
	} else {
		source = nl.grid
	}

	emit := func(pi, pj []T, i, j int, d2 T, acc []Pair[T]) []Pair[T] {
		return append(acc, Pair[T]{I: i, J: j, D: sqrtT(d2)})
	}
	reduce := func(init []Pair[T], perWorker [][]Pair[T]) []Pair[T] {
		total := len(init)
		for _, pw := range perWorker {
			total += len(pw)
		}
		out := make([]Pair[T], 0, total)
		out = append(out, init...)
		for _, pw := range perWorker {
			out = append(out, pw...)
		}
		return out
	}

	pairs, err := MapPairwise[T, []Pair[T]](nl.box, source, nil, emit, reduce, nl.opts)
	if err != nil {
		return nil, err
	}
	nl.pairs = pairs
	nl.dirty = false
	return nl.pairs, nil
}
