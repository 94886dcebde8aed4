package cellmap

import "sort"

// TraverseScratch holds the small per-worker buffers TraverseCell needs
// (neighbor cartesian index, normalized projection axis, point-minus-center
// scratch) so that a full traversal allocates nothing once warmed up (spec
// §9, "Arena reuse").
type TraverseScratch[T Float] struct {
	neighborCart []int
	deltaC       []T
	tmp          []T
}

// NewTraverseScratch allocates scratch buffers sized for dim-dimensional
// points.
func NewTraverseScratch[T Float](dim int) *TraverseScratch[T] {
	return &TraverseScratch[T]{
		neighborCart: make([]int, dim),
		deltaC:       make([]T, dim),
		tmp:          make([]T, dim),
	}
}

// TraverseCell visits every pair (p_i, p_j) within cutoff where p_i is a
// real point of the cell at slot and p_j is any other point (real or ghost,
// in the same cell or a neighbor cell), calling emit once per pair found
// (spec §4.4). worker selects the grid's per-goroutine projection-sort
// scratch; serial callers always pass worker 0. A point is never paired
// with its own periodic ghost image.
func (g *CellGrid[T]) TraverseCell(box *Box[T], slot, worker int, scratch *TraverseScratch[T], emit func(pi, pj []T, i, j int, d2 T)) {
	cell := &g.Cells[slot]
	pts := cell.Live()
	triclinic := box.Kind == Triclinic

	// Step 1: intra-cell pass. Every real point against every later point
	// in the same cell, real or ghost. For Triclinic boxes a ghost in a
	// real cell is paired only when the real point's index is the smaller
	// one, matching the neighbor-cell pass's i<j rule.
	for a := 0; a < cell.NReal; a++ {
		pa := &pts[a]
		for b := a + 1; b < len(pts); b++ {
			pb := &pts[b]
			if pa.OriginalIndex == pb.OriginalIndex {
				continue
			}
			if triclinic && !pb.IsReal && pa.OriginalIndex >= pb.OriginalIndex {
				continue
			}
			d2 := dist2(pa.Coords, pb.Coords)
			if d2 <= box.CutoffSq {
				emit(pa.Coords, pb.Coords, pa.OriginalIndex, pb.OriginalIndex, d2)
			}
		}
	}

	// Step 2: neighbor-cell pass, one cell pair per stencil offset.
	for _, delta := range box.Stencil() {
		nc := scratch.neighborCart
		inBounds := true
		for i := 0; i < box.Dim; i++ {
			v := cell.CartesianIndex[i] + delta[i]
			if v < 0 || v >= box.NC[i] {
				inBounds = false
				break
			}
			nc[i] = v
		}
		if !inBounds {
			continue
		}
		nslot, found := g.SlotAt(box.Linear(nc))
		if !found {
			continue
		}
		other := &g.Cells[nslot]
		if other.NPoints == 0 {
			continue
		}
		g.scanNeighbor(box, cell, other, worker, scratch, triclinic, emit)
	}
}

// scanNeighbor scans cell's real points against other's points, pruned by
// projecting other's points onto the (normalized) axis joining the two
// cell centers and sorting by that projection: once a candidate's
// projection exceeds a real point's own projection by more than the
// cutoff, no later (larger-projection) candidate can be within cutoff
// either, by the Cauchy-Schwarz bound |proj_u(p)-proj_u(q)| <= |p-q| for
// unit u (spec §4.4; see DESIGN.md on why the axis must be normalized).
func (g *CellGrid[T]) scanNeighbor(box *Box[T], cell, other *Cell[T], worker int, scratch *TraverseScratch[T], triclinic bool, emit func(pi, pj []T, i, j int, d2 T)) {
	sub(scratch.deltaC, other.Center, cell.Center)
	norm := sqrtT(dot(scratch.deltaC, scratch.deltaC))
	pts := cell.Live()
	if norm == 0 {
		// Coincident cell centers: no valid projection axis. This should
		// not occur for distinct cells under a well-formed Box, but fall
		// back to an unpruned scan rather than mis-prune.
		for a := 0; a < cell.NReal; a++ {
			pa := &pts[a]
			for _, pb := range other.Live() {
				if pa.OriginalIndex == pb.OriginalIndex {
					continue
				}
				if triclinic && pa.OriginalIndex >= pb.OriginalIndex {
					continue
				}
				d2 := dist2(pa.Coords, pb.Coords)
				if d2 <= box.CutoffSq {
					emit(pa.Coords, pb.Coords, pa.OriginalIndex, pb.OriginalIndex, d2)
				}
			}
		}
		return
	}
	for i := range scratch.deltaC {
		scratch.deltaC[i] /= norm
	}

	proj := g.Scratch(worker, other.NPoints)
	for k, ip := range other.Live() {
		proj[k].OriginalIndex = ip.OriginalIndex
		proj[k].Coords = ip.Coords
		proj[k].XProj = dot(sub(scratch.tmp, ip.Coords, cell.Center), scratch.deltaC)
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].XProj < proj[j].XProj })

	for a := 0; a < cell.NReal; a++ {
		pa := &pts[a]
		xi := dot(sub(scratch.tmp, pa.Coords, cell.Center), scratch.deltaC)
		for k := range proj {
			if proj[k].XProj-xi > box.Cutoff {
				break
			}
			if pa.OriginalIndex == proj[k].OriginalIndex {
				continue
			}
			if triclinic && pa.OriginalIndex >= proj[k].OriginalIndex {
				continue
			}
			d2 := dist2(pa.Coords, proj[k].Coords)
			if d2 <= box.CutoffSq {
				emit(pa.Coords, proj[k].Coords, pa.OriginalIndex, proj[k].OriginalIndex, d2)
			}
		}
	}
}
