// Package cellmap maps pairs of nearby points in 2D/3D space, with or
// without periodic boundary conditions, using a linked-cell (cell-list)
// decomposition so the cost of finding every pair within a cutoff scales
// with the number of points rather than its square.
//
// Basic usage, no periodicity:
//
//	nl, err := cellmap.NewNeighborList(points, cutoff, nil, cellmap.DefaultOptions())
//	pairs, err := nl.NeighborList()
//	// pairs[k].I, pairs[k].J are indices into points; pairs[k].D is their distance.
//
// Cross-set queries (pairs between two distinct point sets) use
// NewCrossNeighborList instead:
//
//	nl, err := cellmap.NewCrossNeighborList(a, b, cutoff, nil, cellmap.DefaultOptions())
//	pairs, err := nl.NeighborList() // pairs[k].I indexes a, pairs[k].J indexes b
//
// # Periodic boxes
//
// A nil cell argument (above) infers a non-periodic cell sized to the
// input points. Passing a *CellSpec instead builds a periodic one through
// the same façade:
//
//	cell := &cellmap.CellSpec[float64]{Sides: []float64{10, 10, 10}}
//	nl, err := cellmap.NewNeighborList(points, cutoff, cell, cellmap.DefaultOptions())
//
// CellSpec.Matrix builds a (possibly sheared) Triclinic box instead of an
// Orthorhombic one. Callers who need anything more bespoke — a NonPeriodic
// box rebuilt from different points than the ones being wrapped, or
// reusing the same Box across several CellGrids — build one explicitly and
// drive a CellGrid themselves:
//
//	box, err := cellmap.NewBox([]float64{10, 10, 10}, cutoff, 1)
//	grid, err := cellmap.NewCellGrid(box, points, cellmap.DefaultOptions())
//
// (NewCellGrid builds once; Builder.Build, used internally, is the
// reusable form for repeated builds against the same Box.)
//
// # Folding over pairs
//
// MapPairwise drives any PairSource (a *CellGrid or *PairedGrid) with a
// caller-supplied fold function and reducer, for computing something other
// than a flat pair list — an energy sum, a histogram of distances, a
// Boolean "any pair closer than r/2" check — without building the pair
// list at all:
//
//	type sum struct{ total float64 }
//	result, err := cellmap.MapPairwise(box, grid, sum{},
//		func(pi, pj []float64, i, j int, d2 float64, acc sum) sum {
//			acc.total += d2
//			return acc
//		},
//		func(init sum, perWorker []sum) sum {
//			for _, w := range perWorker {
//				init.total += w.total
//			}
//			return init
//		},
//		cellmap.DefaultOptions(),
//	)
package cellmap
