package cellmap

// Replicate places ghost copies of a wrapped real point into every halo
// cell the point's cutoff sphere could reach (spec §4.2). It is the
// counterpart to nbody-utils' Finder.Find, which instead re-wraps
// coordinates at query time with an if/else minimum-image correction; this
// engine instead front-loads that correction into ghost points once per
// build so PairIterator's inner loop never branches on periodicity.
//
// NonPeriodic boxes have no ghosts: Replicate is a no-op.
func Replicate[T Float](box *Box[T], grid *CellGrid[T], wrapped []T, originalIndex int, scratch *ReplicatorScratch[T]) {
	if box.Kind == NonPeriodic {
		return
	}

	shift, image, cart := scratch.shift, scratch.image, scratch.cart

	for _, k := range box.AllOffsets() {
		latticeShift(box, k, shift)
		inHalo := true
		for i := 0; i < box.Dim; i++ {
			image[i] = wrapped[i] + shift[i]
			x := image[i] - box.origin[i]
			lo := -T(box.LCell) * box.CellSize[i]
			hi := box.MaxCorner[i] + T(box.LCell)*box.CellSize[i]
			if x < lo || x >= hi {
				inHalo = false
				break
			}
		}
		if !inHalo {
			continue
		}

		box.CellOf(image, cart)
		// At the outer halo edge, rounding in CellOf can yield an index one
		// past the grid; such an image is a full halo width from every real
		// point, so it is skipped.
		inGrid := true
		for i := 0; i < box.Dim; i++ {
			if cart[i] < 0 || cart[i] >= box.NC[i] {
				inGrid = false
				break
			}
		}
		if !inGrid {
			continue
		}
		dst := grid.AllocCoord(box.Dim)
		copy(dst, image)
		grid.InsertGhost(box, cart, dst, originalIndex)
	}
}

// ReplicatorScratch holds the per-worker scratch buffers Replicate needs so
// that ghost replication allocates nothing once a Builder has warmed up.
// frac is unused by Replicate itself; Builder borrows it as the per-shard
// fractional-coordinate buffer for Box.WrapToFirst's Triclinic path, since
// a build's wrap-then-replicate sequence never needs both at once.
type ReplicatorScratch[T Float] struct {
	shift []T
	image []T
	cart  []int
	frac  []T
}

// NewReplicatorScratch allocates scratch buffers sized for dim-dimensional
// points.
func NewReplicatorScratch[T Float](dim int) *ReplicatorScratch[T] {
	return &ReplicatorScratch[T]{
		shift: make([]T, dim),
		image: make([]T, dim),
		cart:  make([]int, dim),
		frac:  make([]T, dim),
	}
}

// latticeShift computes M*k for an integer offset k in {-1,0,+1}^Dim and
// writes it into dst.
func latticeShift[T Float](box *Box[T], k []int, dst []T) []T {
	for i := 0; i < box.Dim; i++ {
		var s T
		for j := 0; j < box.Dim; j++ {
			if k[j] != 0 {
				s += T(k[j]) * box.M[i][j]
			}
		}
		dst[i] = s
	}
	return dst
}
