package cellmap

import (
	"fmt"
	"math"
)

// UnitCellKind tags the geometry of a Box's unit cell.
type UnitCellKind int

const (
	// NonPeriodic boxes have no wrapping; the cell is sized to contain
	// every input point with a cutoff-sized margin.
	NonPeriodic UnitCellKind = iota
	// Orthorhombic boxes have a diagonal lattice matrix (independent side
	// lengths, no shear).
	Orthorhombic
	// Triclinic boxes have a general (possibly sheared) lattice matrix.
	Triclinic
)

func (k UnitCellKind) String() string {
	switch k {
	case NonPeriodic:
		return "NonPeriodic"
	case Orthorhombic:
		return "Orthorhombic"
	case Triclinic:
		return "Triclinic"
	default:
		return "UnitCellKind(?)"
	}
}

// Box classifies the unit cell geometry, sizes the cutoff-aware cell grid,
// and wraps/unwraps coordinates. A Box is immutable once constructed;
// Update returns a new Box.
type Box[T Float] struct {
	Kind UnitCellKind
	Dim  int

	// M holds the lattice matrix as Dim columns, each of length Dim:
	// M[row][col] is the row-th component of lattice vector col.
	M [][]T

	Cutoff   T
	CutoffSq T
	LCell    int

	// NC is the grid dimension per axis, including the halo layer.
	NC []int
	// CellSize is the per-axis cell width.
	CellSize []T
	// MaxCorner is the sum of lattice-vector rows (spec §4.1): the
	// far corner of the cell-defining parallelepiped's bounding box.
	MaxCorner []T

	// origin is the coordinate of the box's near corner; real points are
	// expected to wrap into [origin, origin+MaxCorner) per axis.
	origin []T

	// inv is the inverse of M, used to convert Cartesian coordinates into
	// lattice (fractional) coordinates for wrapping. Diagonal for
	// Orthorhombic/NonPeriodic.
	inv [][]T

	// replicationOffsets, halfStencil, and fullStencil are precomputed once
	// at construction time (they depend only on Dim and LCell) so Replicator
	// and PairIterator never allocate them per call.
	replicationOffsets [][]int
	halfStencil        [][]int
	fullStencil        [][]int
	crossStencil       [][]int
}

const defaultLCell = 1

func clampLCell(lcell int) int {
	if lcell < 1 {
		return defaultLCell
	}
	return lcell
}

func validateCutoff[T Float](cutoff T) error {
	f := float64(cutoff)
	if cutoff <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: got %v", ErrCutoffNotPositive, cutoff)
	}
	return nil
}

// NewBox builds an Orthorhombic Box from a vector of side lengths.
func NewBox[T Float](sides []T, cutoff T, lcell int) (*Box[T], error) {
	if err := validateCutoff(cutoff); err != nil {
		return nil, err
	}
	dim := len(sides)
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: sides has dimension %d, want 2 or 3", ErrDimensionMismatch, dim)
	}
	m := diagonalMatrix(sides)
	return newBoxFromGeometry(Orthorhombic, dim, m, cutoff, clampLCell(lcell))
}

// NewBoxFromMatrix builds a Box from a full Dim x Dim lattice matrix
// (columns are lattice vectors). The box is classified Triclinic unless
// orthorhombic is true, in which case the off-diagonal entries must be
// (numerically) zero.
func NewBoxFromMatrix[T Float](m [][]T, cutoff T, lcell int, orthorhombic bool) (*Box[T], error) {
	if err := validateCutoff(cutoff); err != nil {
		return nil, err
	}
	dim := len(m)
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: matrix has dimension %d, want 2 or 3", ErrDimensionMismatch, dim)
	}
	for _, row := range m {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: non-square lattice matrix", ErrDimensionMismatch)
		}
	}
	kind := Triclinic
	if orthorhombic {
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				if i != j && m[i][j] != 0 {
					return nil, fmt.Errorf("%w: non-zero off-diagonal entry M[%d][%d] in an orthorhombic matrix", ErrInvalidCell, i, j)
				}
			}
		}
		kind = Orthorhombic
	}
	return newBoxFromGeometry(kind, dim, cloneMatrix(m), cutoff, clampLCell(lcell))
}

// NewNonPeriodicBox computes per-axis ranges of points, pads each by the
// cutoff (minimum 2*cutoff), and builds a NonPeriodic Box that contains
// every point with room for its halo.
func NewNonPeriodicBox[T Float](points [][]T, cutoff T, lcell int) (*Box[T], error) {
	if err := validateCutoff(cutoff); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: cannot infer a non-periodic cell from zero points", ErrInvalidCell)
	}
	dim := len(points[0])
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: points have dimension %d, want 2 or 3", ErrDimensionMismatch, dim)
	}
	lo := make([]T, dim)
	hi := make([]T, dim)
	copy(lo, points[0])
	copy(hi, points[0])
	for _, p := range points[1:] {
		if len(p) != dim {
			return nil, fmt.Errorf("%w: inconsistent point dimension", ErrDimensionMismatch)
		}
		for i := 0; i < dim; i++ {
			if p[i] < lo[i] {
				lo[i] = p[i]
			}
			if p[i] > hi[i] {
				hi[i] = p[i]
			}
		}
	}

	pad := 2 * cutoff
	sides := make([]T, dim)
	origin := make([]T, dim)
	for i := 0; i < dim; i++ {
		rng := hi[i] - lo[i]
		span := rng + 2*cutoff
		if span < pad {
			span = pad
		}
		sides[i] = span
		origin[i] = lo[i] - (span-rng)/2
	}

	b, err := newBoxFromGeometry(NonPeriodic, dim, diagonalMatrix(sides), cutoff, clampLCell(lcell))
	if err != nil {
		return nil, err
	}
	b.origin = origin
	return b, nil
}

func diagonalMatrix[T Float](diag []T) [][]T {
	n := len(diag)
	m := make([][]T, n)
	for i := range m {
		m[i] = make([]T, n)
		m[i][i] = diag[i]
	}
	return m
}

func cloneMatrix[T Float](m [][]T) [][]T {
	out := make([][]T, len(m))
	for i, row := range m {
		out[i] = append([]T(nil), row...)
	}
	return out
}

// newBoxFromGeometry performs grid sizing (spec §4.1) and the minimum-image
// feasibility check, shared by all three constructors.
func newBoxFromGeometry[T Float](kind UnitCellKind, dim int, m [][]T, cutoff T, lcell int) (*Box[T], error) {
	b := &Box[T]{
		Kind:     kind,
		Dim:      dim,
		M:        m,
		Cutoff:   cutoff,
		CutoffSq: cutoff * cutoff,
		LCell:    lcell,
	}
	b.origin = make([]T, dim)

	switch kind {
	case Orthorhombic, NonPeriodic:
		sides := make([]T, dim)
		for i := 0; i < dim; i++ {
			sides[i] = m[i][i]
		}
		nc := make([]int, dim)
		cellSize := make([]T, dim)
		for i := 0; i < dim; i++ {
			n := int(math.Floor(float64(lcell) * float64(sides[i]) / float64(cutoff)))
			if n < 1 {
				return nil, fmt.Errorf("%w: side %d (%v) is smaller than cutoff/lcell (%v)", ErrInvalidCell, i, sides[i], cutoff/T(lcell))
			}
			cellSize[i] = sides[i] / T(n)
			nc[i] = n + 2*lcell
		}
		b.NC = nc
		b.CellSize = cellSize
		b.MaxCorner = sides

	case Triclinic:
		maxCorner := make([]T, dim)
		for i := 0; i < dim; i++ {
			var s T
			for j := 0; j < dim; j++ {
				s += m[i][j]
			}
			maxCorner[i] = s
		}
		cellSize := make([]T, dim)
		nc := make([]int, dim)
		for i := 0; i < dim; i++ {
			cellSize[i] = cutoff / T(lcell)
			n := int(math.Ceil(float64(maxCorner[i]+2*cutoff) / float64(cellSize[i])))
			if n < 1 {
				n = 1
			}
			nc[i] = n
		}
		b.NC = nc
		b.CellSize = cellSize
		b.MaxCorner = maxCorner

		if !minimumImageFeasible(m, dim, cutoff) {
			return nil, fmt.Errorf("%w: lattice does not satisfy the minimum-image criterion at cutoff %v", ErrInvalidCell, cutoff)
		}
	}

	inv, err := invertMatrix(m, dim)
	if err != nil {
		return nil, fmt.Errorf("%w: singular lattice matrix: %v", ErrInvalidCell, err)
	}
	b.inv = inv

	b.replicationOffsets = offsetRange(dim, 1)
	b.halfStencil = halfOffsetRange(dim, lcell)
	b.fullStencil = offsetRange(dim, lcell)
	b.crossStencil = append(append([][]int(nil), b.fullStencil...), make([]int, dim))

	return b, nil
}

// minimumImageFeasible checks that 2*cutoff does not exceed the
// perpendicular height between opposite faces of the lattice parallelepiped
// along any lattice vector, which is the condition under which a point can
// see at most one periodic image of another within the cutoff (spec §4.1,
// minimum-image convention in the GLOSSARY).
func minimumImageFeasible[T Float](m [][]T, dim int, cutoff T) bool {
	vol := math.Abs(determinant(m, dim))
	if vol == 0 {
		return false
	}
	for i := 0; i < dim; i++ {
		// Area/length of the opposing (dim-1)-dimensional face spanned by
		// the lattice vectors other than i.
		var faceMeasure float64
		switch dim {
		case 2:
			faceMeasure = vectorNormFloat(column(m, otherAxis2(i), dim))
		case 3:
			a := column(m, (i+1)%3, dim)
			b := column(m, (i+2)%3, dim)
			faceMeasure = crossNormFloat(a, b)
		}
		if faceMeasure == 0 {
			return false
		}
		height := vol / faceMeasure
		if 2*float64(cutoff) > height {
			return false
		}
	}
	return true
}

func otherAxis2(i int) int { return 1 - i }

func column[T Float](m [][]T, col, dim int) []float64 {
	v := make([]float64, dim)
	for r := 0; r < dim; r++ {
		v[r] = float64(m[r][col])
	}
	return v
}

func vectorNormFloat(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func crossNormFloat(a, b []float64) float64 {
	cx := a[1]*b[2] - a[2]*b[1]
	cy := a[2]*b[0] - a[0]*b[2]
	cz := a[0]*b[1] - a[1]*b[0]
	return math.Sqrt(cx*cx + cy*cy + cz*cz)
}

func determinant[T Float](m [][]T, dim int) float64 {
	switch dim {
	case 2:
		return float64(m[0][0])*float64(m[1][1]) - float64(m[0][1])*float64(m[1][0])
	case 3:
		return float64(m[0][0])*(float64(m[1][1])*float64(m[2][2])-float64(m[1][2])*float64(m[2][1])) -
			float64(m[0][1])*(float64(m[1][0])*float64(m[2][2])-float64(m[1][2])*float64(m[2][0])) +
			float64(m[0][2])*(float64(m[1][0])*float64(m[2][1])-float64(m[1][1])*float64(m[2][0]))
	default:
		return 0
	}
}

// invertMatrix inverts a 2x2 or 3x3 matrix via the closed-form adjugate
// formula (Gaussian elimination would be overkill at this size).
func invertMatrix[T Float](m [][]T, dim int) ([][]T, error) {
	det := determinant(m, dim)
	if det == 0 {
		return nil, fmt.Errorf("determinant is zero")
	}
	inv := make([][]T, dim)
	for i := range inv {
		inv[i] = make([]T, dim)
	}
	switch dim {
	case 2:
		invDet := 1 / det
		inv[0][0] = T(float64(m[1][1]) * invDet)
		inv[0][1] = T(-float64(m[0][1]) * invDet)
		inv[1][0] = T(-float64(m[1][0]) * invDet)
		inv[1][1] = T(float64(m[0][0]) * invDet)
	case 3:
		invDet := 1 / det
		f := func(i, j int) float64 { return float64(m[i][j]) }
		inv[0][0] = T((f(1, 1)*f(2, 2) - f(1, 2)*f(2, 1)) * invDet)
		inv[0][1] = T((f(0, 2)*f(2, 1) - f(0, 1)*f(2, 2)) * invDet)
		inv[0][2] = T((f(0, 1)*f(1, 2) - f(0, 2)*f(1, 1)) * invDet)
		inv[1][0] = T((f(1, 2)*f(2, 0) - f(1, 0)*f(2, 2)) * invDet)
		inv[1][1] = T((f(0, 0)*f(2, 2) - f(0, 2)*f(2, 0)) * invDet)
		inv[1][2] = T((f(0, 2)*f(1, 0) - f(0, 0)*f(1, 2)) * invDet)
		inv[2][0] = T((f(1, 0)*f(2, 1) - f(1, 1)*f(2, 0)) * invDet)
		inv[2][1] = T((f(0, 1)*f(2, 0) - f(0, 0)*f(2, 1)) * invDet)
		inv[2][2] = T((f(0, 0)*f(1, 1) - f(0, 1)*f(1, 0)) * invDet)
	}
	return inv, nil
}

// WrapToFirst wraps a point into the first periodic image of the cell,
// writing the result into dst (which may alias p) and returning it.
// NonPeriodic boxes return p unchanged: construction already sized the box
// to contain every input point (spec §4.1). scratch is a caller-owned
// dim-length buffer used only by the Triclinic path's fractional-coordinate
// stage (ignored, and safe to pass nil, for Orthorhombic/NonPeriodic); a nil
// scratch on a Triclinic box falls back to allocating one for the call, so
// only hot-path callers need to supply it (same caller-owned-scratch
// convention as ReplicatorScratch/TraverseScratch).
func (b *Box[T]) WrapToFirst(dst, p, scratch []T) []T {
	if b.Kind == NonPeriodic {
		if !samePointer(dst, p) {
			copy(dst, p)
		}
		return dst
	}
	if b.Kind == Orthorhombic {
		for i := 0; i < b.Dim; i++ {
			side := b.MaxCorner[i]
			x := p[i] - b.origin[i]
			f := x - side*T(math.Floor(float64(x)/float64(side)))
			dst[i] = f + b.origin[i]
		}
		return dst
	}

	// Triclinic: solve M*c = p for fractional coordinates c, wrap each
	// component into [0,1), reconstruct p' = M*c.
	frac := scratch
	if frac == nil {
		frac = make([]T, b.Dim)
	}
	for i := 0; i < b.Dim; i++ {
		var s T
		for j := 0; j < b.Dim; j++ {
			s += b.inv[i][j] * (p[j] - b.origin[j])
		}
		frac[i] = s - T(math.Floor(float64(s)))
	}
	for i := 0; i < b.Dim; i++ {
		var s T
		for j := 0; j < b.Dim; j++ {
			s += b.M[i][j] * frac[j]
		}
		dst[i] = s + b.origin[i]
	}
	return dst
}

func samePointer[T Float](a, b []T) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}

// CellOf returns the cartesian cell indices of a (already-wrapped) point.
func (b *Box[T]) CellOf(p []T, dst []int) []int {
	for i := 0; i < b.Dim; i++ {
		x := p[i] - b.origin[i]
		idx := int(math.Floor(float64(x)/float64(b.CellSize[i]))) + b.LCell
		dst[i] = idx
	}
	return dst
}

// Linear converts cartesian cell indices into a row-major linear index.
func (b *Box[T]) Linear(idx []int) int {
	lin := 0
	for i := 0; i < b.Dim; i++ {
		lin = lin*b.NC[i] + idx[i]
	}
	return lin
}

// NCells returns the total number of cells, nc[0]*nc[1]*...
func (b *Box[T]) NCells() int {
	n := 1
	for _, c := range b.NC {
		n *= c
	}
	return n
}

// CellCenter writes the center of cartesian cell idx into dst.
func (b *Box[T]) CellCenter(idx []int, dst []T) []T {
	for i := 0; i < b.Dim; i++ {
		dst[i] = b.origin[i] + (T(idx[i])-T(b.LCell)+0.5)*b.CellSize[i]
	}
	return dst
}

// Update returns a new Box with any of sides, matrix, or cutoff replaced.
// sides and matrix are mutually exclusive; passing both is an error. A
// NonPeriodic box may not have its cell overridden (spec §4.1).
func (b *Box[T]) Update(sides []T, matrix [][]T, cutoff *T) (*Box[T], error) {
	if sides != nil && matrix != nil {
		return nil, fmt.Errorf("%w: supply either sides or matrix, not both", ErrDimensionMismatch)
	}
	newCutoff := b.Cutoff
	if cutoff != nil {
		newCutoff = *cutoff
	}
	if sides == nil && matrix == nil {
		if cutoff == nil {
			return b, nil
		}
		switch b.Kind {
		case NonPeriodic:
			return nil, fmt.Errorf("%w: NonPeriodic boxes must be re-derived from points, not updated in place", ErrInvalidCell)
		case Orthorhombic:
			diag := make([]T, b.Dim)
			for i := range diag {
				diag[i] = b.M[i][i]
			}
			return NewBox(diag, newCutoff, b.LCell)
		default:
			return NewBoxFromMatrix(b.M, newCutoff, b.LCell, false)
		}
	}
	if b.Kind == NonPeriodic {
		return nil, ErrNonPeriodicWithCellOverride
	}
	if sides != nil {
		return NewBox(sides, newCutoff, b.LCell)
	}
	return NewBoxFromMatrix(matrix, newCutoff, b.LCell, b.Kind == Orthorhombic)
}
