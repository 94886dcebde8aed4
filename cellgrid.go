package cellmap

// IndexedPoint is one point stored in a Cell: either a real point or a
// periodic ghost image of one (IsReal == false).
type IndexedPoint[T Float] struct {
	OriginalIndex int
	Coords        []T
	IsReal        bool
}

// Cell holds the points that wrapped into one grid cell. Real points are
// kept contiguous at the front of Points (Points[:NReal]); ghosts fill
// Points[NReal:NPoints]. Points itself is a reused buffer: only the first
// NPoints entries are live after a Reset.
type Cell[T Float] struct {
	LinearIndex    int
	CartesianIndex []int
	Center         []T
	ContainsReal   bool
	NPoints        int
	NReal          int
	Points         []IndexedPoint[T]
}

// Live returns the occupied prefix of Points.
func (c *Cell[T]) Live() []IndexedPoint[T] { return c.Points[:c.NPoints] }

func (c *Cell[T]) ensureCap(n int) {
	if n <= len(c.Points) {
		return
	}
	newCap := len(c.Points) + len(c.Points)/2 + 1
	if newCap < n {
		newCap = n
	}
	buf := make([]IndexedPoint[T], newCap)
	copy(buf, c.Points[:c.NPoints])
	c.Points = buf
}

func (c *Cell[T]) insertReal(ip IndexedPoint[T]) {
	c.ensureCap(c.NPoints + 1)
	if c.NReal < c.NPoints {
		c.Points[c.NPoints] = c.Points[c.NReal]
	}
	c.Points[c.NReal] = ip
	c.NReal++
	c.NPoints++
	c.ContainsReal = true
}

func (c *Cell[T]) insertGhost(ip IndexedPoint[T]) {
	c.ensureCap(c.NPoints + 1)
	c.Points[c.NPoints] = ip
	c.NPoints++
}

// ProjectedPoint is scratch state for the projection-sort prune in the
// neighbor-cell pass (spec §4.4).
type ProjectedPoint[T Float] struct {
	OriginalIndex int
	XProj         T
	Coords        []T
}

// CellGrid partitions a point set into grid cells sized by a Box. All
// backing arrays are retained across Reset calls so that repeated
// Update/build cycles on similarly-sized inputs perform no further
// allocation once warmed up (spec §9, "Arena reuse").
type CellGrid[T Float] struct {
	NRealPoints           int
	NTotalPoints          int
	NCellsWithPoints      int
	NCellsWithRealPoints  int
	cellIndexOf           []int // linear cell id -> slot+1, 0 means empty
	RealCellSlots         []int // slot indices (into Cells) with ContainsReal
	Cells                 []Cell[T]
	touchedLinear         []int
	ProjectionScratch     [][]ProjectedPoint[T] // per worker

	// coordArena backs every wrapped real/ghost coordinate written during a
	// build, so that repeated builds of similarly-sized inputs settle into
	// zero further allocation (spec §9, "Arena reuse").
	coordArena  []T
	coordCursor int

	// builder lazily backs the public NewCellGrid/Update API with a
	// Builder's shard/scratch machinery; nil until the first Update call.
	builder *Builder[T]
}

// newEmptyCellGrid allocates an empty grid sized for box.NCells(), with no
// points in it. Used internally by Builder, which manages its own build
// state; see NewCellGrid for the public, self-building constructor.
func newEmptyCellGrid[T Float](box *Box[T]) *CellGrid[T] {
	return &CellGrid[T]{
		cellIndexOf: make([]int, box.NCells()),
	}
}

// NewCellGrid builds a CellGrid from box and points in a single call (spec
// §6). The returned grid owns a Builder internally, so later calling
// Update on it reuses every buffer warmed up by this call.
func NewCellGrid[T Float](box *Box[T], points [][]T, opts Options) (*CellGrid[T], error) {
	g := newEmptyCellGrid[T](box)
	if err := g.Update(box, points, opts); err != nil {
		return nil, err
	}
	return g, nil
}

// Update rebuilds g in place from (possibly new) box and points, reusing
// every buffer the grid's internal Builder owns.
func (g *CellGrid[T]) Update(box *Box[T], points [][]T, opts Options) error {
	if g.builder == nil {
		g.builder = NewBuilder[T](box)
	} else {
		g.builder.Rebind(box)
	}
	return g.builder.BuildInto(g, points, opts)
}

// Reset clears the grid for a fresh build while preserving every
// allocation: cellIndexOf, RealCellSlots, Cells, and each Cell's Points
// buffer and scratch arrays.
func (g *CellGrid[T]) Reset(box *Box[T]) {
	for _, lin := range g.touchedLinear {
		g.cellIndexOf[lin] = 0
	}
	g.touchedLinear = g.touchedLinear[:0]
	if n := box.NCells(); n != len(g.cellIndexOf) {
		// Grid dimensions changed (e.g. cutoff update). Every entry is zero
		// by now, so reslice within capacity or zero-fill grow.
		if n <= cap(g.cellIndexOf) {
			g.cellIndexOf = g.cellIndexOf[:n]
		} else {
			g.cellIndexOf = make([]int, n)
		}
	}
	g.Cells = g.Cells[:0]
	g.RealCellSlots = g.RealCellSlots[:0]
	g.NCellsWithPoints = 0
	g.NCellsWithRealPoints = 0
	g.NRealPoints = 0
	g.NTotalPoints = 0
	g.coordCursor = 0
}

// AllocCoord returns a fresh dim-length coordinate slice backed by the
// grid's coordinate arena, growing the arena (amortized 1.5x) only when it
// is exhausted.
func (g *CellGrid[T]) AllocCoord(dim int) []T {
	need := g.coordCursor + dim
	if need > cap(g.coordArena) {
		newCap := cap(g.coordArena) + cap(g.coordArena)/2 + 1
		if newCap < need {
			newCap = need
		}
		buf := make([]T, newCap)
		copy(buf, g.coordArena[:g.coordCursor])
		g.coordArena = buf
	}
	g.coordArena = g.coordArena[:need]
	s := g.coordArena[g.coordCursor:need]
	g.coordCursor = need
	return s
}

// SlotAt returns the slot index of the cell with linear index lin, and
// false if no point has landed in that cell in the current build.
func (g *CellGrid[T]) SlotAt(lin int) (int, bool) {
	s := g.cellIndexOf[lin]
	if s == 0 {
		return 0, false
	}
	return s - 1, true
}

// slotFor returns the slot index of the cell at cartesian index cart
// (linear id lin), allocating one (reusing a retained Cell struct when
// possible) if this is the first point to land in that cell this build.
func (g *CellGrid[T]) slotFor(box *Box[T], lin int, cart []int) int {
	if s := g.cellIndexOf[lin]; s != 0 {
		return s - 1
	}
	slot := len(g.Cells)
	var c *Cell[T]
	if slot < cap(g.Cells) {
		g.Cells = g.Cells[:slot+1]
		c = &g.Cells[slot]
		c.CartesianIndex = append(c.CartesianIndex[:0], cart...)
		if cap(c.Center) < box.Dim {
			c.Center = make([]T, box.Dim)
		} else {
			c.Center = c.Center[:box.Dim]
		}
		box.CellCenter(cart, c.Center)
		c.NPoints = 0
		c.NReal = 0
		c.ContainsReal = false
	} else {
		cell := Cell[T]{
			CartesianIndex: append([]int(nil), cart...),
			Center:         box.CellCenter(cart, make([]T, box.Dim)),
		}
		g.Cells = append(g.Cells, cell)
		c = &g.Cells[slot]
	}
	c.LinearIndex = lin
	g.cellIndexOf[lin] = slot + 1
	g.touchedLinear = append(g.touchedLinear, lin)
	g.NCellsWithPoints++
	return slot
}

// InsertReal inserts a real point into the cell at cartesian index cart,
// rotating it to the front of the cell's point list if needed, and
// registers the cell as a "real cell" the first time it receives one.
func (g *CellGrid[T]) InsertReal(box *Box[T], cart []int, p []T, originalIndex int) {
	lin := box.Linear(cart)
	slot := g.slotFor(box, lin, cart)
	c := &g.Cells[slot]
	wasReal := c.ContainsReal
	c.insertReal(IndexedPoint[T]{OriginalIndex: originalIndex, Coords: p, IsReal: true})
	if !wasReal {
		g.RealCellSlots = append(g.RealCellSlots, slot)
		g.NCellsWithRealPoints++
	}
	g.NRealPoints++
	g.NTotalPoints++
}

// InsertGhost inserts a ghost image into the cell at cartesian index cart.
func (g *CellGrid[T]) InsertGhost(box *Box[T], cart []int, p []T, originalIndex int) {
	lin := box.Linear(cart)
	slot := g.slotFor(box, lin, cart)
	g.Cells[slot].insertGhost(IndexedPoint[T]{OriginalIndex: originalIndex, Coords: p, IsReal: false})
	g.NTotalPoints++
}

func (g *CellGrid[T]) numWorkUnits() int { return len(g.RealCellSlots) }

func (g *CellGrid[T]) traverseUnit(box *Box[T], unit, worker int, ws *workerState[T], emit func(pi, pj []T, i, j int, d2 T)) {
	g.TraverseCell(box, g.RealCellSlots[unit], worker, ws.traverse, emit)
}

// prepareWorkers grows ProjectionScratch to hold w worker slots before any
// concurrent traversal begins. Scratch itself also grows this slice
// lazily, but only prepareWorkers' single-threaded grow is safe to call
// once goroutines are already running concurrently indexed Scratch calls.
func (g *CellGrid[T]) prepareWorkers(w int) {
	for len(g.ProjectionScratch) < w {
		g.ProjectionScratch = append(g.ProjectionScratch, nil)
	}
}

// Scratch returns the projection scratch buffer for worker w, growing it
// (amortized 1.5x) to hold at least n entries.
func (g *CellGrid[T]) Scratch(w, n int) []ProjectedPoint[T] {
	for len(g.ProjectionScratch) <= w {
		g.ProjectionScratch = append(g.ProjectionScratch, nil)
	}
	buf := g.ProjectionScratch[w]
	if n > cap(buf) {
		newCap := cap(buf) + cap(buf)/2 + 1
		if newCap < n {
			newCap = n
		}
		buf = make([]ProjectedPoint[T], newCap)
	}
	g.ProjectionScratch[w] = buf[:n]
	return buf[:n]
}
