package systems

// SpatialGrid buckets entity ids by position so pair tests only look at
// nearby cells. The arena does not wrap; positions outside it fall into the
// edge cells.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]int // flat grid of id lists
}

// NewSpatialGrid creates a grid covering a square arena of the given side.
// cellSize should be at least the largest contact distance.
func NewSpatialGrid(size, cellSize float64) *SpatialGrid {
	cols := int(size/cellSize) + 1

	cells := make([][]int, cols*cols)
	for i := range cells {
		cells[i] = make([]int, 0, 4)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     cols,
		cells:    cells,
	}
}

// Clear removes all ids from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an id at the given position.
func (g *SpatialGrid) Insert(id int, x, y float64) {
	col, row := g.cell(x, y)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], id)
}

// NearInto appends to dst the ids in the cell holding (x, y) and its eight
// neighbours, in no particular order. Reuse dst across calls to avoid
// allocations.
func (g *SpatialGrid) NearInto(dst []int, x, y float64) []int {
	col, row := g.cell(x, y)
	for r := max(row-1, 0); r <= min(row+1, g.rows-1); r++ {
		for c := max(col-1, 0); c <= min(col+1, g.cols-1); c++ {
			dst = append(dst, g.cells[r*g.cols+c]...)
		}
	}
	return dst
}

// cell returns the clamped column and row for a world position.
func (g *SpatialGrid) cell(x, y float64) (col, row int) {
	col = min(max(int(x/g.cellSize), 0), g.cols-1)
	row = min(max(int(y/g.cellSize), 0), g.rows-1)
	return col, row
}
