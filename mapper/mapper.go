// Package mapper assembles per-pixel template matches into an
// orientation/phase map over a scanned diffraction dataset.
//
// Positions are independent: the assembler fans them out over a fixed
// worker pool against a shared read-only indexer. A position that fails
// to index is recorded as a Failed cell and summarized at the end; it
// never aborts the rest of the map.
package mapper

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/templix"
	"github.com/hupe1980/templix/pattern"
)

// Dataset is the read-side contract for a scanned diffraction
// acquisition: a 2D grid of scan positions, one pattern each.
//
// At must be safe for concurrent calls; the assembler reads positions
// from multiple workers.
type Dataset interface {
	// Dims returns the scan grid size.
	Dims() (width, height int)
	// At returns the pattern recorded at scan position (x, y).
	At(x, y int) (pattern.Pattern, error)
}

// CellState is the terminal state of one map cell.
type CellState uint8

const (
	// StateUnprocessed is the zero state. Cells only hold it while
	// assembly is running or after a cancelled run.
	StateUnprocessed CellState = iota
	// StateMatched marks a cell holding at least one scored match.
	StateMatched
	// StateFailed marks a cell whose position could not be indexed.
	StateFailed
)

// String implements fmt.Stringer.
func (s CellState) String() string {
	switch s {
	case StateMatched:
		return "matched"
	case StateFailed:
		return "failed"
	default:
		return "unprocessed"
	}
}

// Cell is one scan position's result: the top matches on success, the
// recorded failure otherwise.
type Cell struct {
	State   CellState
	Matches []templix.Match
	Err     error
}

// Best returns the cell's top match.
func (c Cell) Best() (templix.Match, bool) {
	if c.State != StateMatched || len(c.Matches) == 0 {
		return templix.Match{}, false
	}
	return c.Matches[0], true
}

// MatchFailure records a single position's indexation failure. It is
// surfaced through the map cell and the assembly summary, never as the
// assembly's own error.
//
// The original underlying error can be accessed via errors.Unwrap.
type MatchFailure struct {
	X, Y  int
	cause error
}

func (e *MatchFailure) Error() string {
	return fmt.Sprintf("indexation failed at (%d, %d): %v", e.X, e.Y, e.cause)
}

func (e *MatchFailure) Unwrap() error { return e.cause }

// OrientationMap is the assembled result grid. Cell coordinates mirror
// the dataset's scan coordinates exactly.
//
// The map is written during assembly and read-only afterwards.
type OrientationMap struct {
	width  int
	height int
	cells  []Cell
	failed *roaring.Bitmap
}

func newOrientationMap(width, height int) *OrientationMap {
	return &OrientationMap{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
		failed: roaring.New(),
	}
}

// Dims returns the map size.
func (m *OrientationMap) Dims() (width, height int) {
	return m.width, m.height
}

// Cell returns the cell at scan position (x, y).
// It panics if the position is out of range.
func (m *OrientationMap) Cell(x, y int) Cell {
	return m.cells[m.index(x, y)]
}

// Best returns the top match at (x, y), if the cell matched.
func (m *OrientationMap) Best(x, y int) (templix.Match, bool) {
	return m.Cell(x, y).Best()
}

func (m *OrientationMap) index(x, y int) int {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		panic(fmt.Sprintf("mapper: position (%d, %d) out of range %dx%d", x, y, m.width, m.height))
	}
	return y*m.width + x
}

func (m *OrientationMap) setMatched(x, y int, matches []templix.Match) {
	m.cells[m.index(x, y)] = Cell{State: StateMatched, Matches: matches}
}

func (m *OrientationMap) setFailed(x, y int, cause error) {
	m.cells[m.index(x, y)] = Cell{
		State: StateFailed,
		Err:   &MatchFailure{X: x, Y: y, cause: cause},
	}
}

// finalize fills the failure bitmap. Called once, after all workers are
// done, so cell writes never race the bitmap.
func (m *OrientationMap) finalize() {
	for i := range m.cells {
		if m.cells[i].State == StateFailed {
			m.failed.Add(uint32(i))
		}
	}
}

// Summary aggregates the assembly outcome.
type Summary struct {
	Positions int
	Matched   int
	Failed    int
}

// String implements fmt.Stringer.
func (s Summary) String() string {
	return fmt.Sprintf("%d positions, %d matched, %d failed", s.Positions, s.Matched, s.Failed)
}

// Summary reports totals over all cells.
func (m *OrientationMap) Summary() Summary {
	s := Summary{Positions: len(m.cells)}
	for i := range m.cells {
		switch m.cells[i].State {
		case StateMatched:
			s.Matched++
		case StateFailed:
			s.Failed++
		}
	}
	return s
}

// FailedPositions returns the (x, y) scan coordinates of all failed
// cells in row-major order.
func (m *OrientationMap) FailedPositions() [][2]int {
	out := make([][2]int, 0, m.failed.GetCardinality())
	it := m.failed.Iterator()
	for it.HasNext() {
		idx := int(it.Next())
		out = append(out, [2]int{idx % m.width, idx / m.width})
	}
	return out
}

// EachCell calls fn for every cell in row-major order.
func (m *OrientationMap) EachCell(fn func(x, y int, c Cell)) {
	for i := range m.cells {
		fn(i%m.width, i/m.width, m.cells[i])
	}
}
