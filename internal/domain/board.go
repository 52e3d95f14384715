package domain

import "fmt"

// Position addresses a board square by row and column, both 0-based.
type Position struct {
	Row int
	Col int
}

// Board is a size x size grid of cells stored row-major.
type Board struct {
	size  int
	cells [][]Cell
}

// NewBoard returns a board with the four starting disks at the center.
func NewBoard(size int) (*Board, error) {
	b, err := emptyBoard(size)
	if err != nil {
		return nil, err
	}
	h := size / 2
	b.cells[h][h-1].state = Player1Disk
	b.cells[h-1][h].state = Player1Disk
	b.cells[h-1][h-1].state = Player2Disk
	b.cells[h][h].state = Player2Disk
	return b, nil
}

// NewBoardFromGrid rebuilds a board from an integer-coded grid
// (0 empty, 1 player1, 2 player2), as produced by Grid.
func NewBoardFromGrid(size int, grid [][]int) (*Board, error) {
	b, err := emptyBoard(size)
	if err != nil {
		return nil, err
	}
	if len(grid) != size {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrGridShape, len(grid), size)
	}
	for r, row := range grid {
		if len(row) != size {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrGridShape, r, len(row), size)
		}
		for c, v := range row {
			if v < int(Empty) || v > int(Player2Disk) {
				return nil, fmt.Errorf("%w: %d at (%d, %d)", ErrInvalidCellValue, v, r, c)
			}
			b.cells[r][c].state = CellState(v)
		}
	}
	return b, nil
}

func emptyBoard(size int) (*Board, error) {
	if size <= 0 || size%2 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	cells := make([][]Cell, size)
	for r := range cells {
		cells[r] = make([]Cell, size)
	}
	return &Board{size: size, cells: cells}, nil
}

// Size returns the number of rows (and columns).
func (b *Board) Size() int { return b.size }

// IsValidPosn reports whether (row, col) lies on the board.
func (b *Board) IsValidPosn(row, col int) bool {
	return row >= 0 && row < b.size && col >= 0 && col < b.size
}

// At returns the state at (row, col). The position must be on the board.
func (b *Board) At(row, col int) CellState { return b.cells[row][col].state }

// NumType counts the cells currently in the given state.
func (b *Board) NumType(state CellState) int {
	n := 0
	for r := range b.cells {
		for c := range b.cells[r] {
			if b.cells[r][c].state == state {
				n++
			}
		}
	}
	return n
}

// State returns a copy of every cell state, row-major.
func (b *Board) State() [][]CellState {
	out := make([][]CellState, b.size)
	for r := range b.cells {
		out[r] = make([]CellState, b.size)
		for c := range b.cells[r] {
			out[r][c] = b.cells[r][c].state
		}
	}
	return out
}

// Grid returns the board as small integers, the shape accepted by
// NewBoardFromGrid.
func (b *Board) Grid() [][]int {
	out := make([][]int, b.size)
	for r := range b.cells {
		out[r] = make([]int, b.size)
		for c := range b.cells[r] {
			out[r][c] = int(b.cells[r][c].state)
		}
	}
	return out
}

func (b *Board) cell(p Position) *Cell { return &b.cells[p.Row][p.Col] }
