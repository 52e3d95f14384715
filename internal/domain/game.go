package domain

import "fmt"

// EndReason describes why a game is over, or InProgress while it is not.
type EndReason uint8

const (
	InProgress EndReason = iota
	NoEmptyCells
	NoPlayer1Disks
	NoPlayer2Disks
	NoMovesLeft
	Forfeited
)

func (r EndReason) String() string {
	switch r {
	case NoEmptyCells:
		return "no empty cells"
	case NoPlayer1Disks:
		return "no player1 disks"
	case NoPlayer2Disks:
		return "no player2 disks"
	case NoMovesLeft:
		return "no moves left"
	case Forfeited:
		return "forfeited"
	default:
		return "in progress"
	}
}

// Game holds the state of one Reversi match. It is not safe for
// concurrent use; callers serialize access.
type Game struct {
	id        string
	board     *Board
	rules     RuleStrategy
	ruleID    string
	curr      Player
	save      bool
	forfeited Player
}

// New returns a game on a freshly seeded board using a rule from
// DefaultRules. first moves first; save marks the game for persistence.
func New(size int, ruleID string, first Player, save bool) (*Game, error) {
	rule, err := DefaultRules.Lookup(ruleID)
	if err != nil {
		return nil, err
	}
	return NewWithRule(size, ruleID, rule, first, save)
}

// NewWithRule is New with a caller-supplied strategy.
func NewWithRule(size int, ruleID string, rule RuleStrategy, first Player, save bool) (*Game, error) {
	if !first.Valid() {
		return nil, ErrInvalidPlayer
	}
	b, err := NewBoard(size)
	if err != nil {
		return nil, err
	}
	return &Game{board: b, rules: rule, ruleID: ruleID, curr: first, save: save}, nil
}

// Restore rebuilds a saved game from its integer grid. If next has no
// legal move while the opponent does, the turn passes immediately.
func Restore(size int, grid [][]int, ruleID string, next Player) (*Game, error) {
	if !next.Valid() {
		return nil, ErrInvalidPlayer
	}
	rule, err := DefaultRules.Lookup(ruleID)
	if err != nil {
		return nil, err
	}
	b, err := NewBoardFromGrid(size, grid)
	if err != nil {
		return nil, err
	}
	g := &Game{board: b, rules: rule, ruleID: ruleID, curr: next, save: true}
	if !g.hasMoveFor(next) && g.hasMoveFor(next.Opponent()) {
		g.curr = next.Opponent()
	}
	return g, nil
}

func (g *Game) ID() string { return g.id }
func (g *Game) SetID(id string) { g.id = id }
func (g *Game) Save() bool { return g.save }
func (g *Game) RuleID() string { return g.ruleID }
func (g *Game) Size() int { return g.board.Size() }
func (g *Game) CurrPlayer() Player { return g.curr }

// ForfeitedPlayer returns the player who conceded, or NoPlayer.
func (g *Game) ForfeitedPlayer() Player { return g.forfeited }

// State returns a snapshot of the board.
func (g *Game) State() [][]CellState { return g.board.State() }

// Grid returns the board in its integer-coded form.
func (g *Game) Grid() [][]int { return g.board.Grid() }

// PlaceTile puts the current player's disk at pos and flips every
// captured line. It reports false when the rules reject the move.
func (g *Game) PlaceTile(pos Position) (bool, error) {
	if !g.board.IsValidPosn(pos.Row, pos.Col) {
		return false, ErrOutOfBounds
	}
	if g.IsGameOver() {
		return false, ErrGameOver
	}
	if !g.rules.IsValidMove(g.curr, pos, g.board) {
		return false, nil
	}
	if err := g.board.cell(pos).Fill(g.curr); err != nil {
		return false, err
	}
	if err := g.flipCaptured(pos); err != nil {
		return false, err
	}

	g.curr = g.curr.Opponent()
	if !g.hasMoveFor(g.curr) {
		// opponent must pass
		g.curr = g.curr.Opponent()
	}
	return true, nil
}

// CheckPlacement reports whether PlaceTile would accept pos right now.
func (g *Game) CheckPlacement(pos Position) bool {
	if !g.board.IsValidPosn(pos.Row, pos.Col) || g.IsGameOver() {
		return false
	}
	return g.rules.IsValidMove(g.curr, pos, g.board)
}

// flipCaptured finds every capturing ray from pos first and only then
// flips, walking back from the closing disk toward pos.
func (g *Game) flipCaptured(pos Position) error {
	type ray struct {
		d   direction
		end Position
	}
	var rays []ray
	for _, d := range directions {
		if end, ok := captureEnd(g.curr, pos, d, g.board); ok {
			rays = append(rays, ray{d: d, end: end})
		}
	}
	for _, rr := range rays {
		r, c := rr.end.Row-rr.d.dr, rr.end.Col-rr.d.dc
		for r != pos.Row || c != pos.Col {
			if err := g.board.cells[r][c].Flip(); err != nil {
				return fmt.Errorf("flip (%d, %d): %w", r, c, err)
			}
			r -= rr.d.dr
			c -= rr.d.dc
		}
	}
	return nil
}

// Forfeit ends a running game with p conceding, whatever the board shows.
// A game that is already over keeps its result.
func (g *Game) Forfeit(p Player) error {
	if !p.Valid() {
		return ErrInvalidPlayer
	}
	if g.IsGameOver() {
		return ErrGameOver
	}
	g.forfeited = p
	return nil
}

// Status returns why the game ended, or InProgress.
func (g *Game) Status() EndReason {
	switch {
	case g.forfeited != NoPlayer:
		return Forfeited
	case g.board.NumType(Empty) == 0:
		return NoEmptyCells
	case g.board.NumType(Player1Disk) == 0:
		return NoPlayer1Disks
	case g.board.NumType(Player2Disk) == 0:
		return NoPlayer2Disks
	case !g.hasMoveFor(g.curr) && !g.hasMoveFor(g.curr.Opponent()):
		return NoMovesLeft
	}
	return InProgress
}

// IsGameOver reports whether no further moves can be made.
func (g *Game) IsGameOver() bool { return g.Status() != InProgress }

// Winner returns the player with more disks, NoPlayer for a tie, or the
// opponent of a player who forfeited.
func (g *Game) Winner() (Player, error) {
	if !g.IsGameOver() {
		return NoPlayer, ErrGameNotOver
	}
	if g.forfeited != NoPlayer {
		return g.forfeited.Opponent(), nil
	}
	p1, p2 := g.Score()
	switch {
	case p1 > p2:
		return Player1, nil
	case p2 > p1:
		return Player2, nil
	}
	return NoPlayer, nil
}

// Score returns the disk count of each player.
func (g *Game) Score() (p1, p2 int) {
	return g.board.NumType(Player1Disk), g.board.NumType(Player2Disk)
}

// ValidMoves returns a board-sized grid marking every legal square for
// the current player.
func (g *Game) ValidMoves() [][]bool {
	n := g.board.Size()
	out := make([][]bool, n)
	for r := 0; r < n; r++ {
		out[r] = make([]bool, n)
		for c := 0; c < n; c++ {
			out[r][c] = g.rules.IsValidMove(g.curr, Position{Row: r, Col: c}, g.board)
		}
	}
	return out
}

// HasValidMove reports whether the current player can move anywhere.
func (g *Game) HasValidMove() bool { return g.hasMoveFor(g.curr) }

func (g *Game) hasMoveFor(p Player) bool {
	n := g.board.Size()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			if g.rules.IsValidMove(p, Position{Row: r, Col: c}, g.board) {
				return true
			}
		}
	}
	return false
}
