package domain

// CellState is the content of a single board square.
type CellState uint8

const (
	Empty CellState = iota
	Player1Disk
	Player2Disk
)

func (s CellState) String() string {
	switch s {
	case Player1Disk:
		return "player1"
	case Player2Disk:
		return "player2"
	default:
		return "empty"
	}
}

// Owner returns the player whose disk occupies the state, or NoPlayer.
func (s CellState) Owner() Player {
	switch s {
	case Player1Disk:
		return Player1
	case Player2Disk:
		return Player2
	default:
		return NoPlayer
	}
}

// Player identifies one of the two sides. NoPlayer is only used as the
// winner of a tied game and for "nobody" answers.
type Player uint8

const (
	NoPlayer Player = iota
	Player1
	Player2
)

// Valid reports whether p is Player1 or Player2.
func (p Player) Valid() bool { return p == Player1 || p == Player2 }

// Opponent returns the other player. NoPlayer has no opponent.
func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return NoPlayer
	}
}

// Disk returns the cell state occupied by p.
func (p Player) Disk() CellState {
	switch p {
	case Player1:
		return Player1Disk
	case Player2:
		return Player2Disk
	default:
		return Empty
	}
}

func (p Player) String() string {
	switch p {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	default:
		return "none"
	}
}

// Cell is one board square. Fill and Flip are its only mutators.
type Cell struct {
	state CellState
}

// State returns the current content of the cell.
func (c *Cell) State() CellState { return c.state }

// Fill places p's disk on an empty cell.
func (c *Cell) Fill(p Player) error {
	if !p.Valid() {
		return ErrInvalidPlayer
	}
	if c.state != Empty {
		return ErrCellOccupied
	}
	c.state = p.Disk()
	return nil
}

// Flip hands an occupied cell over to the other player.
func (c *Cell) Flip() error {
	switch c.state {
	case Player1Disk:
		c.state = Player2Disk
	case Player2Disk:
		c.state = Player1Disk
	default:
		return ErrCellEmpty
	}
	return nil
}
