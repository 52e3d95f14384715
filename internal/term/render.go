// Package term draws games on a terminal.
package term

import (
	"fmt"
	"io"
	"strings"

	"github.com/jaminalder/codex-reversi/internal/domain"
	"github.com/muesli/termenv"
)

// Options controls Render.
type Options struct {
	// Hints marks the current player's legal moves.
	Hints bool
	// Plain disables colour regardless of what the terminal supports.
	Plain bool
}

const (
	player1Color = "4" // blue
	player2Color = "1" // red
	hintColor    = "2"
)

// Render writes the board of g with row and column indices, followed by
// a status line.
func Render(w io.Writer, g *domain.Game, opts Options) error {
	var o *termenv.Output
	if opts.Plain {
		o = termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	} else {
		o = termenv.NewOutput(w)
	}

	var sb strings.Builder
	size := g.Size()
	sb.WriteString("   ")
	for c := 0; c < size; c++ {
		fmt.Fprintf(&sb, "%2d", c)
	}
	sb.WriteString("\n")

	var valid [][]bool
	if opts.Hints && !g.IsGameOver() {
		valid = g.ValidMoves()
	}
	for r, row := range g.State() {
		fmt.Fprintf(&sb, "%2d ", r)
		for c, cell := range row {
			sb.WriteString(" ")
			sb.WriteString(cellString(o, cell, valid != nil && valid[r][c]))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(Status(g))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func cellString(o *termenv.Output, cell domain.CellState, hint bool) string {
	switch cell {
	case domain.Player1Disk:
		return o.String("X").Foreground(o.Color(player1Color)).Bold().String()
	case domain.Player2Disk:
		return o.String("O").Foreground(o.Color(player2Color)).Bold().String()
	}
	if hint {
		return o.String("·").Foreground(o.Color(hintColor)).String()
	}
	return "."
}

// Status summarises score and turn, or the result once the game is over.
func Status(g *domain.Game) string {
	p1, p2 := g.Score()
	score := fmt.Sprintf("%s (X) %d - %d %s (O)", domain.Player1, p1, p2, domain.Player2)
	if !g.IsGameOver() {
		return fmt.Sprintf("%s | %s to move", score, g.CurrPlayer())
	}
	winner, _ := g.Winner()
	if winner == domain.NoPlayer {
		return fmt.Sprintf("%s | game over (%s): tie", score, g.Status())
	}
	return fmt.Sprintf("%s | game over (%s): %s wins", score, g.Status(), winner)
}
