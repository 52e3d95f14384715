package domain

import "fmt"

// RuleStrategy decides whether a player may place a disk at a position.
// Implementations must not mutate the board.
type RuleStrategy interface {
	IsValidMove(p Player, pos Position, b *Board) bool
}

// StandardRuleID names the classic Othello rules.
const StandardRuleID = "standard"

// RuleSet maps rule identifiers to strategies.
type RuleSet map[string]RuleStrategy

// DefaultRules holds every rule variant the engine ships with.
var DefaultRules = RuleSet{
	StandardRuleID: StandardRule{},
}

// Lookup returns the strategy registered under id.
func (s RuleSet) Lookup(id string) (RuleStrategy, error) {
	r, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, id)
	}
	return r, nil
}

// StandardRule accepts a move on an empty square that brackets at least
// one straight line of opponent disks against one of the player's own.
type StandardRule struct{}

func (StandardRule) IsValidMove(p Player, pos Position, b *Board) bool {
	if !p.Valid() || !b.IsValidPosn(pos.Row, pos.Col) || b.At(pos.Row, pos.Col) != Empty {
		return false
	}
	for _, d := range directions {
		if _, ok := captureEnd(p, pos, d, b); ok {
			return true
		}
	}
	return false
}

type direction struct{ dr, dc int }

var directions = [8]direction{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// captureEnd walks from pos along d over opponent disks. It returns the
// position of the player's own disk closing the ray, and false when the
// ray is empty, leaves the board, or hits an empty square first.
func captureEnd(p Player, pos Position, d direction, b *Board) (Position, bool) {
	opp := p.Opponent().Disk()
	r, c := pos.Row+d.dr, pos.Col+d.dc
	walked := 0
	for b.IsValidPosn(r, c) && b.At(r, c) == opp {
		r += d.dr
		c += d.dc
		walked++
	}
	if walked == 0 || !b.IsValidPosn(r, c) || b.At(r, c) != p.Disk() {
		return Position{}, false
	}
	return Position{Row: r, Col: c}, true
}
