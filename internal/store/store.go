package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no saved game matches the request.
var ErrNotFound = errors.New("saved game not found")

// Record is a persisted game: the integer-coded board plus what is
// needed to rebuild a domain.Game from it.
type Record struct {
	ID         string
	BoardState [][]int
	Rules      string
	NextTurn   int
	Complete   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store persists games between sessions.
type Store interface {
	Close(ctx context.Context) error
	SaveGame(ctx context.Context, rec Record) error
	LoadGame(ctx context.Context, id string) (*Record, error)
	// LatestResumable returns the most recently updated incomplete game.
	LatestResumable(ctx context.Context) (*Record, error)
}
