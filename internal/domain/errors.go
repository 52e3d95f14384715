package domain

import "errors"

// Errors returned by domain operations.
var (
	ErrOutOfBounds      = errors.New("out of bounds")
	ErrGameOver         = errors.New("game over")
	ErrGameNotOver      = errors.New("game not over")
	ErrInvalidPlayer    = errors.New("invalid player")
	ErrInvalidSize      = errors.New("board size must be a positive even number")
	ErrGridShape        = errors.New("grid does not match board size")
	ErrInvalidCellValue = errors.New("invalid cell value")
	ErrUnknownRule      = errors.New("unknown rule")
	ErrCellOccupied     = errors.New("cell occupied")
	ErrCellEmpty        = errors.New("cell empty")
)
