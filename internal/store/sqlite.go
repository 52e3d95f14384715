package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies
// every embedded migration in name order. Use ":memory:" for tests.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer; an in-memory database also only
	// exists on the connection that created it
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		migration, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveGame(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("record has no id")
	}
	state, err := json.Marshal(rec.BoardState)
	if err != nil {
		return fmt.Errorf("failed to encode board state: %w", err)
	}
	now := time.Now()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	q := `
	INSERT INTO games (game_id, board_size, board_state, rules, next_turn, complete, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (game_id) DO UPDATE SET
		board_size = excluded.board_size,
		board_state = excluded.board_state,
		rules = excluded.rules,
		next_turn = excluded.next_turn,
		complete = excluded.complete,
		updated_at = excluded.updated_at;
	`
	_, err = s.db.ExecContext(ctx, q, rec.ID, len(rec.BoardState), string(state), rec.Rules,
		rec.NextTurn, rec.Complete, rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadGame(ctx context.Context, id string) (*Record, error) {
	q := `
	SELECT game_id, board_state, rules, next_turn, complete, created_at, updated_at
	FROM games WHERE game_id = ?;
	`
	return scanRecord(s.db.QueryRowContext(ctx, q, id))
}

func (s *SQLiteStore) LatestResumable(ctx context.Context) (*Record, error) {
	q := `
	SELECT game_id, board_state, rules, next_turn, complete, created_at, updated_at
	FROM games WHERE complete = 0
	ORDER BY updated_at DESC LIMIT 1;
	`
	return scanRecord(s.db.QueryRowContext(ctx, q))
}

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		rec              Record
		state            string
		created, updated int64
	)
	err := row.Scan(&rec.ID, &state, &rec.Rules, &rec.NextTurn, &rec.Complete, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}
	if err := json.Unmarshal([]byte(state), &rec.BoardState); err != nil {
		return nil, fmt.Errorf("failed to decode board state of %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.Unix(0, created)
	rec.UpdatedAt = time.Unix(0, updated)
	return &rec, nil
}
