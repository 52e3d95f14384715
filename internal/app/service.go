package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaminalder/codex-reversi/internal/domain"
	"github.com/jaminalder/codex-reversi/internal/log"
	"github.com/jaminalder/codex-reversi/internal/store"
)

// Errors exposed by the service layer.
var (
	ErrNotFound     = errors.New("game not found")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrNotAPlayer   = errors.New("not a player")
	ErrIllegalMove  = errors.New("illegal move")
	ErrGameComplete = errors.New("game already complete")
	ErrNoStore      = errors.New("no store configured")
)

// CreateOptions configures a new game.
type CreateOptions struct {
	Size         int
	Rules        string
	Player1First bool
	Save         bool
}

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID      string
	Game    *domain.Game
	P1      string
	P2      string
	Created time.Time
	Updated time.Time
}

// Snapshot is an immutable view of a game handed to callers outside the
// service lock.
type Snapshot struct {
	ID         string
	Size       int
	Rules      string
	Board      [][]domain.CellState
	ValidMoves [][]bool
	Turn       domain.Player
	Score      [2]int
	Status     domain.EndReason
	Over       bool
	Winner     domain.Player
	Forfeited  domain.Player
	Save       bool
	P1         string
	P2         string
	Created    time.Time
	Updated    time.Time
}

// Seat returns the side playerID sits on, or NoPlayer for spectators.
func (s Snapshot) Seat(playerID string) domain.Player {
	switch {
	case playerID == "":
		return domain.NoPlayer
	case s.P1 == playerID:
		return domain.Player1
	case s.P2 == playerID:
		return domain.Player2
	}
	return domain.NoPlayer
}

func (gs *GameState) snapshot() Snapshot {
	g := gs.Game
	p1, p2 := g.Score()
	status := g.Status()
	snap := Snapshot{
		ID:         gs.ID,
		Size:       g.Size(),
		Rules:      g.RuleID(),
		Board:      g.State(),
		ValidMoves: g.ValidMoves(),
		Turn:       g.CurrPlayer(),
		Score:      [2]int{p1, p2},
		Status:     status,
		Over:       status != domain.InProgress,
		Forfeited:  g.ForfeitedPlayer(),
		Save:       g.Save(),
		P1:         gs.P1,
		P2:         gs.P2,
		Created:    gs.Created,
		Updated:    gs.Updated,
	}
	if snap.Over {
		snap.Winner, _ = g.Winner()
	}
	return snap
}

func (gs *GameState) seat(playerID string) domain.Player {
	return Snapshot{P1: gs.P1, P2: gs.P2}.Seat(playerID)
}

func (gs *GameState) record() store.Record {
	return store.Record{
		ID:         gs.ID,
		BoardState: gs.Game.Grid(),
		Rules:      gs.Game.RuleID(),
		NextTurn:   int(gs.Game.CurrPlayer()),
		Complete:   gs.Game.IsGameOver(),
		CreatedAt:  gs.Created,
		UpdatedAt:  gs.Updated,
	}
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// send delivers payload without blocking. It reports false when the
// subscriber is closed or too slow to keep up.
func (s *subscriber) send(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- payload:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Service manages games, their persistence and subscribers.
type Service struct {
	mu     sync.Mutex
	games  map[string]*GameState
	subs   map[string]map[*subscriber]struct{}
	render func(Snapshot) []byte
	store  store.Store
}

// NewService creates a service with a default renderer (encodes nothing useful).
func NewService() *Service { return NewServiceWithRenderer(nil) }

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(renderer func(Snapshot) []byte) *Service {
	s := &Service{
		games: make(map[string]*GameState),
		subs:  make(map[string]map[*subscriber]struct{}),
	}
	s.SetRenderer(renderer)
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(Snapshot) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(Snapshot) []byte { return nil }
		return
	}
	s.render = renderer
}

// SetStore enables persistence for games created with Save set.
func (s *Service) SetStore(st store.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = st
}

// CreateGame creates and registers a new game.
func (s *Service) CreateGame(ctx context.Context, opts CreateOptions) (Snapshot, error) {
	first := domain.Player2
	if opts.Player1First {
		first = domain.Player1
	}
	g, err := domain.New(opts.Size, opts.Rules, first, opts.Save)
	if err != nil {
		return Snapshot{}, err
	}
	id := uuid.NewString()
	g.SetID(id)
	now := time.Now()
	gs := &GameState{ID: id, Game: g, Created: now, Updated: now}

	s.mu.Lock()
	s.games[id] = gs
	snap := gs.snapshot()
	rec, st := gs.record(), s.store
	s.mu.Unlock()

	log.Info("game %s created: size=%d rules=%s first=%s save=%v", id, opts.Size, opts.Rules, first, opts.Save)
	if opts.Save {
		s.persist(ctx, st, rec)
	}
	return snap, nil
}

// RestoreGame makes a saved game live again. A game that is already live
// is returned as is.
func (s *Service) RestoreGame(ctx context.Context, id string) (Snapshot, error) {
	if snap, ok := s.Get(id); ok {
		return snap, nil
	}
	s.mu.Lock()
	st := s.store
	s.mu.Unlock()
	if st == nil {
		return Snapshot{}, ErrNoStore
	}
	rec, err := st.LoadGame(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	return s.register(rec)
}

// ResumeLatest restores the most recently saved unfinished game.
func (s *Service) ResumeLatest(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	st := s.store
	s.mu.Unlock()
	if st == nil {
		return Snapshot{}, ErrNoStore
	}
	rec, err := st.LatestResumable(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	if snap, ok := s.Get(rec.ID); ok {
		return snap, nil
	}
	return s.register(rec)
}

func (s *Service) register(rec *store.Record) (Snapshot, error) {
	if rec.Complete {
		return Snapshot{}, ErrGameComplete
	}
	g, err := domain.Restore(len(rec.BoardState), rec.BoardState, rec.Rules, domain.Player(rec.NextTurn))
	if err != nil {
		return Snapshot{}, fmt.Errorf("restore game %s: %w", rec.ID, err)
	}
	g.SetID(rec.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gs, ok := s.games[rec.ID]; ok {
		return gs.snapshot(), nil
	}
	gs := &GameState{ID: rec.ID, Game: g, Created: rec.CreatedAt, Updated: time.Now()}
	s.games[rec.ID] = gs
	log.Info("game %s restored, next turn %s", rec.ID, g.CurrPlayer())
	return gs.snapshot(), nil
}

// Get returns a snapshot of the game if present.
func (s *Service) Get(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return Snapshot{}, false
	}
	return gs.snapshot(), true
}

// Join assigns a seat to the player if available; returns NoPlayer for spectators.
func (s *Service) Join(id, playerID string) (domain.Player, Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return domain.NoPlayer, Snapshot{}, ErrNotFound
	}
	side := domain.NoPlayer
	if gs.P1 == "" || gs.P1 == playerID {
		gs.P1 = playerID
		side = domain.Player1
	} else if gs.P2 == "" || gs.P2 == playerID {
		gs.P2 = playerID
		side = domain.Player2
	}
	gs.Updated = time.Now()
	return side, gs.snapshot(), nil
}

// Play validates seat and turn, applies a move, persists, and broadcasts.
func (s *Service) Play(ctx context.Context, id, playerID string, r, c int) (Snapshot, error) {
	return s.mutate(ctx, id, playerID, func(gs *GameState, seat domain.Player) error {
		if seat != gs.Game.CurrPlayer() {
			return ErrNotYourTurn
		}
		ok, err := gs.Game.PlaceTile(domain.Position{Row: r, Col: c})
		if err != nil {
			return err
		}
		if !ok {
			return ErrIllegalMove
		}
		log.Debug("game %s: %s placed at (%d,%d)", id, seat, r, c)
		return nil
	})
}

// Forfeit concedes the game on behalf of the player's seat.
func (s *Service) Forfeit(ctx context.Context, id, playerID string) (Snapshot, error) {
	return s.mutate(ctx, id, playerID, func(gs *GameState, seat domain.Player) error {
		if err := gs.Game.Forfeit(seat); err != nil {
			return err
		}
		log.Info("game %s: %s forfeited", id, seat)
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id, playerID string, apply func(*GameState, domain.Player) error) (Snapshot, error) {
	var toDrop []*subscriber

	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return Snapshot{}, ErrNotFound
	}
	// Validate player is seated
	seat := gs.seat(playerID)
	if seat == domain.NoPlayer {
		s.mu.Unlock()
		return Snapshot{}, ErrNotAPlayer
	}
	if err := apply(gs, seat); err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	gs.Updated = time.Now()

	// Snapshot state and subscribers
	snap := gs.snapshot()
	rec, st := gs.record(), s.store
	subs := s.copySubsLocked(id)
	payload := s.render(snap)
	s.mu.Unlock()

	if snap.Over {
		log.Info("game %s over: %s, winner %s", id, snap.Status, snap.Winner)
	}
	if snap.Save {
		s.persist(ctx, st, rec)
	}

	// Fan-out; drop slow subscribers by closing and marking for deletion
	for sub := range subs {
		if !sub.send(payload) {
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
	}
	return snap, nil
}

// persist writes rec when a store is configured. Failures are logged and
// the in-memory game stays authoritative.
func (s *Service) persist(ctx context.Context, st store.Store, rec store.Record) {
	if st == nil {
		return
	}
	if err := st.SaveGame(ctx, rec); err != nil {
		log.Error("failed to save game %s: %v", rec.ID, err)
	}
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, func() {}, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
