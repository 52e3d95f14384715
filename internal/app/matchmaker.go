package app

import (
	"context"
	"sync"
	"time"

	"github.com/jaminalder/codex-reversi/internal/domain"
	"github.com/jaminalder/codex-reversi/internal/log"
)

type waitingPlayer struct {
	PlayerID string
	Rules    string
	Size     int
}

// Matchmaker pairs players who want the same rules and board size.
// Players are matched first come, first served.
type Matchmaker struct {
	mu       sync.Mutex
	waiting  []waitingPlayer
	timers   map[string]*time.Timer
	assigned map[string]string // playerID -> gameID
	timeout  time.Duration
}

// NewMatchmaker returns an empty queue. A positive timeout drops players
// who wait longer than it.
func NewMatchmaker(timeout time.Duration) *Matchmaker {
	return &Matchmaker{
		timers:   make(map[string]*time.Timer),
		assigned: make(map[string]string),
		timeout:  timeout,
	}
}

// Match returns the first compatible waiting player and removes them from
// the queue. With nobody compatible, playerID is queued and matched is
// false.
func (m *Matchmaker) Match(playerID, rules string, size int) (opponent string, matched bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.assigned, playerID)
	for i, w := range m.waiting {
		if w.PlayerID == playerID || w.Rules != rules || w.Size != size {
			continue
		}
		m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
		m.stopTimerLocked(w.PlayerID)
		m.removeLocked(playerID)
		return w.PlayerID, true
	}

	if m.isWaitingLocked(playerID) {
		return "", false
	}
	m.waiting = append(m.waiting, waitingPlayer{PlayerID: playerID, Rules: rules, Size: size})
	if m.timeout > 0 {
		var t *time.Timer
		t = time.AfterFunc(m.timeout, func() { m.expire(playerID, t) })
		m.timers[playerID] = t
	}
	return "", false
}

// expire drops playerID from the queue if t is still their live timer.
// A timer that fired while the player was being matched is stale.
func (m *Matchmaker) expire(playerID string, t *time.Timer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timers[playerID] != t {
		return
	}
	log.Info("matchmaking timed out for %s", playerID)
	m.removeLocked(playerID)
}

// Remove takes every queue entry of playerID out of consideration.
func (m *Matchmaker) Remove(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(playerID)
	delete(m.assigned, playerID)
}

// Waiting reports whether playerID is queued.
func (m *Matchmaker) Waiting(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isWaitingLocked(playerID)
}

// Len returns the number of queued players.
func (m *Matchmaker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}

// Assign records the game a matched player was placed in.
func (m *Matchmaker) Assign(playerID, gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assigned[playerID] = gameID
}

// Assignment returns the game a matched player was placed in.
func (m *Matchmaker) Assignment(playerID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.assigned[playerID]
	return id, ok
}

func (m *Matchmaker) removeLocked(playerID string) {
	kept := m.waiting[:0]
	for _, w := range m.waiting {
		if w.PlayerID != playerID {
			kept = append(kept, w)
		}
	}
	m.waiting = kept
	m.stopTimerLocked(playerID)
}

func (m *Matchmaker) isWaitingLocked(playerID string) bool {
	for _, w := range m.waiting {
		if w.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (m *Matchmaker) stopTimerLocked(playerID string) {
	if t := m.timers[playerID]; t != nil {
		t.Stop()
	}
	delete(m.timers, playerID)
}

// Lobby turns matches into seated games.
type Lobby struct {
	svc  *Service
	mm   *Matchmaker
	save bool
}

// NewLobby returns a lobby creating games on svc. save is passed to
// every game it creates.
func NewLobby(svc *Service, mm *Matchmaker, save bool) *Lobby {
	return &Lobby{svc: svc, mm: mm, save: save}
}

// Enter queues playerID or, when a compatible opponent is waiting,
// creates a game with the opponent as player 1 and returns its id. An
// empty id means the player is waiting.
func (l *Lobby) Enter(ctx context.Context, playerID, rules string, size int) (string, error) {
	if size <= 0 || size%2 != 0 {
		return "", domain.ErrInvalidSize
	}
	if _, err := domain.DefaultRules.Lookup(rules); err != nil {
		return "", err
	}
	opponent, ok := l.mm.Match(playerID, rules, size)
	if !ok {
		return "", nil
	}
	snap, err := l.svc.CreateGame(ctx, CreateOptions{Size: size, Rules: rules, Player1First: true, Save: l.save})
	if err != nil {
		return "", err
	}
	l.svc.Join(snap.ID, opponent)
	l.svc.Join(snap.ID, playerID)
	l.mm.Assign(opponent, snap.ID)
	l.mm.Assign(playerID, snap.ID)
	log.Info("matched %s with %s in game %s", opponent, playerID, snap.ID)
	return snap.ID, nil
}

// Poll returns the game a waiting player has been placed in, if any.
func (l *Lobby) Poll(playerID string) (string, bool) { return l.mm.Assignment(playerID) }

// Leave cancels matchmaking for playerID.
func (l *Lobby) Leave(playerID string) { l.mm.Remove(playerID) }
