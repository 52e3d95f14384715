package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jaminalder/codex-reversi/internal/app"
	"github.com/jaminalder/codex-reversi/internal/domain"
	"github.com/jaminalder/codex-reversi/internal/log"
)

type handlers struct {
	svc          *app.Service
	lobby        *app.Lobby
	tpl          *templates
	defaultSize  int
	defaultRules string
	heartbeat    time.Duration
}

func snapshotView(snap app.Snapshot, errMsg string) boardView {
	return boardView{
		ID:     snap.ID,
		Board:  snap.Board,
		Valid:  snap.ValidMoves,
		Turn:   snap.Turn,
		Score:  snap.Score,
		Over:   snap.Over,
		Status: snap.Status,
		Winner: snap.Winner,
		Error:  errMsg,
	}
}

func (h *handlers) renderBoard(snap app.Snapshot, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", snapshotView(snap, errMsg))
}

func writeHTML(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	rules := make([]string, 0, len(domain.DefaultRules))
	for id := range domain.DefaultRules {
		rules = append(rules, id)
	}
	sort.Strings(rules)
	data := struct {
		Sizes        []int
		Rules        []string
		DefaultSize  int
		DefaultRules string
		Matchmaking  bool
	}{
		Sizes:        []int{4, 6, 8, 10, 12},
		Rules:        rules,
		DefaultSize:  h.defaultSize,
		DefaultRules: h.defaultRules,
		Matchmaking:  h.lobby != nil,
	}
	writeHTML(w, http.StatusOK, renderTemplate(h.tpl.index, "", data))
}

// gameOptions reads size, rules, first and save from the form, falling
// back to the server defaults.
func (h *handlers) gameOptions(r *http.Request) app.CreateOptions {
	_ = r.ParseForm()
	opts := app.CreateOptions{
		Size:         h.defaultSize,
		Rules:        h.defaultRules,
		Player1First: r.Form.Get("first") != "2",
		Save:         r.Form.Get("save") != "",
	}
	if v, err := strconv.Atoi(r.Form.Get("size")); err == nil {
		opts.Size = v
	}
	if v := r.Form.Get("rules"); v != "" {
		opts.Rules = v
	}
	return opts
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.CreateGame(r.Context(), h.gameOptions(r))
	if err != nil {
		http.Error(w, "failed to create: "+err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) resumeLatest(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.ResumeLatest(r.Context())
	if err != nil {
		if errors.Is(err, app.ErrNotFound) || errors.Is(err, app.ErrNoStore) {
			http.Error(w, "no saved game to resume", http.StatusNotFound)
			return
		}
		log.Error("resume latest: %v", err)
		http.Error(w, "failed to resume", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// ensure cookie and auto-claim seat
	pid := ensurePlayerCookie(w, r)
	seat, gs, err := h.svc.Join(id, pid)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	data := struct {
		ID    string
		Seat  domain.Player
		Board boardView
	}{ID: gs.ID, Seat: seat, Board: snapshotView(gs, "")}
	writeHTML(w, http.StatusOK, renderTemplate(h.tpl.game, "", data))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_, gs, err := h.svc.Join(id, pid)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, http.StatusOK, h.renderBoard(gs, ""))
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, app.ErrNotAPlayer):
		return "You are a spectator"
	case errors.Is(err, app.ErrIllegalMove):
		return "Illegal move"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	default:
		return "Invalid move"
	}
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	ri, errR := strconv.Atoi(r.Form.Get("r"))
	ci, errC := strconv.Atoi(r.Form.Get("c"))
	var gs app.Snapshot
	var err error
	if errR != nil || errC != nil {
		err = domain.ErrOutOfBounds
	} else {
		gs, err = h.svc.Play(r.Context(), id, pid, ri, ci)
	}
	h.respondBoard(w, r, id, gs, err)
}

func (h *handlers) forfeit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	gs, err := h.svc.Forfeit(r.Context(), id, pid)
	h.respondBoard(w, r, id, gs, err)
}

// respondBoard renders the board fragment, showing err as an alert on the
// current state when the action failed.
func (h *handlers) respondBoard(w http.ResponseWriter, r *http.Request, id string, gs app.Snapshot, err error) {
	var errMsg string
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		latest, ok := h.svc.Get(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		gs = latest
		errMsg = errorMessage(err)
	}
	writeHTML(w, http.StatusOK, h.renderBoard(gs, errMsg))
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	defer unsub()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	// Initial flush of headers
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "board", b)
			flusher.Flush()
		}
	}
}

// writeEvent emits one SSE event; every payload line gets its own data
// field.
func writeEvent(w io.Writer, name string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", name)
	for _, line := range bytes.Split(bytes.TrimRight(payload, "\n"), []byte("\n")) {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}

// gameJSON mirrors the saved-game shape: integer grid, rule id and whose
// turn it is.
type gameJSON struct {
	GameID     string  `json:"game_id"`
	Complete   bool    `json:"complete"`
	BoardState [][]int `json:"board_state"`
	Rules      string  `json:"rules"`
	NextTurn   int     `json:"next_turn"`
	Score      [2]int  `json:"score"`
	Status     string  `json:"status"`
	Winner     *int    `json:"winner,omitempty"`
}

func toJSON(snap app.Snapshot) gameJSON {
	grid := make([][]int, len(snap.Board))
	for r, row := range snap.Board {
		grid[r] = make([]int, len(row))
		for c, cell := range row {
			grid[r][c] = int(cell)
		}
	}
	out := gameJSON{
		GameID:     snap.ID,
		Complete:   snap.Over,
		BoardState: grid,
		Rules:      snap.Rules,
		NextTurn:   int(snap.Turn),
		Score:      snap.Score,
		Status:     snap.Status.String(),
	}
	if snap.Over {
		winner := int(snap.Winner)
		out.Winner = &winner
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (h *handlers) apiGet(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, app.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, toJSON(gs))
}

func (h *handlers) apiResume(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.RestoreGame(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toJSON(gs))
	case errors.Is(err, app.ErrNotFound), errors.Is(err, app.ErrNoStore):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrGameComplete):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		log.Error("resume game: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to resume")
	}
}

func (h *handlers) matchEnter(w http.ResponseWriter, r *http.Request) {
	if h.lobby == nil {
		http.NotFound(w, r)
		return
	}
	pid := ensurePlayerCookie(w, r)
	opts := h.gameOptions(r)
	id, err := h.lobby.Enter(r.Context(), pid, opts.Rules, opts.Size)
	if err != nil {
		http.Error(w, "cannot match: "+err.Error(), http.StatusBadRequest)
		return
	}
	if id != "" {
		http.Redirect(w, r, "/game/"+id, http.StatusSeeOther)
		return
	}
	data := struct {
		Size  int
		Rules string
	}{opts.Size, opts.Rules}
	writeHTML(w, http.StatusOK, renderTemplate(h.tpl.waiting, "", data))
}

func (h *handlers) matchPoll(w http.ResponseWriter, r *http.Request) {
	if h.lobby == nil {
		http.NotFound(w, r)
		return
	}
	pid := ensurePlayerCookie(w, r)
	if id, ok := h.lobby.Poll(pid); ok {
		// htmx follows HX-Redirect; plain clients get a normal redirect
		if r.Header.Get("HX-Request") != "" {
			w.Header().Set("HX-Redirect", "/game/"+id)
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/game/"+id, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) matchCancel(w http.ResponseWriter, r *http.Request) {
	if h.lobby == nil {
		http.NotFound(w, r)
		return
	}
	h.lobby.Leave(ensurePlayerCookie(w, r))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
