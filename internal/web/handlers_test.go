package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jaminalder/codex-reversi/internal/app"
	"github.com/jaminalder/codex-reversi/internal/domain"
	"github.com/jaminalder/codex-reversi/internal/store"
)

var ctx = context.Background()

func newTestServer(t *testing.T, opts ...Option) (*app.Service, http.Handler) {
	t.Helper()
	s := app.NewService()
	h := NewServer(s, opts...)
	return s, h
}

func newGame(t *testing.T, s *app.Service) app.Snapshot {
	t.Helper()
	gs, err := s.CreateGame(ctx, app.CreateOptions{Size: 8, Rules: domain.StandardRuleID, Player1First: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return gs
}

func postForm(h http.Handler, path, pid string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if pid != "" {
		req.AddCookie(&http.Cookie{Name: "player_id", Value: pid})
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
		t.Fatalf("index should contain create form; got body: %q", body)
	}
	if !strings.Contains(body, "value=\"standard\"") {
		t.Fatalf("index should list the standard rules; got body: %q", body)
	}
	if strings.Contains(body, "action=\"/match\"") {
		t.Fatalf("matchmaking form shown without a lobby")
	}
}

func TestCreateRedirectsToGame(t *testing.T) {
	svc, h := newTestServer(t)
	rr := postForm(h, "/game", "", url.Values{"size": {"6"}, "rules": {"standard"}, "first": {"2"}})
	if rr.Code != http.StatusSeeOther && rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc := rr.Result().Header.Get("Location")
	if !strings.HasPrefix(loc, "/game/") {
		t.Fatalf("expected redirect to /game/{id}, got %q", loc)
	}
	gs, ok := svc.Get(strings.TrimPrefix(loc, "/game/"))
	if !ok || gs.Size != 6 || gs.Turn != domain.Player2 {
		t.Fatalf("expected 6x6 game with player 2 first, got %+v", gs)
	}
}

func TestCreateRejectsBadSize(t *testing.T) {
	_, h := newTestServer(t)
	rr := postForm(h, "/game", "", url.Values{"size": {"7"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGamePageSetsCookieAndAutoClaims(t *testing.T) {
	svc, h := newTestServer(t)
	gs := newGame(t, svc)

	req := httptest.NewRequest("GET", "/game/"+url.PathEscape(gs.ID), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var playerID string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "player_id" {
			playerID = c.Value
			break
		}
	}
	if playerID == "" {
		t.Fatalf("expected player_id cookie to be set")
	}
	latest, ok := svc.Get(gs.ID)
	if !ok || latest.P1 != playerID {
		t.Fatalf("expected auto-claim of player 1; have P1=%q pid=%q", latest.P1, playerID)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+gs.ID+"/events") {
		t.Fatalf("expected SSE wiring in page; got body: %q", body)
	}
	if !strings.Contains(body, "You are Player 1") {
		t.Fatalf("expected seat banner; got body: %q", body)
	}
}

func TestGamePageUnknownID(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/game/nope", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestJoinEndpointReturnsBoardFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs := newGame(t, svc)
	svc.Join(gs.ID, "p1")

	rr := postForm(h, "/game/"+gs.ID+"/join", "p2", url.Values{})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(gs.ID)
	if latest.P2 != "p2" {
		t.Fatalf("expected seat for p2, got P1=%q P2=%q", latest.P1, latest.P2)
	}
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs := newGame(t, svc)
	svc.Join(gs.ID, "p1")
	svc.Join(gs.ID, "p2")

	rr := postForm(h, "/game/"+gs.ID+"/play", "p1", url.Values{"r": {"2"}, "c": {"3"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", body)
	}
	if strings.Contains(body, "class=\"alert\"") {
		t.Fatalf("unexpected error in fragment: %q", body)
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Score != [2]int{4, 1} || latest.Turn != domain.Player2 {
		t.Fatalf("expected 4-1 with player 2 to move, got %v turn=%v", latest.Score, latest.Turn)
	}
}

func TestPlayEndpointReportsErrors(t *testing.T) {
	svc, h := newTestServer(t)
	gs := newGame(t, svc)
	svc.Join(gs.ID, "p1")
	svc.Join(gs.ID, "p2")

	cases := []struct {
		pid  string
		form url.Values
		want string
	}{
		{"p2", url.Values{"r": {"2"}, "c": {"4"}}, "Not your turn"},
		{"watcher", url.Values{"r": {"2"}, "c": {"3"}}, "You are a spectator"},
		{"p1", url.Values{"r": {"0"}, "c": {"0"}}, "Illegal move"},
		{"p1", url.Values{"r": {"9"}, "c": {"0"}}, "Out of bounds"},
		{"p1", url.Values{"r": {"x"}}, "Out of bounds"},
	}
	for _, tc := range cases {
		rr := postForm(h, "/game/"+gs.ID+"/play", tc.pid, tc.form)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), tc.want) {
			t.Fatalf("expected %q for %v, got %q", tc.want, tc.form, rr.Body.String())
		}
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Score != [2]int{2, 2} {
		t.Fatalf("rejected moves must not change the board, score %v", latest.Score)
	}
}

func TestForfeitEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs := newGame(t, svc)
	svc.Join(gs.ID, "p1")
	svc.Join(gs.ID, "p2")

	rr := postForm(h, "/game/"+gs.ID+"/forfeit", "p1", url.Values{})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Winner: Player 2") {
		t.Fatalf("expected player 2 to win, got %q", rr.Body.String())
	}
	rr = postForm(h, "/game/"+gs.ID+"/forfeit", "p2", url.Values{})
	if !strings.Contains(rr.Body.String(), "Game is over") {
		t.Fatalf("expected game over alert, got %q", rr.Body.String())
	}
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	rrCreate := postForm(h, "/game", "", url.Values{})
	loc := rrCreate.Result().Header.Get("Location")
	if loc == "" {
		t.Fatalf("missing redirect location")
	}
	req := httptest.NewRequest("GET", loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Result().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		io.Copy(io.Discard, rr.Result().Body)
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
}

func TestEventsEndpointUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/game/nope/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestWriteEventPrefixesEveryLine(t *testing.T) {
	var sb strings.Builder
	writeEvent(&sb, "board", []byte("<div>\n<span>x</span>\n</div>\n"))
	want := "event: board\ndata: <div>\ndata: <span>x</span>\ndata: </div>\n\n"
	if sb.String() != want {
		t.Fatalf("unexpected event encoding: %q", sb.String())
	}
}

func TestAPIGetReturnsGameJSON(t *testing.T) {
	svc, h := newTestServer(t)
	gs := newGame(t, svc)

	req := httptest.NewRequest("GET", "/api/games/"+gs.ID, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got gameJSON
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.GameID != gs.ID || got.Rules != "standard" || got.NextTurn != 1 || got.Complete {
		t.Fatalf("unexpected payload %+v", got)
	}
	if len(got.BoardState) != 8 || got.BoardState[3][3] != 2 || got.BoardState[4][3] != 1 {
		t.Fatalf("unexpected board state %v", got.BoardState)
	}
	if got.Winner != nil {
		t.Fatalf("winner must be omitted while in progress")
	}

	req = httptest.NewRequest("GET", "/api/games/nope", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAPIResumeFromStore(t *testing.T) {
	st, err := store.NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close(ctx)
	grid := [][]int{
		{0, 0, 0, 0},
		{0, 2, 1, 0},
		{0, 1, 2, 0},
		{0, 0, 0, 0},
	}
	if err := st.SaveGame(ctx, store.Record{ID: "saved", BoardState: grid, Rules: "standard", NextTurn: 2}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := app.NewService()
	svc.SetStore(st)
	h := NewServer(svc)

	rr := postForm(h, "/api/games/saved/resume", "", url.Values{})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got gameJSON
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.NextTurn != 2 || got.Score != [2]int{2, 2} {
		t.Fatalf("unexpected resumed game %+v", got)
	}
	if _, ok := svc.Get("saved"); !ok {
		t.Fatalf("resumed game should be live")
	}

	rr = postForm(h, "/api/games/missing/resume", "", url.Values{})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestMatchRoutesRequireLobby(t *testing.T) {
	_, h := newTestServer(t)
	rr := postForm(h, "/match", "a", url.Values{})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without lobby, got %d", rr.Code)
	}
}

func TestMatchFlow(t *testing.T) {
	svc := app.NewService()
	lobby := app.NewLobby(svc, app.NewMatchmaker(0), false)
	h := NewServer(svc, WithLobby(lobby))

	form := url.Values{"size": {"8"}, "rules": {"standard"}}
	rr := postForm(h, "/match", "a", form)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Waiting for an opponent") {
		t.Fatalf("expected waiting page, got %d %q", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest("GET", "/match", nil)
	req.AddCookie(&http.Cookie{Name: "player_id", Value: "a"})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 while waiting, got %d", rr.Code)
	}

	rr = postForm(h, "/match", "b", form)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect for matched player, got %d", rr.Code)
	}
	loc := rr.Result().Header.Get("Location")

	req = httptest.NewRequest("GET", "/match", nil)
	req.Header.Set("HX-Request", "true")
	req.AddCookie(&http.Cookie{Name: "player_id", Value: "a"})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Result().Header.Get("HX-Redirect"); got != loc {
		t.Fatalf("expected HX-Redirect %q, got %q", loc, got)
	}
	gs, _ := svc.Get(strings.TrimPrefix(loc, "/game/"))
	if gs.P1 != "a" || gs.P2 != "b" {
		t.Fatalf("expected a vs b, got %q vs %q", gs.P1, gs.P2)
	}
}

func TestMatchCancel(t *testing.T) {
	svc := app.NewService()
	mm := app.NewMatchmaker(0)
	h := NewServer(svc, WithLobby(app.NewLobby(svc, mm, false)))

	postForm(h, "/match", "a", url.Values{})
	if !mm.Waiting("a") {
		t.Fatalf("expected a to be waiting")
	}
	rr := postForm(h, "/match/cancel", "a", url.Values{})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	if mm.Waiting("a") {
		t.Fatalf("cancel should leave the queue")
	}
}
