package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jaminalder/codex-reversi/internal/app"
	"github.com/jaminalder/codex-reversi/internal/domain"
	"github.com/jaminalder/codex-reversi/internal/log"
)

// Option customises NewServer.
type Option func(*handlers)

// WithLobby enables the matchmaking routes.
func WithLobby(l *app.Lobby) Option { return func(h *handlers) { h.lobby = l } }

// WithDefaults sets the board size and rules used when a form omits them.
func WithDefaults(size int, rules string) Option {
	return func(h *handlers) {
		h.defaultSize = size
		h.defaultRules = rules
	}
}

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) Option { return func(h *handlers) { h.heartbeat = d } }

// NewServer wires routes and returns an http.Handler. It also installs
// the board fragment renderer used for SSE broadcasts on s.
func NewServer(s *app.Service, opts ...Option) http.Handler {
	h := &handlers{
		svc:          s,
		tpl:          loadTemplates(),
		defaultSize:  8,
		defaultRules: domain.StandardRuleID,
		heartbeat:    15 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	s.SetRenderer(func(snap app.Snapshot) []byte { return h.renderBoard(snap, "") })

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Post("/resume", h.resumeLatest)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/join", h.join)
		r.Post("/play", h.play)
		r.Post("/forfeit", h.forfeit)
		r.Get("/events", h.events)
	})
	r.Route("/api/games/{id}", func(r chi.Router) {
		r.Get("/", h.apiGet)
		r.Post("/resume", h.apiResume)
	})
	r.Route("/match", func(r chi.Router) {
		r.Post("/", h.matchEnter)
		r.Get("/", h.matchPoll)
		r.Post("/cancel", h.matchCancel)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
