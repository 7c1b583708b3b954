// internal/httpserver/server.go
//
// HTTP server wiring for the memory-match backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/leaderboard".
//   - Session endpoints (require a session token): /session/*.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Live sessions are held in a store.Store keyed by session id; the token
//     only carries the id and address.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/robalobadob/memorymatch/internal/leaderboard"
	"github.com/robalobadob/memorymatch/internal/session"
	"github.com/robalobadob/memorymatch/internal/store"
)

// Leaderboard serves ranked entries. *leaderboard.Service satisfies it.
type Leaderboard interface {
	Entries(ctx context.Context) ([]leaderboard.Entry, error)
}

// History reads recorded attempts. *store.SQLite satisfies it.
type History interface {
	SessionAttempts(ctx context.Context, sessionID string) ([]store.Attempt, error)
	RecentAttempts(ctx context.Context, address string, limit int) ([]store.Attempt, error)
}

// Options configure cookies, tokens, and CORS.
type Options struct {
	ClientOrigin string
	JWTSecret    string
	SessionTTL   time.Duration
	CookieName   string
	SecureCookie bool
}

// Server bundles the router and its dependencies.
type Server struct {
	r        *chi.Mux
	opts     Options
	manager  *session.Manager
	sessions store.Store[*session.Session]
	board    Leaderboard
	history  History // nil when no database is configured
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options, m *session.Manager, sessions store.Store[*session.Session], board Leaderboard, history History) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "memorymatch_session"
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	s := &Server{r: chi.NewRouter(), opts: opts, manager: m, sessions: sessions, board: board, history: history}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(30 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(cors(opts.ClientOrigin))

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"memorymatch","endpoints":["/health","POST /session/new","/session/*","/leaderboard"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Get("/leaderboard", s.handleLeaderboard)
	s.mountSession()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes {"error": msg} and keeps the JSON content type.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
