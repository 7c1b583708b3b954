// internal/httpserver/routes_session.go
//
// HTTP routes for playing a session.
//   - POST /session/new      → create a session and deal stage 1
//   - GET  /session          → current snapshot
//   - POST /session/flip     → flip one card
//   - POST /session/resolve  → compare the two flipped cards
//   - POST /session/advance  → deal the next stage after a clear
//
// Every route except /session/new requires the session token.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorymatch/internal/session"
)

// mountSession registers all /session routes, including the score routes.
func (s *Server) mountSession() {
	s.r.Route("/session", func(r chi.Router) {
		r.Post("/new", s.handleNewSession)
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/", s.handleGetSession)
			r.Post("/flip", s.handleFlip)
			r.Post("/resolve", s.handleResolve)
			r.Post("/advance", s.handleAdvance)
			s.mountScore(r)
		})
	})
}

type newSessionReq struct {
	Address string `json:"address"`
}

type newSessionRes struct {
	Token   string       `json:"token"`
	Session session.View `json:"session"`
}

// handleNewSession starts a session. The body is optional; an empty address
// plays with the server wallet's address (or none).
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	sess, err := s.manager.Start(r.Context(), req.Address)
	if errors.Is(err, session.ErrInvalidAddress) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	if err := s.sessions.Save(r.Context(), sess.ID, sess); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	tok, exp, err := s.signToken(sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setSessionCookie(w, tok, exp)
	log.Info().Str("session", sess.ID).Str("address", sess.Address).Msg("session started")
	writeJSON(w, http.StatusOK, newSessionRes{Token: tok, Session: sess.View()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).View())
}

type flipReq struct {
	CardID string `json:"cardId"`
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	var req flipReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == "" {
		writeError(w, http.StatusBadRequest, "cardId required")
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Flip(sessionFrom(r), req.CardID))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Resolve(sessionFrom(r)))
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Advance(r.Context(), sessionFrom(r)))
}
