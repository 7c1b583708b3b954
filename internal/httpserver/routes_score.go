// internal/httpserver/routes_score.go
//
// HTTP routes for on-chain scores.
//   - POST /session/record   → retry recording the finished stage (409 while
//     pending or once confirmed/skipped)
//   - GET  /session/score    → score session status, last error, tx hash, timeline
//   - GET  /session/history  → recorded attempts for this session and its address
//   - GET  /leaderboard      → top entries aggregated from GameCompleted logs
//
// Recording itself runs in the background; these routes only start it and
// report on it.

package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorymatch/internal/leaderboard"
	"github.com/robalobadob/memorymatch/internal/score"
	"github.com/robalobadob/memorymatch/internal/session"
	"github.com/robalobadob/memorymatch/internal/store"
)

const historyLimit = 50

// mountScore registers the score routes on an authenticated /session router.
func (s *Server) mountScore(r chi.Router) {
	r.Post("/record", s.handleRecord)
	r.Get("/score", s.handleScore)
	r.Get("/history", s.handleHistory)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	snap, err := s.manager.Record(sessionFrom(r))
	switch {
	case errors.Is(err, session.ErrRecordInProgress):
		writeError(w, http.StatusConflict, "score recording already in progress")
	case errors.Is(err, session.ErrAlreadyRecorded), errors.Is(err, session.ErrNothingToRecord):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, score.Summarize(err))
	default:
		writeJSON(w, http.StatusAccepted, snap)
	}
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Score().Snapshot())
}

type historyRes struct {
	Session []store.Attempt `json:"session"`
	Recent  []store.Attempt `json:"recent"`
}

// handleHistory lists attempts of this session and the newest attempts of
// its address across sessions. Without a database both lists are empty.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	res := historyRes{Session: []store.Attempt{}, Recent: []store.Attempt{}}
	if s.history == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	sess := sessionFrom(r)
	rows, err := s.history.SessionAttempts(r.Context(), sess.ID)
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("session history")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	res.Session = rows
	if sess.Address != "" {
		recent, err := s.history.RecentAttempts(r.Context(), sess.Address, historyLimit)
		if err != nil {
			log.Error().Err(err).Str("session", sess.ID).Msg("address history")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		res.Recent = recent
	}
	writeJSON(w, http.StatusOK, res)
}

type leaderboardRes struct {
	Entries []leaderboard.Entry `json:"entries"`
}

// handleLeaderboard returns the ranked entries, or a one-line error naming
// the last provider tried.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.board == nil {
		writeJSON(w, http.StatusOK, leaderboardRes{Entries: []leaderboard.Entry{}})
		return
	}
	entries, err := s.board.Entries(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("leaderboard")
		msg := score.Summarize(err)
		var lbErr *leaderboard.Error
		if errors.As(err, &lbErr) {
			msg = lbErr.Error()
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardRes{Entries: entries})
}
