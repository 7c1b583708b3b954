package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memorymatch/internal/game"
	"github.com/robalobadob/memorymatch/internal/images"
	"github.com/robalobadob/memorymatch/internal/leaderboard"
	"github.com/robalobadob/memorymatch/internal/score"
	"github.com/robalobadob/memorymatch/internal/session"
	"github.com/robalobadob/memorymatch/internal/store"
)

const player = "0x00000000000000000000000000000000000000aa"

type fakeBoard struct {
	entries []leaderboard.Entry
	err     error
}

func (b fakeBoard) Entries(context.Context) ([]leaderboard.Entry, error) { return b.entries, b.err }

type harness struct {
	srv *Server
	m   *session.Manager
}

func newHarness(t *testing.T, board Leaderboard) harness {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := session.NewManager(session.Deps{
		Engine:   game.New(game.DefaultRules),
		Source:   images.DemoSource{},
		Recorder: score.NewRecorder(score.Options{Logger: zerolog.Nop()}),
		Secret:   []byte("seed"),
		History:  db,
		Logger:   zerolog.Nop(),
	})
	srv := New(Options{JWTSecret: "test", SessionTTL: time.Hour}, m, store.NewMemoryStore[*session.Session](time.Hour), board, db)
	return harness{srv: srv, m: m}
}

func (h harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)
	return rec
}

type viewRes struct {
	ID      string         `json:"id"`
	Address string         `json:"address"`
	State   game.State     `json:"state"`
	Score   score.Snapshot `json:"score"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h harness) start(t *testing.T, address string) (string, viewRes) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/session/new", "", map[string]string{"address": address})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[struct {
		Token   string  `json:"token"`
		Session viewRes `json:"session"`
	}](t, rec)
	require.NotEmpty(t, res.Token)
	return res.Token, res.Session
}

// clearStage matches every pair over HTTP and returns the last snapshot.
func (h harness) clearStage(t *testing.T, token string, v viewRes) viewRes {
	t.Helper()
	done := map[string]bool{}
	for _, a := range v.State.Cards {
		if done[a.ID] {
			continue
		}
		for _, b := range v.State.Cards {
			if b.ID == a.ID || done[b.ID] || !game.Matches(a, b) {
				continue
			}
			h.do(t, http.MethodPost, "/session/flip", token, map[string]string{"cardId": a.ID})
			h.do(t, http.MethodPost, "/session/flip", token, map[string]string{"cardId": b.ID})
			v = decode[viewRes](t, h.do(t, http.MethodPost, "/session/resolve", token, nil))
			done[a.ID], done[b.ID] = true, true
			break
		}
	}
	return v
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFoundIsJSON(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())
}

func TestNewSession(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodPost, "/session/new", "", map[string]string{"address": player})
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "memorymatch_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	res := decode[struct {
		Session viewRes `json:"session"`
	}](t, rec)
	assert.Equal(t, game.StatusPlaying, res.Session.State.Status)
	assert.Len(t, res.Session.State.Cards, 4)
	assert.Equal(t, player, res.Session.Address)

	// the cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(cookie)
	got := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(got, req)
	assert.Equal(t, http.StatusOK, got.Code)
	h.m.Wait()
}

func TestNewSessionWithoutBody(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/session/new", nil)
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	h.m.Wait()
}

func TestNewSessionRejectsBadAddress(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodPost, "/session/new", "", map[string]string{"address": "0xnothex"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionRoutesRequireToken(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/session", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/session/flip", "garbage", nil).Code)

	// a well-signed token for a session the store does not hold
	tok, _, err := h.srv.signToken(&session.Session{ID: "gone"})
	require.NoError(t, err)
	rec := h.do(t, http.MethodGet, "/session/score", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Session expired"}`, rec.Body.String())
}

func TestTokenSignedWithOtherSecretIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	other := New(Options{JWTSecret: "other"}, h.m, store.NewMemoryStore[*session.Session](0), nil, nil)
	tok, _, err := other.signToken(&session.Session{ID: "x"})
	require.NoError(t, err)
	rec := h.do(t, http.MethodGet, "/session", tok, nil)
	assert.JSONEq(t, `{"error":"Invalid token"}`, rec.Body.String())
}

func TestFlipRequiresCardID(t *testing.T) {
	h := newHarness(t, nil)
	tok, _ := h.start(t, player)
	rec := h.do(t, http.MethodPost, "/session/flip", tok, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	h.m.Wait()
}

func TestPlayStageRecordAndAdvance(t *testing.T) {
	h := newHarness(t, nil)
	tok, v := h.start(t, player)

	rec := h.do(t, http.MethodPost, "/session/record", tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "nothing finished yet")

	v = h.clearStage(t, tok, v)
	require.Equal(t, game.StatusStageComplete, v.State.Status)
	assert.Equal(t, 2, v.State.MovesThisStage)
	h.m.Wait()

	snap := decode[score.Snapshot](t, h.do(t, http.MethodGet, "/session/score", tok, nil))
	assert.Equal(t, score.StatusSkipped, snap.Status)
	assert.True(t, snap.Skipped)

	hist := decode[historyRes](t, h.do(t, http.MethodGet, "/session/history", tok, nil))
	require.Len(t, hist.Session, 1)
	assert.Equal(t, "skipped", hist.Session[0].Status)
	assert.Equal(t, 1, hist.Session[0].Stage)
	assert.Len(t, hist.Recent, 1)

	// a skipped stage is not recorded again
	rec = h.do(t, http.MethodPost, "/session/record", tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"score already recorded for this stage"}`, rec.Body.String())
	h.m.Wait()
	hist = decode[historyRes](t, h.do(t, http.MethodGet, "/session/history", tok, nil))
	assert.Len(t, hist.Session, 1)

	v = decode[viewRes](t, h.do(t, http.MethodPost, "/session/advance", tok, nil))
	assert.Equal(t, game.StatusPlaying, v.State.Status)
	assert.Equal(t, 2, v.State.Stage)
	assert.Len(t, v.State.Cards, 8)
	assert.Equal(t, score.StatusIdle, v.Score.Status)
	h.m.Wait()
}

func TestAdvanceWhilePlayingIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	tok, _ := h.start(t, player)
	v := decode[viewRes](t, h.do(t, http.MethodPost, "/session/advance", tok, nil))
	assert.Equal(t, 1, v.State.Stage)
	h.m.Wait()
}

func TestLeaderboard(t *testing.T) {
	h := newHarness(t, fakeBoard{entries: []leaderboard.Entry{{Address: player, Stage: 5, Moves: 30}}})
	rec := h.do(t, http.MethodGet, "/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[{"address":"`+player+`","stage":5,"moves":30}]}`, rec.Body.String())
}

func TestLeaderboardUnconfigured(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/leaderboard", "", nil)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

func TestLeaderboardError(t *testing.T) {
	err := &leaderboard.Error{Provider: "public Base RPC", Err: errors.New("getLogs 1-2: rate limited\nretry later")}
	h := newHarness(t, fakeBoard{err: err})
	rec := h.do(t, http.MethodGet, "/leaderboard", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"getLogs 1-2: rate limited (via public Base RPC)"}`, rec.Body.String())
}

func TestLeaderboardLongErrorKeepsProvider(t *testing.T) {
	err := &leaderboard.Error{Provider: "explorer API", Err: errors.New(strings.Repeat("y", 200))}
	h := newHarness(t, fakeBoard{err: err})
	rec := h.do(t, http.MethodGet, "/leaderboard", "", nil)
	body := decode[map[string]string](t, rec)
	assert.True(t, strings.HasSuffix(body["error"], "… (via explorer API)"), body["error"])
}
