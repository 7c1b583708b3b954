// internal/session/session.go
//
// Game host for one player session.
// Responsibilities:
//   - Own the engine snapshot, the image pool, and the score session.
//   - Load images for a stage (cached pool first, source second, demo fallback).
//   - Prefetch the next stage's images in the background.
//   - Kick off score recording on stage clear and game over.
//
// Notes:
//   - Intents on one session are serialized by its mutex. Prefetch runs
//     outside the lock and merges through the pool's epoch check, so a load
//     that starts later always supersedes it.
//   - History writes are best-effort; failures are logged at warn.

package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/robalobadob/memorymatch/internal/game"
	"github.com/robalobadob/memorymatch/internal/images"
	"github.com/robalobadob/memorymatch/internal/score"
	"github.com/robalobadob/memorymatch/internal/seed"
	"github.com/robalobadob/memorymatch/internal/store"
)

var (
	ErrInvalidAddress   = errors.New("address must be 0x followed by 40 hex characters")
	ErrNothingToRecord  = errors.New("no finished stage to record")
	ErrRecordInProgress = score.ErrRecordInProgress
	ErrAlreadyRecorded  = score.ErrAlreadyRecorded
)

const prefetchTimeout = 30 * time.Second

// History persists sessions and score attempts. *store.SQLite satisfies it.
type History interface {
	InsertSession(ctx context.Context, row store.SessionRow) error
	UpdateSession(ctx context.Context, row store.SessionRow) error
	InsertAttempt(ctx context.Context, a store.Attempt) error
}

// Deps are shared by every session a Manager creates.
type Deps struct {
	Engine        game.Engine
	Source        images.Source
	Recorder      *score.Recorder
	Wallet        score.Wallet // nil when no signer is configured
	Secret        []byte
	History       History // optional
	RecordTimeout time.Duration
	Logger        zerolog.Logger
}

// Session is one player's game.
type Session struct {
	ID        string
	Address   string
	StartedAt time.Time

	mu    sync.Mutex
	state game.State
	pool  *images.Pool
	score *score.Session
}

// View is the JSON shape returned to clients.
type View struct {
	ID       string         `json:"id"`
	Address  string         `json:"address,omitempty"`
	State    game.State     `json:"state"`
	Score    score.Snapshot `json:"score"`
	PoolSize int            `json:"poolSize"`
}

// View snapshots the session.
func (s *Session) View() View {
	s.mu.Lock()
	st := s.state.Clone()
	s.mu.Unlock()
	return View{ID: s.ID, Address: s.Address, State: st, Score: s.score.Snapshot(), PoolSize: s.pool.Len()}
}

// Score returns the session's score tracker.
func (s *Session) Score() *score.Session { return s.score }

// Manager creates sessions and applies intents to them.
type Manager struct {
	deps Deps
	wg   sync.WaitGroup
}

// NewManager returns a manager. A nil Source falls back to demo images.
func NewManager(d Deps) *Manager {
	if d.Source == nil {
		d.Source = images.DemoSource{}
	}
	if d.RecordTimeout <= 0 {
		d.RecordTimeout = 3 * time.Minute
	}
	return &Manager{deps: d}
}

// Wait blocks until background prefetches and recordings finish.
func (m *Manager) Wait() { m.wg.Wait() }

// Start creates a session for address (or the server wallet's address when
// empty) and deals stage 1.
func (m *Manager) Start(ctx context.Context, address string) (*Session, error) {
	if address == "" && m.deps.Wallet != nil {
		address = m.deps.Wallet.Address().Hex()
	}
	if address != "" && !images.ValidAddress(address) {
		return nil, ErrInvalidAddress
	}

	s := &Session{
		ID:        uuid.NewString(),
		Address:   address,
		StartedAt: time.Now().UTC(),
		state:     m.deps.Engine.Initial(),
		pool:      images.NewPool(),
		score:     score.NewSession(),
	}
	m.history(func(ctx context.Context, h History) error {
		return h.InsertSession(ctx, store.SessionRow{
			ID: s.ID, Address: s.Address, StartedAt: s.StartedAt,
			Status: string(s.state.Status), Stage: s.state.Stage,
		})
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	imgs, err := m.loadStage(ctx, s, 1)
	if err != nil {
		s.state = m.deps.Engine.Fail(s.state, score.SummarizeText("could not load images: "+err.Error()))
		return s, nil
	}
	s.state = m.deps.Engine.StartStage(s.state, 1, imgs, m.rng(s, 1))
	if s.state.Status == game.StatusPlaying {
		m.prefetch(s, 2)
	}
	return s, nil
}

// Flip applies a flip intent.
func (m *Manager) Flip(s *Session, cardID string) View {
	s.mu.Lock()
	s.state = m.deps.Engine.Flip(s.state, cardID)
	s.mu.Unlock()
	return s.View()
}

// Resolve compares the flipped pair. A stage clear or game over starts a
// background score recording.
func (m *Manager) Resolve(s *Session) View {
	s.mu.Lock()
	before := s.state.Status
	s.state = m.deps.Engine.ResolveMatch(s.state)
	st := s.state
	s.mu.Unlock()

	if before == game.StatusPlaying && st.Status != game.StatusPlaying {
		m.finished(s, st)
	}
	return s.View()
}

// Advance deals the next stage after a clear.
func (m *Manager) Advance(ctx context.Context, s *Session) View {
	s.mu.Lock()
	if s.state.Status != game.StatusStageComplete {
		s.mu.Unlock()
		return s.View()
	}
	if !s.score.Reset() {
		m.deps.Logger.Debug().Str("session", s.ID).Msg("score recording still in flight, keeping its status")
	}

	next := s.state.Stage + 1
	imgs, err := m.loadStage(ctx, s, next)
	if err != nil {
		s.state = m.deps.Engine.Fail(s.state, score.SummarizeText("could not load images: "+err.Error()))
	} else {
		s.state = m.deps.Engine.AdvanceStage(s.state, imgs, m.rng(s, next))
		if s.state.Status == game.StatusPlaying {
			m.prefetch(s, next+1)
		}
	}
	st := s.state
	s.mu.Unlock()

	m.saveProgress(s, st, false)
	return s.View()
}

// Record retries score recording for the current finished stage. A stage
// whose score is already confirmed or skipped is not sent again.
func (m *Manager) Record(s *Session) (score.Snapshot, error) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()

	stage, moves, ok := game.Score(st)
	if !ok {
		return s.score.Snapshot(), ErrNothingToRecord
	}
	if s.score.Pending() {
		return s.score.Snapshot(), ErrRecordInProgress
	}
	if s.score.Success() {
		return s.score.Snapshot(), ErrAlreadyRecorded
	}
	m.recordAsync(s, stage, moves)
	return s.score.Snapshot(), nil
}

func (m *Manager) finished(s *Session, st game.State) {
	m.saveProgress(s, st, st.Status == game.StatusGameOver)
	if stage, moves, ok := game.Score(st); ok {
		m.recordAsync(s, stage, moves)
	}
}

func (m *Manager) recordAsync(s *Session, stage, moves int) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.deps.RecordTimeout)
		defer cancel()

		err := m.deps.Recorder.Record(ctx, s.score, m.deps.Wallet, uint32(stage), uint32(moves))
		if errors.Is(err, score.ErrRecordInProgress) || errors.Is(err, score.ErrAlreadyRecorded) {
			return
		}
		snap := s.score.Snapshot()
		m.history(func(ctx context.Context, h History) error {
			return h.InsertAttempt(ctx, store.Attempt{
				ID:        uuid.NewString(),
				SessionID: s.ID,
				Stage:     stage,
				Moves:     moves,
				Status:    string(snap.Status),
				TxHash:    snap.TxHash,
				Error:     snap.LastError,
			})
		})
	}()
}

// requiredImages is the number of regular images a stage's deck consumes.
func requiredImages(stage int) int {
	cfg := game.StageConfigFor(stage)
	return cfg.PairsNeeded - game.RestoreCount(cfg.TotalCards)
}

// loadStage returns the candidate images for stage. Called with s.mu held.
func (m *Manager) loadStage(ctx context.Context, s *Session, stage int) ([]game.Image, error) {
	need := requiredImages(stage)
	if s.pool.Len() >= need {
		return s.pool.Images(), nil
	}

	epoch := s.pool.Begin()
	fetched, err := m.deps.Source.FetchCandidateImages(ctx, s.Address, need)
	if err != nil {
		m.deps.Logger.Warn().Err(err).Str("session", s.ID).Int("stage", stage).Msg("image fetch failed, using demo images")
	}
	candidates := images.BuildPool(s.pool.Images(), fetched, need)
	if !s.pool.Merge(epoch, candidates) {
		m.deps.Logger.Debug().Str("session", s.ID).Msg("stage load superseded")
	}
	if len(candidates) < need && err != nil {
		return nil, err
	}
	return candidates, nil
}

// prefetch warms the pool for stage without holding the session lock.
func (m *Manager) prefetch(s *Session, stage int) {
	need := requiredImages(stage)
	if s.pool.Len() >= need {
		return
	}
	epoch := s.pool.Begin()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
		defer cancel()

		fetched, err := m.deps.Source.FetchCandidateImages(ctx, s.Address, need)
		if err != nil {
			m.deps.Logger.Debug().Err(err).Str("session", s.ID).Int("stage", stage).Msg("prefetch failed")
			return
		}
		if !s.pool.Merge(epoch, fetched) {
			m.deps.Logger.Debug().Str("session", s.ID).Int("stage", stage).
				Uint64("epoch", epoch).Uint64("current", s.pool.Epoch()).
				Msg("stale prefetch discarded")
		}
	}()
}

// rng seeds a stage's deck shuffle from the session id.
func (m *Manager) rng(s *Session, stage int) *rand.Rand {
	return seed.Rand(m.deps.Secret, s.ID, stage)
}

func (m *Manager) saveProgress(s *Session, st game.State, final bool) {
	row := store.SessionRow{
		ID:         s.ID,
		Status:     string(st.Status),
		Stage:      st.Stage,
		TotalMoves: st.TotalMoves + st.MovesThisStage,
	}
	if final {
		now := time.Now().UTC()
		row.FinishedAt = &now
	}
	m.history(func(ctx context.Context, h History) error { return h.UpdateSession(ctx, row) })
}

func (m *Manager) history(fn func(context.Context, History) error) {
	if m.deps.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx, m.deps.History); err != nil {
		m.deps.Logger.Warn().Err(err).Msg("history write")
	}
}
