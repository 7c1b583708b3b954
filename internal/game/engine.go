// internal/game/engine.go
//
// Core engine for a single memory-match session.
// Responsibilities:
//   - Start a session at a stage and advance between stages.
//   - Flip cards and resolve the two-card comparison.
//   - Apply the health mechanic: miss damage schedule, restore-card healing.
//   - Track state transitions: loading → playing → stage_complete | game_over.
//
// Notes:
//   - Every transition takes a State and returns a new State. Invalid intents
//     return the input unchanged; the engine never reports errors, so it can be
//     driven by an unreliable or racing caller.
//   - Deck construction failures move the session to StatusError.

package game

import (
	"math/rand/v2"
	"slices"
)

// Engine applies Rules to State snapshots. The zero value is not useful;
// use New.
type Engine struct {
	rules Rules
}

// New returns an engine for the given rules. Zero MaxHP falls back to DefaultRules.
func New(rules Rules) Engine {
	if rules.MaxHP <= 0 {
		rules = DefaultRules
	}
	rules.MissDamage = slices.Clone(rules.MissDamage)
	return Engine{rules: rules}
}

// Initial returns a fresh session snapshot in StatusLoading with full health.
func (e Engine) Initial() State {
	return State{
		Status: StatusLoading,
		Stage:  1,
		HP:     e.rules.MaxHP,
		MaxHP:  e.rules.MaxHP,
	}
}

// StartStage deals the first stage of a session. Only valid from StatusLoading.
// A fresh session always starts at full health.
func (e Engine) StartStage(s State, stage int, images []Image, rng *rand.Rand) State {
	if s.Status != StatusLoading || stage < 1 {
		return s
	}
	next := s.Clone()
	next.HP = e.rules.MaxHP
	next.MaxHP = e.rules.MaxHP
	next.ConsecutiveMisses = 0
	next.TotalMoves = 0
	return deal(next, stage, images, rng)
}

// AdvanceStage moves from StatusStageComplete to the next stage. Health and the
// miss streak carry over; the stage's moves fold into the session total.
func (e Engine) AdvanceStage(s State, images []Image, rng *rand.Rand) State {
	if s.Status != StatusStageComplete {
		return s
	}
	next := s.Clone()
	next.TotalMoves += next.MovesThisStage
	return deal(next, next.Stage+1, images, rng)
}

// deal builds a deck for stage and resets the per-stage counters.
func deal(s State, stage int, images []Image, rng *rand.Rand) State {
	cfg := StageConfigFor(stage)
	deck, err := BuildDeck(images, cfg.PairsNeeded, cfg.TotalCards, rng)
	if err != nil {
		s.Status = StatusError
		s.Message = err.Error()
		return s
	}
	s.Status = StatusPlaying
	s.Stage = stage
	s.Cards = deck
	s.FlippedCardIDs = []string{}
	s.MatchedPairs = 0
	s.TotalPairs = cfg.PairsNeeded
	s.MovesThisStage = 0
	s.Message = ""
	return s
}

// Flip turns a hidden card face up while fewer than two cards are flipped.
func (e Engine) Flip(s State, cardID string) State {
	if s.Status != StatusPlaying || len(s.FlippedCardIDs) >= 2 {
		return s
	}
	c, i, ok := s.card(cardID)
	if !ok || c.Face != FaceHidden {
		return s
	}
	next := s.Clone()
	next.Cards[i].Face = FaceFlipped
	next.FlippedCardIDs = append(next.FlippedCardIDs, cardID)
	return next
}

// Matches reports whether two cards form a pair. Restore cards match any
// other restore card regardless of pair id.
func Matches(a, b Card) bool {
	if a.Image.Kind == KindRestore && b.Image.Kind == KindRestore {
		return true
	}
	return a.PairID == b.PairID
}

// ResolveMatch compares the two flipped cards. Valid only with exactly two
// cards flipped.
func (e Engine) ResolveMatch(s State) State {
	if s.Status != StatusPlaying || len(s.FlippedCardIDs) != 2 {
		return s
	}
	a, ia, okA := s.card(s.FlippedCardIDs[0])
	b, ib, okB := s.card(s.FlippedCardIDs[1])
	if !okA || !okB || ia == ib {
		return s
	}

	next := s.Clone()
	next.MovesThisStage++
	next.FlippedCardIDs = []string{}

	if Matches(a, b) {
		next.Cards[ia].Face = FaceMatched
		next.Cards[ib].Face = FaceMatched
		next.MatchedPairs++
		next.ConsecutiveMisses = 0
		if a.Image.Kind == KindRestore || b.Image.Kind == KindRestore {
			next.HP = min(next.MaxHP, next.HP+e.rules.RestoreAmount)
		}
		if next.MatchedPairs >= next.TotalPairs {
			next.Status = StatusStageComplete
		}
		return next
	}

	next.Cards[ia].Face = FaceHidden
	next.Cards[ib].Face = FaceHidden
	next.ConsecutiveMisses++
	next.HP = max(0, next.HP-e.rules.Damage(next.ConsecutiveMisses))
	if next.HP == 0 {
		next.Status = StatusGameOver
	}
	return next
}

// Fail moves a non-terminal session to StatusError with a message.
func (e Engine) Fail(s State, message string) State {
	if s.Status == StatusGameOver {
		return s
	}
	next := s.Clone()
	next.Status = StatusError
	next.Message = message
	return next
}

// Score returns what should be recorded on-chain for a finished stage or
// session: the stage's own moves on a clear, the session's moves on game over.
func Score(s State) (stage, moves int, ok bool) {
	switch s.Status {
	case StatusStageComplete:
		return s.Stage, s.MovesThisStage, true
	case StatusGameOver:
		return s.Stage, s.TotalMoves + s.MovesThisStage, true
	}
	return 0, 0, false
}
