package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func started(t *testing.T, e Engine, stage int) State {
	t.Helper()
	cfg := StageConfigFor(stage)
	s := e.StartStage(e.Initial(), stage, testImages(cfg.PairsNeeded), fixedRand())
	require.Equal(t, StatusPlaying, s.Status)
	return s
}

// cardsOf returns the card ids of a pair, in deck order.
func cardsOf(s State, pairID string) []string {
	var ids []string
	for _, c := range s.Cards {
		if c.PairID == pairID {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func turn(e Engine, s State, a, b string) State {
	return e.ResolveMatch(e.Flip(e.Flip(s, a), b))
}

func miss(e Engine, s State) State {
	return turn(e, s, "pair-0-a", "pair-1-a")
}

func face(s State, id string) FaceState {
	c, _, _ := s.card(id)
	return c.Face
}

func TestStartStageFromLoading(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 1)
	assert.Equal(t, 1, s.Stage)
	assert.Len(t, s.Cards, 4)
	assert.Equal(t, 2, s.TotalPairs)
	assert.Equal(t, 100, s.HP)
	assert.Equal(t, 100, s.MaxHP)
	assert.Empty(t, s.FlippedCardIDs)
}

func TestStartStageOnlyFromLoading(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 1)
	again := e.StartStage(s, 3, testImages(6), fixedRand())
	assert.Equal(t, s, again)
}

func TestStartStageWithoutImagesErrors(t *testing.T) {
	e := New(DefaultRules)
	s := e.StartStage(e.Initial(), 2, testImages(1), fixedRand())
	assert.Equal(t, StatusError, s.Status)
	assert.Contains(t, s.Message, "need 3 images")
}

func TestFlipGuards(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 2)

	assert.Equal(t, s, e.Flip(s, "missing"))

	one := e.Flip(s, "pair-0-a")
	assert.Equal(t, []string{"pair-0-a"}, one.FlippedCardIDs)
	assert.Equal(t, FaceFlipped, face(one, "pair-0-a"))
	// original snapshot untouched
	assert.Equal(t, FaceHidden, face(s, "pair-0-a"))
	assert.Empty(t, s.FlippedCardIDs)

	// flipping the same card twice is a no-op
	assert.Equal(t, one, e.Flip(one, "pair-0-a"))

	two := e.Flip(one, "pair-1-a")
	assert.Equal(t, two, e.Flip(two, "pair-2-a"), "third flip must be refused")
}

func TestFlipMatchedCardIsNoop(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 2)
	s = turn(e, s, "pair-0-a", "pair-0-b")
	require.Equal(t, FaceMatched, face(s, "pair-0-a"))
	assert.Equal(t, s, e.Flip(s, "pair-0-a"))
}

func TestResolveWithFewerThanTwoIsNoop(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 1)
	assert.Equal(t, s, e.ResolveMatch(s))

	one := e.Flip(s, "pair-0-a")
	assert.Equal(t, one, e.ResolveMatch(one))
}

func TestMatchAndStageComplete(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 1)

	s = turn(e, s, "pair-0-a", "pair-0-b")
	assert.Equal(t, 1, s.MatchedPairs)
	assert.Equal(t, 1, s.MovesThisStage)
	assert.Equal(t, StatusPlaying, s.Status)

	s = turn(e, s, "pair-1-b", "pair-1-a")
	assert.Equal(t, StatusStageComplete, s.Status)
	assert.Equal(t, 2, s.MatchedPairs)

	stage, moves, ok := Score(s)
	require.True(t, ok)
	assert.Equal(t, 1, stage)
	assert.Equal(t, 2, moves)

	// stage_complete does not self-transition
	assert.Equal(t, s, e.Flip(s, "pair-0-a"))
	assert.Equal(t, s, e.ResolveMatch(s))
}

func TestMissDamageSchedule(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 2)

	var hps []int
	for i := 0; i < 5; i++ {
		s = miss(e, s)
		hps = append(hps, s.HP)
		assert.Equal(t, FaceHidden, face(s, "pair-0-a"))
		assert.Equal(t, FaceHidden, face(s, "pair-1-a"))
	}
	assert.Equal(t, []int{100, 95, 85, 75, 65}, hps)
	assert.Equal(t, 5, s.ConsecutiveMisses)
	assert.Equal(t, 5, s.MovesThisStage)

	// a match resets the streak
	s = turn(e, s, "pair-0-a", "pair-0-b")
	assert.Zero(t, s.ConsecutiveMisses)
	s = miss2(e, s)
	assert.Equal(t, 65, s.HP, "first miss after a match is free")
}

// miss2 misses using cards that are still hidden after pair-0 is matched.
func miss2(e Engine, s State) State {
	return turn(e, s, "pair-1-a", "pair-2-a")
}

func TestDamageScheduleIsNonDecreasingAndCapped(t *testing.T) {
	r := DefaultRules
	assert.Equal(t, 0, r.Damage(1))
	prev := 0
	for n := 1; n < 50; n++ {
		d := r.Damage(n)
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, 10)
		prev = d
	}
	assert.Equal(t, 0, r.Damage(0))
}

func TestGameOver(t *testing.T) {
	e := New(Rules{MaxHP: 10, RestoreAmount: 5, MissDamage: []int{0, 5, 10}})
	s := started(t, e, 1)
	s = miss(e, s)
	s = miss(e, s)
	assert.Equal(t, 5, s.HP)
	s = miss(e, s)
	assert.Equal(t, 0, s.HP)
	assert.Equal(t, StatusGameOver, s.Status)

	stage, moves, ok := Score(s)
	require.True(t, ok)
	assert.Equal(t, 1, stage)
	assert.Equal(t, 3, moves)

	// terminal
	assert.Equal(t, s, e.Flip(s, "pair-0-a"))
	assert.Equal(t, s, e.AdvanceStage(s, testImages(4), nil))
	assert.Equal(t, s, e.Fail(s, "late"))
}

func TestRestoreCardsMatchAcrossPairsAndHeal(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 4) // 16 cards, two restore pairs
	require.Len(t, cardsOf(s, "restore-0"), 2)
	require.Len(t, cardsOf(s, "restore-1"), 2)

	for i := 0; i < 4; i++ {
		s = miss(e, s)
	}
	require.Equal(t, 75, s.HP)

	s = turn(e, s, "restore-0-a", "restore-1-a")
	assert.Equal(t, FaceMatched, face(s, "restore-0-a"))
	assert.Equal(t, FaceMatched, face(s, "restore-1-a"))
	assert.Equal(t, 95, s.HP)
	assert.Zero(t, s.ConsecutiveMisses)

	s = turn(e, s, "restore-1-b", "restore-0-b")
	assert.Equal(t, 100, s.HP, "healing is capped at maxHp")
	assert.Equal(t, 2, s.MatchedPairs)
}

func TestRestoreDoesNotMatchRegular(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 2)
	s = turn(e, s, "restore-0-a", "pair-0-a")
	assert.Zero(t, s.MatchedPairs)
	assert.Equal(t, 1, s.ConsecutiveMisses)
}

func TestAdvanceStageCarriesSessionState(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 1)
	s = miss(e, s)
	s = miss(e, s)
	s = turn(e, s, "pair-0-a", "pair-0-b")
	s = turn(e, s, "pair-1-a", "pair-1-b")
	require.Equal(t, StatusStageComplete, s.Status)
	require.Equal(t, 95, s.HP)

	next := e.AdvanceStage(s, testImages(3), fixedRand())
	assert.Equal(t, StatusPlaying, next.Status)
	assert.Equal(t, 2, next.Stage)
	assert.Len(t, next.Cards, 8)
	assert.Equal(t, 4, next.TotalPairs)
	assert.Zero(t, next.MatchedPairs)
	assert.Zero(t, next.MovesThisStage)
	assert.Equal(t, 4, next.TotalMoves)
	assert.Equal(t, 95, next.HP)
	assert.Equal(t, 100, next.MaxHP)
}

func TestAdvanceOnlyFromStageComplete(t *testing.T) {
	e := New(DefaultRules)
	s := started(t, e, 1)
	assert.Equal(t, s, e.AdvanceStage(s, testImages(10), nil))
}

func TestFail(t *testing.T) {
	e := New(DefaultRules)
	s := e.Fail(e.Initial(), "no images")
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, "no images", s.Message)
}

// Random intent sequences never break the snapshot invariants.
func TestInvariantsUnderRandomPlay(t *testing.T) {
	e := New(DefaultRules)
	r := rand.New(rand.NewPCG(42, 42))
	for game := 0; game < 50; game++ {
		s := e.StartStage(e.Initial(), 1, testImages(40), r)
		for step := 0; step < 400; step++ {
			switch r.IntN(4) {
			case 0, 1:
				if len(s.Cards) > 0 {
					s = e.Flip(s, s.Cards[r.IntN(len(s.Cards))].ID)
				}
			case 2:
				s = e.ResolveMatch(s)
			case 3:
				s = e.AdvanceStage(s, testImages(40), r)
			}
			require.LessOrEqual(t, len(s.FlippedCardIDs), 2)
			require.LessOrEqual(t, s.MatchedPairs, s.TotalPairs)
			require.GreaterOrEqual(t, s.HP, 0)
			require.LessOrEqual(t, s.HP, s.MaxHP)
			if s.Status == StatusGameOver {
				break
			}
		}
	}
}
