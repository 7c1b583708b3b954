package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImages(n int) []Image {
	out := make([]Image, n)
	for i := range out {
		out[i] = Image{
			ID:          fmt.Sprintf("img-%d", i),
			URL:         fmt.Sprintf("https://example.test/%d.png", i),
			DisplayName: fmt.Sprintf("Image %d", i),
			Kind:        KindRegular,
		}
	}
	return out
}

func fixedRand() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestStageConfigIsEvenAndDeterministic(t *testing.T) {
	for stage := 1; stage <= 12; stage++ {
		cfg := StageConfigFor(stage)
		assert.Equal(t, cfg, StageConfigFor(stage))
		assert.Equal(t, 4*stage, cfg.TotalCards)
		assert.Zero(t, cfg.TotalCards%2)
		assert.Equal(t, cfg.TotalCards/2, cfg.PairsNeeded)
	}
}

func TestBuildDeckShape(t *testing.T) {
	for stage := 1; stage <= 10; stage++ {
		cfg := StageConfigFor(stage)
		deck, err := BuildDeck(testImages(cfg.PairsNeeded), cfg.PairsNeeded, cfg.TotalCards, fixedRand())
		require.NoError(t, err)
		require.Len(t, deck, cfg.TotalCards)

		perPair := map[string]int{}
		restores := 0
		ids := map[string]bool{}
		for i, c := range deck {
			perPair[c.PairID]++
			assert.Equal(t, i, c.Position)
			assert.Equal(t, FaceHidden, c.Face)
			assert.False(t, ids[c.ID], "duplicate card id %s", c.ID)
			ids[c.ID] = true
			if c.Image.Kind == KindRestore {
				restores++
			}
		}
		for pairID, n := range perPair {
			assert.Equal(t, 2, n, "pair %s", pairID)
		}
		assert.Equal(t, 2*RestoreCount(cfg.TotalCards), restores)
		assert.Zero(t, restores%2)
	}
}

func TestBuildDeckUsesFirstImages(t *testing.T) {
	imgs := testImages(10)
	deck, err := BuildDeck(imgs, 4, 8, fixedRand())
	require.NoError(t, err)

	used := map[string]bool{}
	for _, c := range deck {
		if c.Image.Kind == KindRegular {
			used[c.Image.ID] = true
		}
	}
	// 8 cards: one restore pair, three regular pairs from the head of the pool.
	assert.Equal(t, map[string]bool{"img-0": true, "img-1": true, "img-2": true}, used)
}

func TestBuildDeckDeterministicWithSeed(t *testing.T) {
	imgs := testImages(6)
	a, err := BuildDeck(imgs, 6, 12, rand.New(rand.NewPCG(7, 9)))
	require.NoError(t, err)
	b, err := BuildDeck(imgs, 6, 12, rand.New(rand.NewPCG(7, 9)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildDeckShuffles(t *testing.T) {
	imgs := testImages(20)
	first := map[string]int{}
	for seed := uint64(0); seed < 200; seed++ {
		deck, err := BuildDeck(imgs, 20, 40, rand.New(rand.NewPCG(seed, seed)))
		require.NoError(t, err)
		first[deck[0].ID]++
	}
	// Every position-0 candidate being the same would mean no shuffle happened.
	assert.Greater(t, len(first), 10)
}

func TestBuildDeckInvalid(t *testing.T) {
	_, err := BuildDeck(testImages(2), -1, 4, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = BuildDeck(testImages(2), 2, -4, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = BuildDeck(testImages(2), 3, 4, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = BuildDeck(testImages(1), 4, 8, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestBuildDeckEmpty(t *testing.T) {
	deck, err := BuildDeck(nil, 0, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, deck)
}
