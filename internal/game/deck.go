// internal/game/deck.go
//
// Deck construction.
// Responsibilities:
//   - Fix the stage sizing policy (4 cards per stage level).
//   - Build a shuffled deck from an image pool, one restore pair per 8 cards.
//
// BuildDeck is pure: given the same images and the same generator state it
// returns the same deck.

package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrInvalidConfiguration is returned for negative or inconsistent deck inputs.
var ErrInvalidConfiguration = errors.New("invalid configuration")

const (
	cardsPerStage = 4
	cardsPerHeal  = 8
)

// CardCount returns the total card count for a stage: stage 1 = 4, 2 = 8, 3 = 12, ...
func CardCount(stage int) int {
	return stage * cardsPerStage
}

// StageConfigFor derives the card counts for a stage.
func StageConfigFor(stage int) StageConfig {
	total := CardCount(stage)
	return StageConfig{Stage: stage, TotalCards: total, PairsNeeded: total / 2}
}

// RestoreCount returns how many restore pairs a deck of totalCards holds.
func RestoreCount(totalCards int) int {
	return totalCards / cardsPerHeal
}

// BuildDeck creates a shuffled deck. The first pairsNeeded-RestoreCount(totalCards)
// images each become one pair; the remainder of the deck is restore pairs.
// Positions are the post-shuffle indices. A nil rng uses a freshly seeded one.
func BuildDeck(images []Image, pairsNeeded, totalCards int, rng *rand.Rand) ([]Card, error) {
	if pairsNeeded < 0 || totalCards < 0 {
		return nil, fmt.Errorf("%w: negative counts (pairs=%d, cards=%d)", ErrInvalidConfiguration, pairsNeeded, totalCards)
	}
	if totalCards != pairsNeeded*2 {
		return nil, fmt.Errorf("%w: %d cards cannot hold %d pairs", ErrInvalidConfiguration, totalCards, pairsNeeded)
	}
	restoreCount := RestoreCount(totalCards)
	regularCount := pairsNeeded - restoreCount
	if regularCount < 0 {
		return nil, fmt.Errorf("%w: %d restore pairs exceed %d pairs", ErrInvalidConfiguration, restoreCount, pairsNeeded)
	}
	if len(images) < regularCount {
		return nil, fmt.Errorf("%w: need %d images, have %d", ErrInvalidConfiguration, regularCount, len(images))
	}

	cards := make([]Card, 0, totalCards)
	for i, img := range images[:regularCount] {
		pairID := fmt.Sprintf("pair-%d", i)
		cards = append(cards,
			Card{ID: pairID + "-a", PairID: pairID, Image: img, Face: FaceHidden},
			Card{ID: pairID + "-b", PairID: pairID, Image: img, Face: FaceHidden},
		)
	}
	for h := 0; h < restoreCount; h++ {
		pairID := fmt.Sprintf("restore-%d", h)
		cards = append(cards,
			Card{ID: pairID + "-a", PairID: pairID, Image: RestoreImage, Face: FaceHidden},
			Card{ID: pairID + "-b", PairID: pairID, Image: RestoreImage, Face: FaceHidden},
		)
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	// Fisher-Yates
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	for i := range cards {
		cards[i].Position = i
	}
	return cards, nil
}
