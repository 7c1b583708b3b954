// internal/game/types.go
//
// Core type definitions for the memory-match engine.
// Defines:
//   - Image: a card face, either a regular wallet/demo image or the restore sentinel.
//   - Card: one tile on the board.
//   - StageConfig: card counts for a stage.
//   - State: the snapshot owned by the engine and read by renderers.
//   - Rules: health policy constants.

package game

import "slices"

// ImageKind separates ordinary pair images from the healing sentinel.
type ImageKind string

const (
	KindRegular ImageKind = "regular"
	KindRestore ImageKind = "restore"
)

// Image is an immutable card face.
type Image struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	DisplayName string    `json:"displayName"`
	Kind        ImageKind `json:"kind"`
	Origin      string    `json:"origin,omitempty"` // "nft" | "token" | "demo" for regular images
}

// RestoreImage is the sentinel face of restore cards. It is never sourced
// from a wallet.
var RestoreImage = Image{
	ID:          "restore",
	URL:         "/heart.svg",
	DisplayName: "Heart",
	Kind:        KindRestore,
}

// FaceState is the visible state of a card.
type FaceState string

const (
	FaceHidden  FaceState = "hidden"
	FaceFlipped FaceState = "flipped"
	FaceMatched FaceState = "matched"
)

// Card is a single tile. Two cards share a PairID per pair.
type Card struct {
	ID       string    `json:"id"`
	PairID   string    `json:"pairId"`
	Image    Image     `json:"image"`
	Face     FaceState `json:"faceState"`
	Position int       `json:"position"`
}

// Status is the engine's coarse state.
type Status string

const (
	StatusLoading       Status = "loading"
	StatusPlaying       Status = "playing"
	StatusStageComplete Status = "stage_complete"
	StatusGameOver      Status = "game_over"
	StatusError         Status = "error"
)

// StageConfig holds the card counts for a stage.
type StageConfig struct {
	Stage       int `json:"stage"`
	TotalCards  int `json:"totalCards"`
	PairsNeeded int `json:"pairsNeeded"`
}

// State is an engine snapshot. Transitions never mutate a State in place;
// they return a new one.
type State struct {
	Status            Status   `json:"status"`
	Stage             int      `json:"stage"`
	Cards             []Card   `json:"cards"`
	FlippedCardIDs    []string `json:"flippedCardIds"`
	MatchedPairs      int      `json:"matchedPairs"`
	TotalPairs        int      `json:"totalPairs"`
	MovesThisStage    int      `json:"movesThisStage"`
	TotalMoves        int      `json:"totalMovesAcrossStages"`
	HP                int      `json:"hp"`
	MaxHP             int      `json:"maxHp"`
	ConsecutiveMisses int      `json:"consecutiveMisses"`
	Message           string   `json:"message,omitempty"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s State) Clone() State {
	s.Cards = slices.Clone(s.Cards)
	s.FlippedCardIDs = slices.Clone(s.FlippedCardIDs)
	return s
}

// card looks up a card by id.
func (s State) card(id string) (Card, int, bool) {
	for i, c := range s.Cards {
		if c.ID == id {
			return c, i, true
		}
	}
	return Card{}, -1, false
}

// Rules are the health policy constants.
type Rules struct {
	MaxHP         int
	RestoreAmount int
	// MissDamage[i] is the damage dealt on the (i+1)-th consecutive miss;
	// misses past the end of the schedule repeat its last entry.
	MissDamage []int
}

// DefaultRules: 100 HP, restore cards heal 20, misses deal 0, 5, then 10.
var DefaultRules = Rules{
	MaxHP:         100,
	RestoreAmount: 20,
	MissDamage:    []int{0, 5, 10},
}

// Damage returns the damage for the given consecutive-miss count (1-based).
func (r Rules) Damage(consecutiveMisses int) int {
	if consecutiveMisses < 1 || len(r.MissDamage) == 0 {
		return 0
	}
	i := consecutiveMisses - 1
	if i >= len(r.MissDamage) {
		i = len(r.MissDamage) - 1
	}
	return r.MissDamage[i]
}
