// Package seed derives deterministic shuffle seeds for game stages.
//
// A seed is HMAC-SHA256(secret, "<session>|<stage>") truncated to two
// big-endian uint64 words, so a given session replays the same deck for a
// given stage while remaining unpredictable without the secret.
package seed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"strconv"
)

// Key returns the message that is authenticated for a session stage.
func Key(sessionID string, stage int) string {
	return sessionID + "|" + strconv.Itoa(stage)
}

// Stage returns the two seed words for a session stage.
func Stage(secret []byte, sessionID string, stage int) (uint64, uint64) {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(Key(sessionID, stage)))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}

// Rand returns a PCG-backed generator seeded for a session stage.
func Rand(secret []byte, sessionID string, stage int) *rand.Rand {
	a, b := Stage(secret, sessionID, stage)
	return rand.New(rand.NewPCG(a, b))
}
