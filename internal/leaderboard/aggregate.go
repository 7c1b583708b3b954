// internal/leaderboard/aggregate.go
//
// Leaderboard aggregation.
// Responsibilities:
//   - Decode both RawLog shapes into one Entry type.
//   - Keep each player's best result: highest stage, then fewest moves.
//   - Rank by the same ordering and cut to the top N.
//
// Malformed logs are skipped. Aggregate is pure; it does no I/O.

package leaderboard

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/robalobadob/memorymatch/internal/chain"
)

// DefaultTopN is the leaderboard length.
const DefaultTopN = 20

// Entry is one leaderboard row.
type Entry struct {
	Address string `json:"address"`
	Stage   uint32 `json:"stage"`
	Moves   uint32 `json:"moves"`
}

// better reports whether a outranks b.
func better(a, b Entry) bool {
	if a.Stage != b.Stage {
		return a.Stage > b.Stage
	}
	return a.Moves < b.Moves
}

// decode maps a RawLog to an Entry, or reports false if it is malformed.
func decode(raw chain.RawLog) (Entry, bool) {
	switch l := raw.(type) {
	case chain.StructuredLog:
		return decodeStructured(l)
	case chain.TopicLog:
		return decodeTopics(l)
	}
	return Entry{}, false
}

func decodeStructured(l chain.StructuredLog) (Entry, bool) {
	if l.Player == nil || l.Stage == nil || l.Moves == nil {
		return Entry{}, false
	}
	return Entry{Address: l.Player.Hex(), Stage: *l.Stage, Moves: *l.Moves}, true
}

// decodeTopics reads the player from topics[1] and two 32-byte big-endian
// words (stage, moves) from data.
func decodeTopics(l chain.TopicLog) (Entry, bool) {
	if len(l.Topics) < 2 {
		return Entry{}, false
	}
	topic, err := hexutil.Decode(l.Topics[1])
	if err != nil || len(topic) != 32 {
		return Entry{}, false
	}
	data, err := hexutil.Decode(normalizeHex(l.Data))
	if err != nil || len(data) < 64 {
		return Entry{}, false
	}
	stage, ok := word32(data[0:32])
	if !ok {
		return Entry{}, false
	}
	moves, ok := word32(data[32:64])
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Address: common.BytesToAddress(topic[12:]).Hex(),
		Stage:   stage,
		Moves:   moves,
	}, true
}

// word32 reads a uint32 from a 32-byte ABI word, rejecting wider values.
func word32(w []byte) (uint32, bool) {
	for _, b := range w[:28] {
		if b != 0 {
			return 0, false
		}
	}
	return uint32(w[28])<<24 | uint32(w[29])<<16 | uint32(w[30])<<8 | uint32(w[31]), true
}

func normalizeHex(s string) string {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "0x" + s
	}
	return s
}

// Aggregate reduces logs to one best entry per player, ranked and cut to topN.
// Addresses are compared case-insensitively via their checksummed form.
func Aggregate(logs []chain.RawLog, topN int) []Entry {
	if topN <= 0 {
		topN = DefaultTopN
	}
	best := make(map[string]Entry)
	for _, raw := range logs {
		e, ok := decode(raw)
		if !ok {
			continue
		}
		if cur, seen := best[e.Address]; !seen || better(e, cur) {
			best[e.Address] = e
		}
	}

	out := make([]Entry, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage || out[i].Moves != out[j].Moves {
			return better(out[i], out[j])
		}
		return out[i].Address < out[j].Address
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
