// internal/chain/rawlog.go
//
// RawLog is what a log source hands the leaderboard. Two shapes exist:
//   - StructuredLog: fields already decoded by the RPC path (may be partial).
//   - TopicLog: hex topics and data as an explorer API returns them.

package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// RawLog is one GameCompleted record in either wire shape.
type RawLog interface {
	Block() uint64
	rawLog()
}

// StructuredLog holds named event fields. Nil fields were missing or malformed.
type StructuredLog struct {
	Player      *common.Address
	Stage       *uint32
	Moves       *uint32
	BlockNumber uint64
}

func (l StructuredLog) Block() uint64 { return l.BlockNumber }
func (StructuredLog) rawLog()         {}

// TopicLog holds the undecoded 0x-prefixed topics and data.
type TopicLog struct {
	Topics      []string
	Data        string
	BlockNumber uint64
}

func (l TopicLog) Block() uint64 { return l.BlockNumber }
func (TopicLog) rawLog()         {}

// Structured decodes a GameCompleted receipt log into its named fields.
// Fields that fail to decode are left nil.
func Structured(l types.Log) StructuredLog {
	out := StructuredLog{BlockNumber: l.BlockNumber}
	if len(l.Topics) >= 2 {
		player := common.BytesToAddress(l.Topics[1].Bytes())
		out.Player = &player
	}
	fields := map[string]any{}
	if err := ContractABI.UnpackIntoMap(fields, "GameCompleted", l.Data); err != nil {
		return out
	}
	if v, ok := fields["stage"].(uint32); ok {
		out.Stage = &v
	}
	if v, ok := fields["moves"].(uint32); ok {
		out.Moves = &v
	}
	return out
}
