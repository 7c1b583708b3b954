// internal/chain/abi.go
//
// Contract surface of the score contract.
//   - recordGame(uint32 stage, uint32 moves)
//   - getRecords(address) / getHighestStage(address) views
//   - event GameCompleted(address indexed player, uint32 stage, uint32 moves)

package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const contractABIJSON = `[
  {"type":"function","name":"recordGame","stateMutability":"nonpayable","outputs":[],
   "inputs":[{"name":"stage","type":"uint32"},{"name":"moves","type":"uint32"}]},
  {"type":"function","name":"getRecords","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"}],
   "outputs":[{"name":"","type":"tuple[]","internalType":"struct MemoryGame.GameRecord[]",
     "components":[{"name":"stage","type":"uint32"},{"name":"moves","type":"uint32"},{"name":"timestamp","type":"uint64"}]}]},
  {"type":"function","name":"getHighestStage","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint32"}]},
  {"type":"event","name":"GameCompleted","anonymous":false,
   "inputs":[{"name":"player","type":"address","indexed":true},
             {"name":"stage","type":"uint32","indexed":false},
             {"name":"moves","type":"uint32","indexed":false}]}
]`

// GameCompletedSignature is the canonical event signature.
const GameCompletedSignature = "GameCompleted(address,uint32,uint32)"

var (
	// ContractABI is the parsed contract interface.
	ContractABI = mustParseABI(contractABIJSON)

	// GameCompletedTopic is topic[0] of every GameCompleted log.
	GameCompletedTopic = crypto.Keccak256Hash([]byte(GameCompletedSignature))
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse contract abi: %v", err))
	}
	return parsed
}

// PackRecordGame returns calldata for recordGame(stage, moves).
func PackRecordGame(stage, moves uint32) ([]byte, error) {
	return ContractABI.Pack("recordGame", stage, moves)
}

// IsZeroAddress reports whether addr is the unconfigured sentinel.
func IsZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}
