// internal/score/recorder.go
//
// Score recorder: submits recordGame(stage, moves) for a session.
// Responsibilities:
//   - Skip cleanly when no contract is configured.
//   - Move the wallet to the expected network, then verify it got there.
//   - Simulate the call first so contract rejections surface before signing.
//   - Send, wait for one confirmation, and report each status change.
//
// Failures land the session in StatusError with a one-line message.
// Exactly one transaction is sent per successful Record.

package score

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/robalobadob/memorymatch/internal/chain"
	"github.com/robalobadob/memorymatch/internal/config"
	"github.com/robalobadob/memorymatch/internal/wallet"
)

// Wallet is the signer a recorder submits through.
type Wallet interface {
	Kind() wallet.Kind
	Address() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	SwitchChain(ctx context.Context, chainID *big.Int) error
	SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error)
	Provider() wallet.Provider
}

// Backend reads chain state for simulation and confirmation.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Options configure a Recorder.
type Options struct {
	Contract     common.Address
	Network      config.Network
	Backend      Backend
	Switchers    []Switcher
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// Recorder is shared by all sessions; per-session state lives in Session.
type Recorder struct {
	opts Options
}

// NewRecorder returns a recorder. Nil Switchers means DefaultSwitchers.
func NewRecorder(opts Options) *Recorder {
	if opts.Switchers == nil {
		opts.Switchers = DefaultSwitchers()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Recorder{opts: opts}
}

// Enabled reports whether a contract is configured.
func (r *Recorder) Enabled() bool { return !chain.IsZeroAddress(r.opts.Contract) }

// Record submits (stage, moves) through w and tracks progress in sess.
// It returns ErrRecordInProgress if sess already has a recording underway
// and ErrAlreadyRecorded once it is confirmed or skipped.
func (r *Recorder) Record(ctx context.Context, sess *Session, w Wallet, stage, moves uint32) error {
	if err := sess.begin(stage, moves); err != nil {
		return err
	}
	defer sess.end()

	log := r.opts.Logger.With().Uint32("stage", stage).Uint32("moves", moves).Logger()
	set := func(st Status) {
		sess.set(st)
		log.Info().Str("status", string(st)).Str("tx", sess.Snapshot().TxHash).Msg("score status")
	}

	if !r.Enabled() {
		log.Warn().Msg("contract address not set, skipping on-chain record")
		set(StatusSkipped)
		return nil
	}

	err := r.record(ctx, sess, w, stage, moves, set)
	if err != nil {
		msg := Summarize(err)
		sess.fail(msg)
		log.Error().Err(err).Str("status", string(StatusError)).Msg("score recording failed")
	}
	return err
}

func (r *Recorder) record(ctx context.Context, sess *Session, w Wallet, stage, moves uint32, set func(Status)) error {
	if w == nil {
		return ErrNoWallet
	}
	if err := r.ensureNetwork(ctx, w, set); err != nil {
		return err
	}

	data, err := chain.PackRecordGame(stage, moves)
	if err != nil {
		return fmt.Errorf("encode recordGame: %w", err)
	}
	contract := r.opts.Contract
	if err := r.simulate(ctx, w.Address(), contract, data); err != nil {
		return err
	}

	set(StatusSending)
	hash, err := w.SendTransaction(ctx, contract, data)
	if err != nil {
		return err
	}
	sess.setTx(hash.Hex())

	set(StatusConfirming)
	if err := r.waitMined(ctx, hash); err != nil {
		return err
	}
	set(StatusConfirmed)
	return nil
}

func (r *Recorder) ensureNetwork(ctx context.Context, w Wallet, set func(Status)) error {
	want := r.opts.Network.ChainIDBig()
	got, err := w.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read wallet chain: %w", err)
	}
	if got.Cmp(want) == 0 {
		return nil
	}

	set(StatusSwitchingNetwork)
	if err := switchNetwork(ctx, r.opts.Switchers, w, r.opts.Network); err != nil {
		return err
	}
	got, err = w.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read wallet chain: %w", err)
	}
	if got.Cmp(want) != 0 {
		return fmt.Errorf("%w: on chain %s, need %s (%s)", ErrWrongNetwork, got, want, r.opts.Network.Name)
	}
	return nil
}

// simulate runs recordGame as an eth_call from the player's address.
func (r *Recorder) simulate(ctx context.Context, from, to common.Address, data []byte) error {
	_, err := r.opts.Backend.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Data: data}, nil)
	if err == nil {
		return nil
	}
	if rev := revertFrom(err); rev != nil {
		return rev
	}
	return fmt.Errorf("simulate recordGame: %w", err)
}

// revertFrom extracts a contract revert reason from an eth_call error.
func revertFrom(err error) *RevertError {
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if raw, decErr := hexutil.Decode(s); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return &RevertError{Reason: reason}
				}
			}
		}
	}
	if strings.Contains(err.Error(), "execution reverted") {
		msg := err.Error()
		reason := strings.TrimSpace(strings.TrimPrefix(msg[strings.Index(msg, "execution reverted"):], "execution reverted"))
		return &RevertError{Reason: strings.TrimPrefix(reason, ": ")}
	}
	return nil
}

// waitMined polls for the receipt until it exists or ctx ends.
func (r *Recorder) waitMined(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := r.opts.Backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return ErrTransactionFailed
			}
			return nil
		case !errors.Is(err, ethereum.NotFound):
			return fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for confirmation: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
