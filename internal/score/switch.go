// internal/score/switch.go
//
// Network switch strategies, tried in order:
//   1. walletSwitch:   the wallet's own switch call.
//   2. providerSwitch: raw wallet_switchEthereumChain on an injected wallet's
//      provider; on 4902 (unknown chain) add the chain and switch again.
//
// A strategy returns ErrNotApplicable when it cannot run for this wallet.
// The chain stops at the first success.

package score

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/robalobadob/memorymatch/internal/config"
	"github.com/robalobadob/memorymatch/internal/wallet"
)

// ErrNotApplicable marks a strategy that does not fit the connected wallet.
var ErrNotApplicable = errors.New("switch strategy not applicable")

// codeUnrecognizedChain is the EIP-3326 error for an unknown chain id.
const codeUnrecognizedChain = 4902

// Switcher is one way of moving a wallet to the target network.
type Switcher interface {
	Name() string
	Switch(ctx context.Context, w Wallet, net config.Network) error
}

// DefaultSwitchers is the standard strategy order.
func DefaultSwitchers() []Switcher {
	return []Switcher{walletSwitch{}, providerSwitch{}}
}

type walletSwitch struct{}

func (walletSwitch) Name() string { return "wallet" }

func (walletSwitch) Switch(ctx context.Context, w Wallet, net config.Network) error {
	err := w.SwitchChain(ctx, net.ChainIDBig())
	if errors.Is(err, wallet.ErrSwitchUnsupported) {
		return ErrNotApplicable
	}
	return err
}

type providerSwitch struct{}

func (providerSwitch) Name() string { return "provider" }

func (providerSwitch) Switch(ctx context.Context, w Wallet, net config.Network) error {
	p := w.Provider()
	if w.Kind() != wallet.KindInjected || p == nil {
		return ErrNotApplicable
	}
	id := net.ChainIDBig()
	err := wallet.SwitchEthereumChain(ctx, p, id)
	if err == nil || !isUnrecognizedChain(err) {
		return err
	}
	if err := wallet.AddEthereumChain(ctx, p, chainParams(net, id)); err != nil {
		return err
	}
	// some wallets do not switch after adding
	return wallet.SwitchEthereumChain(ctx, p, id)
}

func isUnrecognizedChain(err error) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUnrecognizedChain
}

func chainParams(net config.Network, id *big.Int) wallet.ChainParams {
	p := wallet.ChainParams{
		ChainID:   hexutil.EncodeBig(id),
		ChainName: net.Name,
		NativeCurrency: wallet.NativeCurrency{
			Name:     net.CurrencyName,
			Symbol:   net.CurrencySymbol,
			Decimals: net.Decimals,
		},
		RPCURLs: []string{net.RPCURL},
	}
	if net.ExplorerURL != "" {
		p.BlockExplorerURLs = []string{net.ExplorerURL}
	}
	return p
}

// switchNetwork runs the strategies in order. It returns nil on the first
// success; otherwise the last real failure, or nil if none applied.
func switchNetwork(ctx context.Context, switchers []Switcher, w Wallet, net config.Network) error {
	var lastErr error
	for _, s := range switchers {
		err := s.Switch(ctx, w, net)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotApplicable) {
			continue
		}
		lastErr = err
	}
	return lastErr
}
