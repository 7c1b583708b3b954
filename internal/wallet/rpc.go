// internal/wallet/rpc.go
//
// RPCWallet talks to a wallet bridge over JSON-RPC (eth_accounts,
// eth_chainId, wallet_switchEthereumChain, eth_sendTransaction).
// Only the injected kind hands out its raw provider.

package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// RPCWallet is a bridged wallet.
type RPCWallet struct {
	client  *rpc.Client
	kind    Kind
	address common.Address
}

// DialRPCWallet connects to a bridge and selects its first account.
func DialRPCWallet(ctx context.Context, url string, kind Kind) (*RPCWallet, error) {
	if kind != KindInjected && kind != KindRemote {
		return nil, fmt.Errorf("rpc wallet cannot be of kind %q", kind)
	}
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial wallet bridge: %w", err)
	}
	w, err := NewRPCWallet(ctx, client, kind)
	if err != nil {
		client.Close()
		return nil, err
	}
	return w, nil
}

// NewRPCWallet wraps an existing client.
func NewRPCWallet(ctx context.Context, client *rpc.Client, kind Kind) (*RPCWallet, error) {
	var accounts []common.Address
	if err := client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("eth_accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, errors.New("wallet bridge has no accounts")
	}
	return &RPCWallet{client: client, kind: kind, address: accounts[0]}, nil
}

func (w *RPCWallet) Kind() Kind              { return w.kind }
func (w *RPCWallet) Address() common.Address { return w.address }

func (w *RPCWallet) Provider() Provider {
	if w.kind != KindInjected {
		return nil
	}
	return w.client
}

func (w *RPCWallet) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := w.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return nil, err
	}
	return id.ToInt(), nil
}

// SwitchChain asks the wallet to move to chainID.
func (w *RPCWallet) SwitchChain(ctx context.Context, chainID *big.Int) error {
	return SwitchEthereumChain(ctx, w.client, chainID)
}

type sendArgs struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

func (w *RPCWallet) SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	var hash common.Hash
	err := w.client.CallContext(ctx, &hash, "eth_sendTransaction", sendArgs{From: w.address, To: to, Data: data})
	return hash, err
}

// Close releases the bridge connection.
func (w *RPCWallet) Close() { w.client.Close() }

// SwitchEthereumChain issues wallet_switchEthereumChain on a raw provider.
func SwitchEthereumChain(ctx context.Context, p Provider, chainID *big.Int) error {
	params := map[string]string{"chainId": hexutil.EncodeBig(chainID)}
	return p.CallContext(ctx, nil, "wallet_switchEthereumChain", params)
}

// ChainParams is the wallet_addEthereumChain payload.
type ChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// AddEthereumChain issues wallet_addEthereumChain on a raw provider.
func AddEthereumChain(ctx context.Context, p Provider, params ChainParams) error {
	return p.CallContext(ctx, nil, "wallet_addEthereumChain", params)
}
