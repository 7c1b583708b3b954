// internal/wallet/key.go
//
// KeyWallet signs EIP-1559 transactions with a local private key and
// broadcasts them through an ethclient-compatible backend.

package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyBackend is the subset of ethclient.Client a KeyWallet needs.
type KeyBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// KeyWallet is a server-held signer.
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	backend KeyBackend

	// serializes nonce selection and broadcast
	sendMu sync.Mutex
}

// NewKeyWallet parses a hex private key (0x prefix optional).
func NewKeyWallet(hexKey string, backend KeyBackend) (*KeyWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}
	return &KeyWallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey), backend: backend}, nil
}

func (w *KeyWallet) Kind() Kind              { return KindKey }
func (w *KeyWallet) Address() common.Address { return w.address }
func (w *KeyWallet) Provider() Provider      { return nil }

func (w *KeyWallet) ChainID(ctx context.Context) (*big.Int, error) {
	return w.backend.ChainID(ctx)
}

// SwitchChain is unsupported; the key signs for whatever chain its RPC serves.
func (w *KeyWallet) SwitchChain(context.Context, *big.Int) error {
	return ErrSwitchUnsupported
}

// SendTransaction signs and broadcasts a call to `to` with calldata.
func (w *KeyWallet) SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	chainID, err := w.backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}
	tip, err := w.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas tip: %w", err)
	}
	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{From: w.address, To: &to, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}
