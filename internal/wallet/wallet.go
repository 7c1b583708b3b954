// internal/wallet/wallet.go
//
// Signers used to submit score transactions.
//
// Kinds:
//   - key:      a local private key signing against the configured RPC.
//   - injected: a JSON-RPC wallet bridge that also exposes its raw provider.
//   - remote:   a JSON-RPC wallet bridge without raw provider access.

package wallet

import (
	"context"
	"errors"
	"fmt"
)

// Kind names how a wallet is connected.
type Kind string

const (
	KindKey      Kind = "key"
	KindInjected Kind = "injected"
	KindRemote   Kind = "remote"
)

// ParseKind validates a WALLET_KIND value. Empty means no wallet.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindKey, KindInjected, KindRemote, "":
		return k, nil
	}
	return "", fmt.Errorf("unknown wallet kind %q", s)
}

// ErrSwitchUnsupported is returned by wallets that cannot change networks.
var ErrSwitchUnsupported = errors.New("wallet cannot switch networks")

// Provider is raw EIP-1193-style request access. *rpc.Client satisfies it.
type Provider interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}
