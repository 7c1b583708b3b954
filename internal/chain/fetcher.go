// internal/chain/fetcher.go
//
// Log range fetcher.
// Responsibilities:
//   - Fetch a contract's logs for one event over [from, to].
//   - Unrestricted providers get a single eth_getLogs call.
//   - Restricted providers get fixed-size windows, run in batches of bounded
//     concurrency. Each batch is joined before the next starts; results are
//     concatenated in block order.
//
// Any failing window aborts the whole fetch with a ChunkError naming the
// provider and range. No partial result is returned.

package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"
)

// Latest stands for the chain head as an upper bound.
const Latest = ^uint64(0)

const (
	DefaultChunkSize     uint64 = 1800
	DefaultParallelBatch        = 8
)

// LogClient is the subset of ethclient.Client the fetcher needs.
type LogClient interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// LogSource fetches GameCompleted-style logs from some provider.
type LogSource interface {
	Name() string
	FetchLogs(ctx context.Context, contract common.Address, event common.Hash, from, to uint64) ([]RawLog, error)
}

// ChunkError reports which provider and block window failed.
type ChunkError struct {
	Provider string
	From, To uint64
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s: getLogs %d-%d: %v", e.Provider, e.From, e.To, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Fetcher is an RPC-backed LogSource.
type Fetcher struct {
	client       LogClient
	name         string
	unrestricted bool
	chunkSize    uint64
	batch        int
}

// NewFetcher returns a fetcher. Non-positive sizes fall back to defaults.
func NewFetcher(client LogClient, name string, unrestricted bool, chunkSize uint64, batch int) *Fetcher {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if batch <= 0 {
		batch = DefaultParallelBatch
	}
	return &Fetcher{client: client, name: name, unrestricted: unrestricted, chunkSize: chunkSize, batch: batch}
}

func (f *Fetcher) Name() string { return f.name }

type window struct{ from, to uint64 }

// windows splits [from, to] into chunk-sized inclusive ranges.
func windows(from, to, size uint64) []window {
	var out []window
	for start := from; start <= to; {
		end := to
		if to-start >= size {
			end = start + size - 1
		}
		out = append(out, window{start, end})
		if end == to {
			break
		}
		start = end + 1
	}
	return out
}

// FetchLogs returns the matching logs in block order. to may be Latest.
func (f *Fetcher) FetchLogs(ctx context.Context, contract common.Address, event common.Hash, from, to uint64) ([]RawLog, error) {
	if to == Latest {
		head, err := f.client.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: block number: %w", f.name, err)
		}
		to = head
	}
	if from > to {
		return nil, nil
	}

	if f.unrestricted {
		logs, err := f.call(ctx, contract, event, window{from, to})
		if err != nil {
			return nil, err
		}
		return toRaw(logs), nil
	}

	chunks := windows(from, to, f.chunkSize)
	var all []types.Log
	for i := 0; i < len(chunks); i += f.batch {
		batch := chunks[i:min(i+f.batch, len(chunks))]
		results := make([][]types.Log, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for j, w := range batch {
			g.Go(func() error {
				logs, err := f.call(gctx, contract, event, w)
				if err != nil {
					return err
				}
				results[j] = logs
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, r := range results {
			all = append(all, r...)
		}
	}
	return toRaw(all), nil
}

func (f *Fetcher) call(ctx context.Context, contract common.Address, event common.Hash, w window) ([]types.Log, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(w.from),
		ToBlock:   new(big.Int).SetUint64(w.to),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{event}},
	}
	logs, err := f.client.FilterLogs(ctx, q)
	if err != nil {
		return nil, &ChunkError{Provider: f.name, From: w.from, To: w.to, Err: err}
	}
	return logs, nil
}

func toRaw(logs []types.Log) []RawLog {
	out := make([]RawLog, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		out = append(out, Structured(l))
	}
	return out
}
