// internal/images/pool.go
//
// Image pools.
// Responsibilities:
//   - BuildPool: merge wallet NFTs and tokens, dedupe by URL, pad with demo images.
//   - Pool: a per-session, append-only image collection with an epoch counter.
//
// Every load or prefetch begins a new epoch; a result that arrives tagged with
// an older epoch has been superseded and is dropped instead of merged.

package images

import (
	"slices"
	"sync"

	"github.com/robalobadob/memorymatch/internal/game"
)

// BuildPool dedupes nfts then tokens by URL (first occurrence wins) and pads
// with demo images until minRequired is reached or the demo list runs out.
func BuildPool(nfts, tokens []game.Image, minRequired int) []game.Image {
	seen := make(map[string]struct{})
	pool := make([]game.Image, 0, len(nfts)+len(tokens))

	for _, list := range [][]game.Image{nfts, tokens} {
		for _, img := range list {
			if img.URL == "" {
				continue
			}
			if _, dup := seen[img.URL]; dup {
				continue
			}
			seen[img.URL] = struct{}{}
			pool = append(pool, img)
		}
	}

	if len(pool) < minRequired {
		for _, demo := range Demo(minRequired - len(pool) + 5) {
			if _, dup := seen[demo.URL]; dup {
				continue
			}
			seen[demo.URL] = struct{}{}
			pool = append(pool, demo)
			if len(pool) >= minRequired {
				break
			}
		}
	}
	return pool
}

// Pool is an append-only image collection for one session.
type Pool struct {
	mu     sync.RWMutex
	images []game.Image
	urls   map[string]struct{}
	epoch  uint64
}

// NewPool returns an empty pool at epoch 0.
func NewPool() *Pool {
	return &Pool{urls: make(map[string]struct{})}
}

// Begin starts a new epoch and returns it. Results tagged with any earlier
// epoch will be discarded by Merge.
func (p *Pool) Begin() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epoch++
	return p.epoch
}

// Epoch returns the current epoch.
func (p *Pool) Epoch() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.epoch
}

// Merge appends the images not already present, if epoch is current.
// It reports whether the result was accepted.
func (p *Pool) Merge(epoch uint64, imgs []game.Image) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if epoch != p.epoch {
		return false
	}
	for _, img := range imgs {
		if _, dup := p.urls[img.URL]; dup {
			continue
		}
		p.urls[img.URL] = struct{}{}
		p.images = append(p.images, img)
	}
	return true
}

// Len returns the number of images held.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.images)
}

// Images returns a copy of the pool contents in insertion order.
func (p *Pool) Images() []game.Image {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.images)
}
