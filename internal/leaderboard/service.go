// internal/leaderboard/service.go
//
// Leaderboard service used by GET /leaderboard.
// Responsibilities:
//   - Return an empty board when no contract is configured.
//   - Try log sources in order; the first success wins.
//   - Cache the aggregated board for a short TTL.
//   - Label failures with the provider that produced them.

package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/robalobadob/memorymatch/internal/chain"
	"github.com/robalobadob/memorymatch/internal/score"
)

// Error is a user-presentable leaderboard failure. Its text is the one-line
// cause, capped to score.MaxErrorRunes, followed by the provider label.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	cause := e.Err.Error()
	var ce *chain.ChunkError
	if errors.As(e.Err, &ce) && ce.Provider == e.Provider {
		cause = fmt.Sprintf("getLogs %d-%d: %v", ce.From, ce.To, ce.Err)
	}
	return fmt.Sprintf("%s (via %s)", score.SummarizeText(cause), e.Provider)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configure a Service.
type Options struct {
	Contract    common.Address
	DeployBlock uint64
	TopN        int
	CacheTTL    time.Duration
	Logger      zerolog.Logger
}

// Service aggregates the leaderboard from one or more log sources.
type Service struct {
	sources []chain.LogSource
	opts    Options
	now     func() time.Time

	mu       sync.Mutex
	cached   []Entry
	cachedAt time.Time
}

// NewService returns a service trying sources in order.
func NewService(opts Options, sources ...chain.LogSource) *Service {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	return &Service{sources: sources, opts: opts, now: time.Now}
}

// Entries returns the ranked leaderboard.
func (s *Service) Entries(ctx context.Context) ([]Entry, error) {
	if chain.IsZeroAddress(s.opts.Contract) || len(s.sources) == 0 {
		return []Entry{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && s.opts.CacheTTL > 0 && s.now().Sub(s.cachedAt) < s.opts.CacheTTL {
		return s.cached, nil
	}

	var lastErr error
	for _, src := range s.sources {
		logs, err := src.FetchLogs(ctx, s.opts.Contract, chain.GameCompletedTopic, s.opts.DeployBlock, chain.Latest)
		if err != nil {
			s.opts.Logger.Error().Err(err).Str("provider", src.Name()).Msg("getLogs failed")
			lastErr = &Error{Provider: src.Name(), Err: err}
			if errors.Is(err, context.Canceled) {
				break
			}
			continue
		}
		entries := Aggregate(logs, s.opts.TopN)
		s.cached, s.cachedAt = entries, s.now()
		s.opts.Logger.Debug().Str("provider", src.Name()).Int("logs", len(logs)).Int("entries", len(entries)).Msg("leaderboard refreshed")
		return entries, nil
	}
	return nil, lastErr
}
