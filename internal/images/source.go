// internal/images/source.go
//
// Image sources for a player's card faces.
// Responsibilities:
//   - Source: fetch candidate images for an address.
//   - DemoSource: demo images only (no wallet assets).
//   - HTTPSource: wallet NFTs and tokens from an asset API, padded with demos.
//
// The asset API answers GET <base>?address=<addr>&type=nfts|tokens with
//   {"images":[{"id":"...","imageUrl":"...","name":"...","type":"nft"}]}
// A non-200 answer counts as "no images of that type".

package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/robalobadob/memorymatch/internal/game"
)

// Source provides candidate images for a player. minRequired is a hint: a
// source pads with demo images up to that count where it can.
type Source interface {
	FetchCandidateImages(ctx context.Context, address string, minRequired int) ([]game.Image, error)
}

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether s looks like a 20-byte hex address.
func ValidAddress(s string) bool { return addressRe.MatchString(s) }

// DemoSource serves demo images regardless of address.
type DemoSource struct{}

func (DemoSource) FetchCandidateImages(_ context.Context, _ string, minRequired int) ([]game.Image, error) {
	return BuildPool(nil, nil, minRequired), nil
}

// HTTPSource reads wallet assets from an asset API.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource returns a source for baseURL with a bounded HTTP client.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) FetchCandidateImages(ctx context.Context, address string, minRequired int) ([]game.Image, error) {
	if !ValidAddress(address) {
		return BuildPool(nil, nil, minRequired), nil
	}
	nfts, err := s.fetch(ctx, address, "nfts")
	if err != nil {
		return nil, err
	}
	tokens, err := s.fetch(ctx, address, "tokens")
	if err != nil {
		return nil, err
	}
	return BuildPool(nfts, tokens, minRequired), nil
}

func (s *HTTPSource) fetch(ctx context.Context, address, kind string) ([]game.Image, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("asset api url: %w", err)
	}
	q := u.Query()
	q.Set("address", address)
	q.Set("type", kind)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("type", kind).Msg("asset api returned no images")
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode %s: invalid json", kind)
	}

	var out []game.Image
	gjson.GetBytes(body, "images").ForEach(func(_, v gjson.Result) bool {
		img := game.Image{
			ID:          v.Get("id").String(),
			URL:         v.Get("imageUrl").String(),
			DisplayName: v.Get("name").String(),
			Kind:        game.KindRegular,
			Origin:      v.Get("type").String(),
		}
		if img.ID != "" && img.URL != "" {
			out = append(out, img)
		}
		return true
	})
	return out, nil
}
