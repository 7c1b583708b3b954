// internal/chain/explorer.go
//
// Etherscan-compatible explorer log source.
//
// Request:  GET <api>?module=logs&action=getLogs&address=..&topic0=..&fromBlock=..&toBlock=..&apikey=..
// Response: {"status":"1","message":"OK","result":[{"topics":[..],"data":"0x..","blockNumber":"0x.."}]}
// "No records found" comes back as status "0" with an empty result and is not an error.
//
// Results are paged (page=N&offset=PageSize) until a short page comes back.
// Explorers cap the result window at MaxPages*1000 records; a history that
// still fills the last allowed page is reported as an error rather than
// returned truncated.

package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tidwall/gjson"
)

const (
	DefaultPageSize = 1000
	MaxPages        = 10
)

// Explorer reads logs from an explorer API. It returns TopicLog records.
type Explorer struct {
	BaseURL  string
	APIKey   string
	Client   *http.Client
	PageSize int // 0 means DefaultPageSize
}

// NewExplorer returns an explorer source with a bounded HTTP client.
func NewExplorer(baseURL, apiKey string, timeout time.Duration) *Explorer {
	return &Explorer{BaseURL: baseURL, APIKey: apiKey, Client: &http.Client{Timeout: timeout}}
}

func (e *Explorer) Name() string { return "explorer API" }

func (e *Explorer) FetchLogs(ctx context.Context, contract common.Address, event common.Hash, from, to uint64) ([]RawLog, error) {
	logs, err := e.fetch(ctx, contract, event, from, to)
	if err != nil {
		return nil, &ChunkError{Provider: e.Name(), From: from, To: to, Err: err}
	}
	return logs, nil
}

func (e *Explorer) fetch(ctx context.Context, contract common.Address, event common.Hash, from, to uint64) ([]RawLog, error) {
	u, err := url.Parse(e.BaseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("module", "logs")
	q.Set("action", "getLogs")
	q.Set("address", contract.Hex())
	q.Set("topic0", event.Hex())
	q.Set("fromBlock", strconv.FormatUint(from, 10))
	if to == Latest {
		q.Set("toBlock", "latest")
	} else {
		q.Set("toBlock", strconv.FormatUint(to, 10))
	}
	if e.APIKey != "" {
		q.Set("apikey", e.APIKey)
	}

	size := e.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	q.Set("offset", strconv.Itoa(size))

	var all []RawLog
	for page := 1; page <= MaxPages; page++ {
		q.Set("page", strconv.Itoa(page))
		u.RawQuery = q.Encode()
		logs, err := e.fetchPage(ctx, u.String())
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, logs...)
		if len(logs) < size {
			return all, nil
		}
	}
	return nil, fmt.Errorf("more than %d logs in range; narrow the block range", MaxPages*size)
}

func (e *Explorer) fetchPage(ctx context.Context, rawURL string) ([]RawLog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid json response")
	}

	doc := gjson.ParseBytes(body)
	result := doc.Get("result")
	if doc.Get("status").String() != "1" {
		msg := doc.Get("message").String()
		if strings.HasPrefix(strings.ToLower(msg), "no records") {
			return nil, nil
		}
		if result.Type == gjson.String && result.String() != "" {
			msg = result.String()
		}
		return nil, errors.New(msg)
	}

	var out []RawLog
	result.ForEach(func(_, v gjson.Result) bool {
		l := TopicLog{Data: v.Get("data").String()}
		for _, t := range v.Get("topics").Array() {
			l.Topics = append(l.Topics, t.String())
		}
		bn := v.Get("blockNumber").String()
		if n, err := hexutil.DecodeUint64(bn); err == nil {
			l.BlockNumber = n
		} else if n, err := strconv.ParseUint(strings.TrimPrefix(bn, "0x"), 16, 64); err == nil {
			// some explorers zero-pad
			l.BlockNumber = n
		}
		out = append(out, l)
		return true
	})
	return out, nil
}
