// Package catalog is the Universe Fetcher: it polls the Gamma markets
// API, filters candidates against the configured quality thresholds,
// and supplies Market records to the Subscription Controller and the
// Pinned-Market Watcher.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/pkg/types"
)

// Client is an HTTP client for the Gamma markets API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Gamma API client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// FetchActiveMarkets fetches active, unresolved markets ordered by
// 24h volume descending.
func (c *Client) FetchActiveMarkets(ctx context.Context, limit, offset int) ([]types.Market, error) {
	endpoint := fmt.Sprintf("%s/markets", c.baseURL)

	params := url.Values{}
	params.Add("closed", "false")
	params.Add("active", "true")
	params.Add("limit", strconv.Itoa(limit))
	params.Add("offset", strconv.Itoa(offset))
	params.Add("order", "volume24hr")
	params.Add("ascending", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pmspread/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	FetchDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var markets []types.Market
	if err := json.Unmarshal(body, &markets); err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	MarketsFetchedTotal.Add(float64(len(markets)))
	return markets, nil
}

// FetchBySlugPrefix searches active markets for slugs carrying the
// given prefix, paginating up to maxPages pages of the catalog.
func (c *Client) FetchBySlugPrefix(ctx context.Context, prefix string, maxPages int) ([]types.Market, error) {
	const pageSize = 100
	var matches []types.Market

	for page := 0; page < maxPages; page++ {
		batch, err := c.FetchActiveMarkets(ctx, pageSize, page*pageSize)
		if err != nil {
			return nil, err
		}
		for _, m := range batch {
			if len(m.Slug) >= len(prefix) && m.Slug[:len(prefix)] == prefix {
				matches = append(matches, m)
			}
		}
		if len(batch) < pageSize {
			break
		}
	}
	return matches, nil
}
