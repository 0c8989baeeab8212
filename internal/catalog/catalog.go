package catalog

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/pinned"
	"github.com/arbwatch/pmspread/pkg/cache"
	"github.com/arbwatch/pmspread/pkg/types"
)

// marketCacheTTL is how long a fetched market's record is cached.
const marketCacheTTL = 24 * time.Hour

// Config holds Universe Fetcher configuration, taken from the
// recognised config surface's catalog-filtering fields.
type Config struct {
	Client          *Client
	Cache           cache.Cache
	Logger          *zap.Logger
	MaxMarkets      int
	MinVolume24h    float64
	MinLiquidity    float64
	MinExpiryMinutes time.Duration
	MaxExpiryHours  time.Duration
}

// Service is the Universe Fetcher.
type Service struct {
	client *Client
	cache  cache.Cache
	logger *zap.Logger
	cfg    Config
}

// New creates a Universe Fetcher.
func New(cfg Config) *Service {
	return &Service{client: cfg.Client, cache: cfg.Cache, logger: cfg.Logger, cfg: cfg}
}

// FetchQualifying fetches the active catalog and returns the markets
// that clear every configured quality threshold, capped at MaxMarkets
// (no cap when MaxMarkets is 0).
func (s *Service) FetchQualifying(ctx context.Context) ([]types.Market, error) {
	const pageSize = 100
	var qualifying []types.Market
	now := time.Now()
	capped := s.cfg.MaxMarkets > 0

	for offset := 0; !capped || len(qualifying) < s.cfg.MaxMarkets; offset += pageSize {
		batch, err := s.client.FetchActiveMarkets(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, m := range batch {
			if s.qualifies(m, now) {
				qualifying = append(qualifying, m)
				MarketsQualifiedTotal.Inc()
				s.cacheMarket(m)
				if capped && len(qualifying) >= s.cfg.MaxMarkets {
					break
				}
			}
		}

		if len(batch) < pageSize {
			break
		}
	}

	return qualifying, nil
}

func (s *Service) qualifies(m types.Market, now time.Time) bool {
	if !m.Active || m.Closed {
		return false
	}
	if len(m.Tokens) < 2 {
		return false
	}
	if s.cfg.MinVolume24h > 0 && m.Volume24hr < s.cfg.MinVolume24h {
		return false
	}
	if s.cfg.MinLiquidity > 0 && m.Liquidity < s.cfg.MinLiquidity {
		return false
	}
	if !m.EndDate.IsZero() {
		untilExpiry := m.EndDate.Sub(now)
		if untilExpiry < 0 {
			return false
		}
		if s.cfg.MinExpiryMinutes > 0 && untilExpiry < s.cfg.MinExpiryMinutes {
			return false
		}
		if s.cfg.MaxExpiryHours > 0 && untilExpiry > s.cfg.MaxExpiryHours {
			return false
		}
	}
	return true
}

func (s *Service) cacheMarket(m types.Market) {
	if s.cache == nil {
		return
	}
	if !s.cache.Set(m.ID, m, marketCacheTTL) {
		s.logger.Warn("catalog-cache-set-failed", zap.String("market-id", m.ID))
	}
}

// FetchPinnedCandidates implements pinned.CatalogFetcher: it resolves,
// for every configured slug prefix, the current candidates with a
// parseable end timestamp.
func (s *Service) FetchPinnedCandidates(ctx context.Context, prefixes []string) ([]pinned.Candidate, error) {
	var out []pinned.Candidate
	for _, prefix := range prefixes {
		markets, err := s.client.FetchBySlugPrefix(ctx, prefix, 10)
		if err != nil {
			return nil, err
		}
		for _, m := range markets {
			if m.EndDate.IsZero() {
				continue
			}
			if !strings.HasPrefix(m.Slug, prefix) {
				continue
			}
			out = append(out, pinned.Candidate{Market: m, Prefix: prefix, EndTS: m.EndDate})
		}
	}
	return out, nil
}
