// Package registry implements the Market Registry: the bidirectional
// market_id <-> (yes_token, no_token) index, the pinned set, and the
// hydration metric. It owns a Book Store's token lifecycle (add/remove
// a market adds/removes the underlying per-token books).
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/arbwatch/pmspread/internal/book"
	"github.com/arbwatch/pmspread/pkg/types"
	"go.uber.org/zap"
)

// entry is one tracked market's registry record.
type entry struct {
	market   types.Market
	yesToken string
	noToken  string
	pinned   bool
}

// Registry is the Market Registry.
type Registry struct {
	logger *zap.Logger
	store  *book.Store

	mu          sync.RWMutex
	byMarket    map[string]*entry // market_id -> entry
	byToken     map[string]string // token_id -> market_id
	lastRefresh atomic.Int64      // unix nanos of last full catalog refresh, for diagnostics
}

// MarkRefreshed records the time of a full catalog refresh, readable
// through LastRefreshedAt. The value is only stored here; no metric or
// debug HTTP route exports it.
func (r *Registry) MarkRefreshed(unixNanos int64) {
	r.lastRefresh.Store(unixNanos)
}

// LastRefreshedAt returns the unix-nanos timestamp of the last full
// catalog refresh, or 0 if none has happened yet.
func (r *Registry) LastRefreshedAt() int64 {
	return r.lastRefresh.Load()
}

// New creates a Market Registry backed by the given Book Store.
func New(store *book.Store, logger *zap.Logger) *Registry {
	return &Registry{
		logger:   logger,
		store:    store,
		byMarket: make(map[string]*entry),
		byToken:  make(map[string]string),
	}
}

// AddMarket inserts a market and creates its two token books. Returns
// false if the market lacks a resolvable YES/NO pair or is already
// tracked.
func (r *Registry) AddMarket(m types.Market) bool {
	yes, no, ok := m.YesNoTokens()
	if !ok {
		r.logger.Warn("market-add-rejected-unresolved-tokens", zap.String("market-id", m.ID))
		return false
	}

	r.mu.Lock()
	if _, exists := r.byMarket[m.ID]; exists {
		r.mu.Unlock()
		return false
	}
	r.byMarket[m.ID] = &entry{market: m, yesToken: yes, noToken: no}
	r.byToken[yes] = m.ID
	r.byToken[no] = m.ID
	count := len(r.byMarket)
	r.mu.Unlock()

	r.store.AddToken(yes)
	r.store.AddToken(no)

	MarketCount.Set(float64(count))
	r.logger.Info("market-added", zap.String("market-id", m.ID), zap.String("slug", m.Slug))
	return true
}

// RemoveMarket resolves the market's token ids, destroys their books,
// and drops the market. Pinned markets are refused unless force=true —
// only the Pinned Watcher may remove a pinned market.
func (r *Registry) RemoveMarket(marketID string, force bool) (yesToken, noToken string, ok bool) {
	r.mu.Lock()
	e, exists := r.byMarket[marketID]
	if !exists {
		r.mu.Unlock()
		return "", "", false
	}
	if e.pinned && !force {
		r.mu.Unlock()
		r.logger.Debug("market-remove-refused-pinned", zap.String("market-id", marketID))
		return "", "", false
	}
	yesToken, noToken = e.yesToken, e.noToken
	delete(r.byMarket, marketID)
	delete(r.byToken, yesToken)
	delete(r.byToken, noToken)
	count := len(r.byMarket)
	r.mu.Unlock()

	// Token ids are already resolved above (ordering invariant satisfied
	// by the caller reading the return values before acting); the store
	// mutation here is the registry's own cleanup, not the feed-side
	// unsubscribe, which the Subscription Controller drives separately.
	r.store.RemoveToken(yesToken)
	r.store.RemoveToken(noToken)

	MarketCount.Set(float64(count))
	r.logger.Info("market-removed", zap.String("market-id", marketID))
	return yesToken, noToken, true
}

// TokenIDsForMarket returns a market's (yes, no) token pair.
func (r *Registry) TokenIDsForMarket(marketID string) (yesToken, noToken string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, exists := r.byMarket[marketID]
	if !exists {
		return "", "", false
	}
	return e.yesToken, e.noToken, true
}

// MarketForToken resolves a token id back to its owning market id (use
// TokenRole to also learn the side). This is the reverse index the
// teacher's detector referenced but never implemented.
func (r *Registry) MarketForToken(tokenID string) (marketID string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	marketID, ok = r.byToken[tokenID]
	return marketID, ok
}

// TokenRole resolves a token id to its owning market id and whether it
// is the yes side (false means no side). Used by the Spread Detector to
// map an incoming PriceChangeMsg back to the market whose window state
// it affects.
func (r *Registry) TokenRole(tokenID string) (marketID string, isYes bool, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	marketID, ok = r.byToken[tokenID]
	if !ok {
		return "", false, false
	}
	e := r.byMarket[marketID]
	return marketID, e.yesToken == tokenID, true
}

// PinMarket marks a market pinned so the Universe Fetcher's
// reconciliation cannot evict it.
func (r *Registry) PinMarket(marketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, exists := r.byMarket[marketID]; exists {
		e.pinned = true
	}
}

// IsPinned reports whether a market is pinned.
func (r *Registry) IsPinned(marketID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, exists := r.byMarket[marketID]
	return exists && e.pinned
}

// MarketIDs returns a snapshot of all tracked market ids.
func (r *Registry) MarketIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byMarket))
	for id := range r.byMarket {
		ids = append(ids, id)
	}
	return ids
}

// MarketCount returns the number of tracked markets.
func (r *Registry) MarketCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byMarket)
}

// HydratedMarketCount returns how many tracked markets have both sides
// cached with a positive best-ask.
func (r *Registry) HydratedMarketCount() int {
	r.mu.RLock()
	ids := make([]*entry, 0, len(r.byMarket))
	for _, e := range r.byMarket {
		ids = append(ids, e)
	}
	r.mu.RUnlock()

	hydrated := 0
	for _, e := range ids {
		if _, _, _, _, ok := r.store.SpreadInputs(e.yesToken, e.noToken); ok {
			hydrated++
		}
	}
	HydratedMarketCount.Set(float64(hydrated))
	return hydrated
}
