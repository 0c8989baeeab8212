// Package pinned implements the Pinned-Market Watcher: it guarantees
// continuous coverage of short-lived rolling markets (one slug prefix
// at a time) by pre-subscribing the next candidate before the current
// one expires.
package pinned

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/registry"
	"github.com/arbwatch/pmspread/internal/subscription"
	"github.com/arbwatch/pmspread/pkg/types"
)

// Constants from spec §4.7.
const (
	Grace          = 60 * time.Second
	Presub         = 30 * time.Second
	WatcherTick    = 10 * time.Second
	CatalogRefetch = 30 * time.Second
)

// Candidate is one fetched pinned-slug market with its resolved expiry.
type Candidate struct {
	Market types.Market
	Prefix string
	EndTS  time.Time
}

// CatalogFetcher resolves the current candidates for a set of slug
// prefixes, e.g. by polling the Gamma markets API for each prefix.
type CatalogFetcher interface {
	FetchPinnedCandidates(ctx context.Context, prefixes []string) ([]Candidate, error)
}

// Config holds Watcher configuration.
type Config struct {
	Prefixes   []string
	Registry   *registry.Registry
	Fetcher    CatalogFetcher
	ControlOut chan<- subscription.ControlMsg
	Logger     *zap.Logger
}

// Watcher is the Pinned-Market Watcher.
type Watcher struct {
	prefixes   []string
	registry   *registry.Registry
	fetcher    CatalogFetcher
	controlOut chan<- subscription.ControlMsg
	logger     *zap.Logger

	known      map[string][]Candidate // prefix -> candidates, sorted by EndTS ascending
	subscribed map[string]bool        // market id -> currently desired & subscribed
	lastFetch  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Pinned-Market Watcher. If no prefixes are configured,
// Start is a no-op, matching the upstream behaviour of skipping the
// watcher entirely when there is nothing pinned to track.
func New(cfg Config) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		prefixes:   cfg.Prefixes,
		registry:   cfg.Registry,
		fetcher:    cfg.Fetcher,
		controlOut: cfg.ControlOut,
		logger:     cfg.Logger,
		known:      make(map[string][]Candidate),
		subscribed: make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the watcher's tick loop.
func (w *Watcher) Start() {
	if len(w.prefixes) == 0 {
		return
	}
	w.wg.Add(1)
	go w.run()
}

// Close stops the watcher.
func (w *Watcher) Close() {
	w.cancel()
	w.wg.Wait()
}

func (w *Watcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(WatcherTick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *Watcher) tick() {
	now := time.Now()

	if w.lastFetch.IsZero() || now.Sub(w.lastFetch) >= CatalogRefetch {
		w.refetch()
		w.lastFetch = now
	}

	w.reconcile(now)
}

func (w *Watcher) refetch() {
	candidates, err := w.fetcher.FetchPinnedCandidates(w.ctx, w.prefixes)
	if err != nil {
		w.logger.Error("pinned-fetch-failed", zap.Error(err))
		return
	}

	byPrefix := make(map[string][]Candidate)
	for _, c := range candidates {
		byPrefix[c.Prefix] = append(byPrefix[c.Prefix], c)
	}
	for prefix := range byPrefix {
		sort.Slice(byPrefix[prefix], func(i, j int) bool {
			return byPrefix[prefix][i].EndTS.Before(byPrefix[prefix][j].EndTS)
		})
	}
	w.known = byPrefix
}

// reconcile computes the desired subscription set across all prefixes
// and diffs it against what is currently subscribed.
func (w *Watcher) reconcile(now time.Time) {
	desired := make(map[string]types.Market)

	for prefix, candidates := range w.known {
		duration := parsePrefixDuration(prefix)

		active := make([]Candidate, 0, len(candidates))
		for _, c := range candidates {
			if c.EndTS.Add(Grace).After(now) {
				active = append(active, c)
			}
		}
		if len(active) == 0 {
			continue
		}

		current := active[0]
		desired[current.Market.ID] = current.Market

		untilEnd := current.EndTS.Sub(now)
		if untilEnd <= Presub+duration && len(active) > 1 {
			next := active[1]
			desired[next.Market.ID] = next.Market
		}
	}

	for id, market := range desired {
		if w.subscribed[id] {
			continue
		}
		w.subscribed[id] = true
		subscription.TrySend(w.controlOut, subscription.ControlMsg{
			Subscribe: &subscription.SubscribeMsg{Markets: []types.Market{market}, Pinned: true},
		}, w.logger)
		w.logger.Info("pinned-market-subscribed", zap.String("market-id", id))
	}

	for id := range w.subscribed {
		if _, stillDesired := desired[id]; stillDesired {
			continue
		}
		delete(w.subscribed, id)
		subscription.TrySend(w.controlOut, subscription.ControlMsg{
			Unsubscribe: &subscription.UnsubscribeMsg{MarketID: id, Force: true},
		}, w.logger)
		w.logger.Info("pinned-market-expired", zap.String("market-id", id))
	}
}

// parsePrefixDuration extracts the rolling-window duration encoded in a
// slug prefix's trailing segment, e.g. "btc-updown-5m" -> 5 minutes.
// Defaults to 5 minutes if the segment is missing or unparseable.
func parsePrefixDuration(prefix string) time.Duration {
	idx := strings.LastIndex(prefix, "-")
	segment := prefix
	if idx >= 0 {
		segment = prefix[idx+1:]
	}

	if n, ok := parseSuffixedInt(segment, "m"); ok {
		return time.Duration(n) * time.Minute
	}
	if n, ok := parseSuffixedInt(segment, "h"); ok {
		return time.Duration(n) * time.Hour
	}
	return 5 * time.Minute
}

func parseSuffixedInt(segment, suffix string) (int64, bool) {
	if !strings.HasSuffix(segment, suffix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSuffix(segment, suffix), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
