// Package book implements the Book Store: a per-token L2 order book with
// a lock-free best-price read path, keyed on integer price ticks.
package book

import (
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// priceKeyScale fixes book precision at 1/10_000; float-keyed maps are
// banned so every price is quantized to this integer grid before storage.
const priceKeyScale = 10000.0

// PriceKey quantizes a decimal price to its integer book key.
func PriceKey(price float64) int64 {
	return int64(math.Round(price * priceKeyScale))
}

// KeyToPrice recovers the decimal price of a book key.
func KeyToPrice(key int64) float64 {
	return float64(key) / priceKeyScale
}

// BestPrices is the cached read shape for a token; either side may be 0
// if that side is currently empty.
type BestPrices struct {
	BestAsk float64
	BestBid float64
}

type tokenBook struct {
	mu   sync.Mutex
	asks map[int64]float64 // price key -> size
	bids map[int64]float64

	bestAskKey int64 // valid iff len(asks) > 0
	bestBidKey int64 // valid iff len(bids) > 0
}

func newTokenBook() *tokenBook {
	return &tokenBook{
		asks: make(map[int64]float64),
		bids: make(map[int64]float64),
	}
}

// rescanAsks recomputes the minimum ask key from scratch. Only needed
// when the current best level's size drops to zero.
func (b *tokenBook) rescanAsks() {
	if len(b.asks) == 0 {
		b.bestAskKey = 0
		return
	}
	first := true
	for k := range b.asks {
		if first || k < b.bestAskKey {
			b.bestAskKey = k
			first = false
		}
	}
}

func (b *tokenBook) rescanBids() {
	if len(b.bids) == 0 {
		b.bestBidKey = 0
		return
	}
	first := true
	for k := range b.bids {
		if first || k > b.bestBidKey {
			b.bestBidKey = k
			first = false
		}
	}
}

func (b *tokenBook) setLevel(key int64, size float64, isAsk bool) {
	levels := b.bids
	if isAsk {
		levels = b.asks
	}

	if size <= 0 {
		if _, exists := levels[key]; !exists {
			return
		}
		delete(levels, key)
		if isAsk && key == b.bestAskKey {
			b.rescanAsks()
		} else if !isAsk && key == b.bestBidKey {
			b.rescanBids()
		}
		return
	}

	_, existed := levels[key]
	levels[key] = size

	if isAsk {
		if !existed && (len(b.asks) == 1 || key < b.bestAskKey) {
			b.bestAskKey = key
		}
	} else {
		if !existed && (len(b.bids) == 1 || key > b.bestBidKey) {
			b.bestBidKey = key
		}
	}
}

func (b *tokenBook) best() BestPrices {
	var bp BestPrices
	if len(b.asks) > 0 {
		bp.BestAsk = KeyToPrice(b.bestAskKey)
	}
	if len(b.bids) > 0 {
		bp.BestBid = KeyToPrice(b.bestBidKey)
	}
	return bp
}

// cacheEntry is stored behind an atomic.Pointer so reads never block on
// the per-token book's mutex; it is overwritten wholesale on each write.
type cacheEntry struct {
	prices BestPrices
}

// Store is the Book Store: the only shared mutable state in the
// pipeline. Writes (from the Feed Ingestor) take the per-token lock;
// reads (best-price lookups from the Detector, status endpoints, audit
// tools) go through a lock-free cache that is written only when the
// resulting best ask is strictly positive, so a cache entry is never
// poisoned by a transition through an empty ask side.
type Store struct {
	logger *zap.Logger

	mu    sync.RWMutex
	books map[string]*tokenBook

	cache sync.Map // token id -> *atomic.Pointer[cacheEntry]
}

// New creates an empty Book Store.
func New(logger *zap.Logger) *Store {
	return &Store{
		logger: logger,
		books:  make(map[string]*tokenBook),
	}
}

func (s *Store) cachePtr(token string, create bool) *atomic.Pointer[cacheEntry] {
	if v, ok := s.cache.Load(token); ok {
		return v.(*atomic.Pointer[cacheEntry])
	}
	if !create {
		return nil
	}
	p := &atomic.Pointer[cacheEntry]{}
	actual, _ := s.cache.LoadOrStore(token, p)
	return actual.(*atomic.Pointer[cacheEntry])
}

// AddToken creates an empty book for a newly tracked token. Idempotent.
func (s *Store) AddToken(token string) {
	s.mu.Lock()
	if _, exists := s.books[token]; exists {
		s.mu.Unlock()
		return
	}
	s.books[token] = newTokenBook()
	count := len(s.books)
	s.mu.Unlock()
	TrackedTokens.Set(float64(count))
}

// RemoveToken destroys a token's book and cache entry.
func (s *Store) RemoveToken(token string) {
	s.mu.Lock()
	delete(s.books, token)
	count := len(s.books)
	s.mu.Unlock()
	s.cache.Delete(token)
	TrackedTokens.Set(float64(count))
}

func (s *Store) getBook(token string) (*tokenBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[token]
	return b, ok
}

func (s *Store) writeCache(token string, bp BestPrices) {
	if bp.BestAsk <= 0 {
		return
	}
	ptr := s.cachePtr(token, true)
	ptr.Store(&cacheEntry{prices: bp})
}

// ApplySnapshot replaces both sides of a token's book atomically,
// dropping zero-size levels. Returns the resulting bests, or ok=false
// if the token is unknown. Idempotent.
func (s *Store) ApplySnapshot(token string, asks, bids []Level) (bp BestPrices, ok bool) {
	b, exists := s.getBook(token)
	if !exists {
		UnknownTokenDropsTotal.Inc()
		return BestPrices{}, false
	}
	SnapshotsAppliedTotal.Inc()

	b.mu.Lock()
	b.asks = make(map[int64]float64, len(asks))
	b.bids = make(map[int64]float64, len(bids))
	for _, lvl := range asks {
		if lvl.Size > 0 {
			b.asks[PriceKey(lvl.Price)] = lvl.Size
		}
	}
	for _, lvl := range bids {
		if lvl.Size > 0 {
			b.bids[PriceKey(lvl.Price)] = lvl.Size
		}
	}
	b.rescanAsks()
	b.rescanBids()
	bp = b.best()
	b.mu.Unlock()

	s.writeCache(token, bp)
	return bp, true
}

// Level is one (price, size) book level.
type Level struct {
	Price float64
	Size  float64
}

// Change is one (price, is_ask, size) level mutation; size == 0 erases
// the level.
type Change struct {
	Price float64
	IsAsk bool
	Size  float64
}

// ApplyChanges applies a batch of level mutations in order, then
// returns the resulting bests. ok=false if the token is unknown.
func (s *Store) ApplyChanges(token string, changes []Change) (bp BestPrices, ok bool) {
	b, exists := s.getBook(token)
	if !exists {
		UnknownTokenDropsTotal.Inc()
		return BestPrices{}, false
	}
	ChangesAppliedTotal.Add(float64(len(changes)))

	b.mu.Lock()
	for _, c := range changes {
		b.setLevel(PriceKey(c.Price), c.Size, c.IsAsk)
	}
	bp = b.best()
	b.mu.Unlock()

	s.writeCache(token, bp)
	return bp, true
}

// BestPrices is a lock-free cache read. ok=false if the token has never
// had a cache entry written.
func (s *Store) BestPrices(token string) (BestPrices, bool) {
	ptr := s.cachePtr(token, false)
	if ptr == nil {
		return BestPrices{}, false
	}
	entry := ptr.Load()
	if entry == nil {
		return BestPrices{}, false
	}
	return entry.prices, true
}

// SpreadInputs returns (yesAsk, noAsk, yesBid, noBid) only when both
// tokens' cached best-asks are strictly positive ("hydrated").
func (s *Store) SpreadInputs(yesToken, noToken string) (yesAsk, noAsk, yesBid, noBid float64, hydrated bool) {
	yp, ok := s.BestPrices(yesToken)
	if !ok || yp.BestAsk <= 0 {
		return 0, 0, 0, 0, false
	}
	np, ok := s.BestPrices(noToken)
	if !ok || np.BestAsk <= 0 {
		return 0, 0, 0, 0, false
	}
	return yp.BestAsk, np.BestAsk, yp.BestBid, np.BestBid, true
}

// TokenCount returns the number of tracked token books.
func (s *Store) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}
