// Package feed owns the websocket transport to the market data feed: it
// decodes raw frames, applies them to the Book Store, and forwards
// price/trade events downstream to the Spread Detector.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/book"
	"github.com/arbwatch/pmspread/pkg/types"
)

// subscribeChunkSize and subscribeChunkDelay bound the initial
// subscription burst: no more than 500 token ids per wire frame, with
// 50ms between chunks.
const (
	subscribeChunkSize  = 500
	subscribeChunkDelay = 50 * time.Millisecond
)

// diagnosticsInterval controls how often cumulative counters are logged.
const diagnosticsInterval = 500

// Config holds Ingestor configuration.
type Config struct {
	URL               string
	DialTimeout       time.Duration
	PongTimeout       time.Duration
	PingInterval      time.Duration
	MessageBufferSize int
	Logger            *zap.Logger
}

// Ingestor owns the websocket connection to the market data feed. It is
// the sole writer of the Book Store's token-level mutations and the
// sole source of PriceChangeMsg/TradeMsg events.
type Ingestor struct {
	url    string
	logger *zap.Logger
	config Config

	store   *book.Store
	decoder *Decoder
	recon   *Reconnector

	priceChan chan PriceChangeMsg
	tradeChan chan TradeMsg

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.RWMutex
	conn   *websocket.Conn

	subMu      sync.Mutex
	subscribed map[string]bool

	framesSeen int64
}

// New creates a Feed Ingestor bound to a Book Store.
func New(cfg Config, store *book.Store) *Ingestor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Ingestor{
		url:        cfg.URL,
		logger:     cfg.Logger,
		config:     cfg,
		store:      store,
		decoder:    NewDecoder(cfg.Logger),
		recon:      NewReconnector(cfg.Logger),
		priceChan:  make(chan PriceChangeMsg, cfg.MessageBufferSize),
		tradeChan:  make(chan TradeMsg, cfg.MessageBufferSize),
		ctx:        ctx,
		cancel:     cancel,
		subscribed: make(map[string]bool),
	}
}

// PriceChanges returns the channel of downstream price updates.
func (ing *Ingestor) PriceChanges() <-chan PriceChangeMsg { return ing.priceChan }

// Trades returns the channel of downstream trade events.
func (ing *Ingestor) Trades() <-chan TradeMsg { return ing.tradeChan }

// Start dials the feed and launches the read, ping, and reconnect loops.
func (ing *Ingestor) Start() error {
	if err := ing.connect(ing.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	ing.wg.Add(3)
	go ing.readLoop()
	go ing.pingLoop()
	go ing.reconnectLoop()

	return nil
}

func (ing *Ingestor) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: ing.config.DialTimeout}

	ing.logger.Info("feed-connecting", zap.String("url", ing.url))

	conn, _, err := dialer.DialContext(ctx, ing.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	ing.connMu.Lock()
	ing.conn = conn
	ing.connMu.Unlock()

	ActiveConnections.Set(1)
	ing.logger.Info("feed-connected")
	return nil
}

// Subscribe marks token ids as subscribed and sends a wire subscribe
// frame; the tokens' books are created by the Market Registry, not
// here. The initial burst is chunked into groups of at
// most subscribeChunkSize ids, subscribeChunkDelay apart; subsequent
// additions to an already-open connection are sent as a single dynamic
// subscribe frame.
func (ing *Ingestor) Subscribe(ctx context.Context, tokenIDs []string) error {
	if len(tokenIDs) == 0 {
		return nil
	}

	ing.subMu.Lock()
	isInitial := len(ing.subscribed) == 0
	fresh := make([]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		if !ing.subscribed[id] {
			ing.subscribed[id] = true
			fresh = append(fresh, id)
		}
	}
	ing.subMu.Unlock()

	if len(fresh) == 0 {
		return nil
	}

	if isInitial {
		for start := 0; start < len(fresh); start += subscribeChunkSize {
			end := start + subscribeChunkSize
			if end > len(fresh) {
				end = len(fresh)
			}
			if err := ing.writeJSON(types.SubscribeFrame{AssetsIDs: fresh[start:end], Type: "market"}); err != nil {
				return fmt.Errorf("write subscribe frame: %w", err)
			}
			if end < len(fresh) {
				select {
				case <-time.After(subscribeChunkDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return nil
	}

	if err := ing.writeJSON(types.DynamicSubscribeFrame{AssetsIDs: fresh, Operation: "subscribe"}); err != nil {
		return fmt.Errorf("write dynamic subscribe frame: %w", err)
	}
	return nil
}

// Unsubscribe sends a wire unsubscribe frame for the given token ids.
// Callers must resolve the token ids from the Market Registry before
// removing the market, since the registry has no reverse path back to
// a token id once the market entry is gone.
func (ing *Ingestor) Unsubscribe(ctx context.Context, tokenIDs []string) error {
	if len(tokenIDs) == 0 {
		return nil
	}

	ing.subMu.Lock()
	for _, id := range tokenIDs {
		delete(ing.subscribed, id)
	}
	ing.subMu.Unlock()

	if err := ing.writeJSON(types.UnsubscribeFrame{AssetsIDs: tokenIDs, Operation: "unsubscribe"}); err != nil {
		return fmt.Errorf("write unsubscribe frame: %w", err)
	}
	return nil
}

func (ing *Ingestor) writeJSON(v interface{}) error {
	ing.connMu.RLock()
	conn := ing.conn
	ing.connMu.RUnlock()
	if conn == nil {
		return fmt.Errorf("no active connection")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (ing *Ingestor) readLoop() {
	defer ing.wg.Done()

	for {
		select {
		case <-ing.ctx.Done():
			return
		default:
		}

		ing.connMu.RLock()
		conn := ing.conn
		ing.connMu.RUnlock()
		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			ing.logger.Warn("feed-read-error", zap.Error(err))
			ing.connMu.Lock()
			if ing.conn == conn {
				ing.conn = nil
			}
			ing.connMu.Unlock()
			ActiveConnections.Set(0)
			return
		}

		ing.handleFrame(raw)
	}
}

func (ing *Ingestor) handleFrame(raw []byte) {
	FramesTotal.Inc()

	for _, pf := range ing.decoder.Decode(raw) {
		switch pf.Kind {
		case types.FrameBookSnapshot:
			SnapshotsTotal.Inc()
			asks := toBookLevels(pf.Asks)
			bids := toBookLevels(pf.Bids)
			bp, ok := ing.store.ApplySnapshot(pf.AssetID, asks, bids)
			if ok {
				ing.emitPrice(pf.AssetID, bp)
			}
		case types.FrameBookPriceChange:
			PriceChangesTotal.Inc()
			ch := pf.Change
			bp, ok := ing.store.ApplyChanges(pf.AssetID, []book.Change{{
				Price: ch.Price,
				IsAsk: ch.IsAsk,
				Size:  ch.Size,
			}})
			if ok {
				if ch.HasServerBest && ch.ServerBestAsk > 0 && bp.BestAsk > 0 {
					if diff := bp.BestAsk - ch.ServerBestAsk; diff > 0.001 || diff < -0.001 {
						ServerBestDivergenceTotal.Inc()
					}
				}
				ing.emitPrice(pf.AssetID, bp)
			}
		case types.FrameLastTradePrice:
			TradesTotal.Inc()
			ing.emitTrade(pf.AssetID, pf.TradePrice)
		}
	}

	ing.framesSeen++
	if ing.framesSeen%diagnosticsInterval == 0 {
		ing.logger.Info("feed-diagnostics",
			zap.Int64("frames-seen", ing.framesSeen))
	}
}

func (ing *Ingestor) emitPrice(token string, bp book.BestPrices) {
	if bp.BestAsk <= 0 {
		DroppedEmptyAskTotal.Inc()
		return
	}
	msg := PriceChangeMsg{TokenID: token, BestAsk: bp.BestAsk, BestBid: bp.BestBid, AtNS: time.Now().UnixNano()}
	select {
	case ing.priceChan <- msg:
		RoutedPriceMsgsTotal.Inc()
	default:
		DownstreamChannelFullTotal.WithLabelValues("price").Inc()
	}
}

func (ing *Ingestor) emitTrade(token string, price float64) {
	msg := TradeMsg{TokenID: token, Price: price, AtNS: time.Now().UnixNano()}
	select {
	case ing.tradeChan <- msg:
	default:
		DownstreamChannelFullTotal.WithLabelValues("trade").Inc()
	}
}

func toBookLevels(in []types.Level) []book.Level {
	out := make([]book.Level, len(in))
	for i, lvl := range in {
		out[i] = book.Level{Price: lvl.Price, Size: lvl.Size}
	}
	return out
}

func (ing *Ingestor) pingLoop() {
	defer ing.wg.Done()

	ticker := time.NewTicker(ing.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ing.ctx.Done():
			return
		case <-ticker.C:
			ing.connMu.RLock()
			conn := ing.conn
			ing.connMu.RUnlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				ing.logger.Warn("feed-ping-error", zap.Error(err))
			}
		}
	}
}

func (ing *Ingestor) reconnectLoop() {
	defer ing.wg.Done()

	for {
		select {
		case <-ing.ctx.Done():
			return
		default:
		}

		ing.connMu.RLock()
		connected := ing.conn != nil
		ing.connMu.RUnlock()
		if connected {
			time.Sleep(time.Second)
			continue
		}

		ing.logger.Warn("feed-connection-lost")

		err := ing.recon.Reconnect(ing.ctx, ing.connect)
		if err != nil {
			if err == context.Canceled {
				return
			}
			continue
		}

		if err := ing.resubscribeAll(); err != nil {
			ing.logger.Error("feed-resubscribe-failed", zap.Error(err))
			continue
		}

		ing.wg.Add(1)
		go ing.readLoop()
	}
}

func (ing *Ingestor) resubscribeAll() error {
	ing.subMu.Lock()
	tokenIDs := make([]string, 0, len(ing.subscribed))
	for id := range ing.subscribed {
		tokenIDs = append(tokenIDs, id)
	}
	ing.subMu.Unlock()

	if len(tokenIDs) == 0 {
		return nil
	}
	return ing.writeJSON(types.SubscribeFrame{AssetsIDs: tokenIDs, Type: "market"})
}

// Close shuts the Ingestor down, closing the underlying connection and
// both downstream channels.
func (ing *Ingestor) Close() {
	ing.cancel()

	ing.connMu.RLock()
	if ing.conn != nil {
		ing.conn.Close()
	}
	ing.connMu.RUnlock()

	ing.wg.Wait()

	close(ing.priceChan)
	close(ing.tradeChan)
	ActiveConnections.Set(0)
}
