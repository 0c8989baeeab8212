// Package detector implements the Spread Detector: a per-market window
// state machine consuming price and trade ticks and emitting window
// open/close events.
package detector

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/classify"
	"github.com/arbwatch/pmspread/internal/feed"
	"github.com/arbwatch/pmspread/internal/registry"
	"github.com/arbwatch/pmspread/pkg/types"
)

// driftThreshold is the minimum ask-price delta counted as a genuine
// drift tick rather than floating-point noise.
const driftThreshold = 1e-6

// readinessDelay is how long after Start to log the one-shot hydration
// readiness snapshot.
const readinessDelay = 10 * time.Second

// diagnosticsInterval is the rolling diagnostics tick.
const diagnosticsInterval = 30 * time.Second

// priceEntry is the detector-local, strictly-in-order cache of a
// token's best prices. It is written only from the price channel, never
// read from the shared Book Store, so a later store write can never
// overtake the message currently being processed.
type priceEntry struct {
	bestAsk float64
	bestBid float64
}

// activeWindow is a market's in-flight pending-or-open arbitrage window.
type activeWindow struct {
	id      string
	pending bool

	tickCount  int
	openYesAsk float64
	openNoAsk  float64
	openSpread float64
	openedAtNS int64
	openedAt   time.Time

	prevYesAsk float64
	prevNoAsk  float64

	tradeEventFired   bool
	volumeChangeTicks int
	priceShiftTicks   int
}

// Config holds Detector configuration.
type Config struct {
	Registry         *registry.Registry
	PriceIn          <-chan feed.PriceChangeMsg
	TradeIn          <-chan feed.TradeMsg
	WindowBufferSize int
	Logger           *zap.Logger
}

// Detector is the Spread Detector. It owns no shared mutable state
// beyond reading the Market Registry for token-to-market resolution.
type Detector struct {
	registry *registry.Registry
	priceIn  <-chan feed.PriceChangeMsg
	tradeIn  <-chan feed.TradeMsg
	windowOut chan types.WindowEvent
	logger   *zap.Logger

	localCache map[string]priceEntry
	windows    map[string]*activeWindow

	diagPriceMsgs int
	diagOpens     int
	diagCloses    int
	diagTightest  float64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Spread Detector.
func New(cfg Config) *Detector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Detector{
		registry:   cfg.Registry,
		priceIn:    cfg.PriceIn,
		tradeIn:    cfg.TradeIn,
		windowOut:  make(chan types.WindowEvent, cfg.WindowBufferSize),
		logger:     cfg.Logger,
		localCache: make(map[string]priceEntry),
		windows:    make(map[string]*activeWindow),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Windows returns the channel of open/close window events.
func (d *Detector) Windows() <-chan types.WindowEvent { return d.windowOut }

// Start launches the detector's single consuming loop.
func (d *Detector) Start() {
	d.wg.Add(1)
	go d.run()
}

// Close stops the detector and closes the window channel.
func (d *Detector) Close() {
	d.cancel()
	d.wg.Wait()
	close(d.windowOut)
}

func (d *Detector) run() {
	defer d.wg.Done()

	readinessTimer := time.NewTimer(readinessDelay)
	defer readinessTimer.Stop()
	diagTicker := time.NewTicker(diagnosticsInterval)
	defer diagTicker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case msg, ok := <-d.priceIn:
			if !ok {
				return
			}
			d.handlePrice(msg)
		case msg, ok := <-d.tradeIn:
			if !ok {
				return
			}
			d.handleTrade(msg)
		case <-readinessTimer.C:
			d.logReadiness()
		case <-diagTicker.C:
			d.logDiagnostics()
		}
	}
}

func (d *Detector) logReadiness() {
	total := d.registry.MarketCount()
	hydrated := d.registry.HydratedMarketCount()
	ratio := 0.0
	if total > 0 {
		ratio = float64(hydrated) / float64(total)
	}
	HydratedReadyRatio.Set(ratio)
	d.logger.Info("detector-readiness",
		zap.Int("hydrated", hydrated),
		zap.Int("total", total))
}

func (d *Detector) logDiagnostics() {
	TightestSpread.Set(d.diagTightest)
	d.logger.Info("detector-diagnostics",
		zap.Int("price-msgs", d.diagPriceMsgs),
		zap.Int("windows-opened", d.diagOpens),
		zap.Int("windows-closed", d.diagCloses),
		zap.Int("active", len(d.windows)),
		zap.Float64("tightest-spread", d.diagTightest))
	d.diagPriceMsgs, d.diagOpens, d.diagCloses = 0, 0, 0
	d.diagTightest = 0
}

func (d *Detector) handlePrice(msg feed.PriceChangeMsg) {
	d.localCache[msg.TokenID] = priceEntry{bestAsk: msg.BestAsk, bestBid: msg.BestBid}
	d.diagPriceMsgs++
	PriceMsgsTotal.Inc()

	marketID, _, ok := d.registry.TokenRole(msg.TokenID)
	if !ok {
		return
	}
	yesTok, noTok, ok := d.registry.TokenIDsForMarket(marketID)
	if !ok {
		return
	}
	yesEntry, okY := d.localCache[yesTok]
	noEntry, okN := d.localCache[noTok]
	if !okY || !okN || yesEntry.bestAsk <= 0 || noEntry.bestAsk <= 0 {
		return
	}

	spread := 1.0 - (yesEntry.bestAsk + noEntry.bestAsk)
	d.step(marketID, yesEntry.bestAsk, noEntry.bestAsk, spread)
}

func (d *Detector) handleTrade(msg feed.TradeMsg) {
	marketID, _, ok := d.registry.TokenRole(msg.TokenID)
	if !ok {
		return
	}
	w, active := d.windows[marketID]
	if !active {
		return
	}
	if !w.tradeEventFired {
		w.tradeEventFired = true
		w.volumeChangeTicks = 1
	} else {
		w.volumeChangeTicks++
	}
}

func (d *Detector) step(marketID string, yesAsk, noAsk, spread float64) {
	w, active := d.windows[marketID]

	if !active {
		if spread <= 0 {
			return
		}
		now := time.Now()
		w = &activeWindow{
			id:              uuid.New().String(),
			pending:         true,
			tickCount:       1,
			openYesAsk:      yesAsk,
			openNoAsk:       noAsk,
			openSpread:      spread,
			openedAtNS:      now.UnixNano(),
			openedAt:        now,
			prevYesAsk:      yesAsk,
			prevNoAsk:       noAsk,
			priceShiftTicks: 1, // baseline tick always "drifts" against its own open prices
		}
		d.windows[marketID] = w
		d.trackTightest(spread)
		ActiveWindows.Set(float64(len(d.windows)))
		return
	}

	if spread > 0 {
		w.tickCount++
		d.driftUpdate(w, yesAsk, noAsk)
		if w.pending && w.tickCount >= classify.MinArbTicks {
			w.pending = false
			d.emitOpen(marketID, w)
		}
		d.trackTightest(spread)
		return
	}

	delete(d.windows, marketID)
	d.emitClose(marketID, w, time.Now())
	ActiveWindows.Set(float64(len(d.windows)))
}

func (d *Detector) driftUpdate(w *activeWindow, yesAsk, noAsk float64) {
	if math.Abs(yesAsk-w.prevYesAsk) > driftThreshold || math.Abs(noAsk-w.prevNoAsk) > driftThreshold {
		w.priceShiftTicks++
	}
	w.prevYesAsk, w.prevNoAsk = yesAsk, noAsk
}

func (d *Detector) trackTightest(spread float64) {
	if spread <= 0 {
		return
	}
	if d.diagTightest == 0 || spread < d.diagTightest {
		d.diagTightest = spread
	}
}

func (d *Detector) openEventFor(marketID string, w *activeWindow) types.WindowOpenEvent {
	return types.WindowOpenEvent{
		ID:             w.id,
		MarketID:       marketID,
		YesAsk:         w.openYesAsk,
		NoAsk:          w.openNoAsk,
		Spread:         w.openSpread,
		SpreadCategory: types.ClassifySpread(w.openSpread),
		OpenedAtNS:     w.openedAtNS,
	}
}

func (d *Detector) emitOpen(marketID string, w *activeWindow) {
	ev := d.openEventFor(marketID, w)
	d.diagOpens++
	WindowsOpenedTotal.Inc()
	d.send(types.WindowEvent{Kind: types.WindowEventOpen, Open: &ev})
}

func (d *Detector) emitClose(marketID string, w *activeWindow, closedAt time.Time) {
	obs := types.WindowObservables{
		TickCount:         w.tickCount,
		TradeEventFired:   w.tradeEventFired,
		VolumeChangeTicks: w.volumeChangeTicks,
		PriceShifted:      w.priceShiftTicks > 1,
	}
	openClass, closeReason, priority := classify.Classify(obs)

	ev := types.WindowCloseEvent{
		WindowOpenEvent:   d.openEventFor(marketID, w),
		ClosedAtNS:        closedAt.UnixNano(),
		DurationMS:        closedAt.Sub(w.openedAt).Milliseconds(),
		OpenDurationClass: openClass,
		CloseReason:       closeReason,
		OpportunityClass:  priority,
		Observables:       obs,
	}
	d.diagCloses++
	WindowsClosedTotal.Inc()
	d.send(types.WindowEvent{Kind: types.WindowEventClose, Close: &ev})
}

func (d *Detector) send(ev types.WindowEvent) {
	select {
	case d.windowOut <- ev:
	default:
		WindowChannelFullTotal.Inc()
		d.logger.Warn("window-channel-full")
	}
}
