package app

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/subscription"
	"github.com/arbwatch/pmspread/pkg/types"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("feed-url", a.cfg.FeedURL),
		zap.String("catalog-url", a.cfg.CatalogURL),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give the HTTP server a moment to bind before the rest of the
	// pipeline starts logging against it.
	time.Sleep(100 * time.Millisecond)

	a.controller.Start()
	a.detector.Start()
	a.watcher.Start()

	if err := a.ingestor.Start(); err != nil {
		return fmt.Errorf("start feed ingestor: %w", err)
	}

	a.wg.Add(1)
	go a.runWindowFanout()

	a.wg.Add(1)
	go a.runCatalogPoll()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// runWindowFanout reads closed spread windows off the detector's single
// output channel and hands each one to both the durable storage writer
// and the debug HTTP surface's recent-window buffer.
func (a *App) runWindowFanout() {
	defer a.wg.Done()
	for ev := range a.detector.Windows() {
		if ev.Kind != types.WindowEventClose || ev.Close == nil {
			continue
		}

		a.recorder.Record(*ev.Close)

		if err := a.storage.StoreWindowEvent(a.ctx, ev.Close); err != nil {
			a.logger.Error("store-window-event-failed", zap.Error(err), zap.String("window-id", ev.Close.ID))
		}
	}
}

// runCatalogPoll periodically sweeps the Universe Fetcher for qualifying
// markets and subscribes to any not already known to the Market
// Registry. The Pinned-Market Watcher covers the narrower always-on
// slug-prefix set on its own faster tick; this loop covers the broader
// catalog.
func (a *App) runCatalogPoll() {
	defer a.wg.Done()

	a.pollCatalogOnce()

	ticker := time.NewTicker(a.cfg.CatalogRefetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.pollCatalogOnce()
		}
	}
}

func (a *App) pollCatalogOnce() {
	markets, err := a.catalogService.FetchQualifying(a.ctx)
	if err != nil {
		a.logger.Error("catalog-fetch-failed", zap.Error(err))
		return
	}

	if a.opts.SingleMarket != "" {
		markets = filterBySlug(markets, a.opts.SingleMarket)
	}

	fresh := make([]types.Market, 0, len(markets))
	for _, m := range markets {
		if _, _, ok := a.registry.TokenIDsForMarket(m.ID); ok {
			continue
		}
		fresh = append(fresh, m)
	}

	if len(fresh) == 0 {
		return
	}

	a.logger.Info("catalog-poll-new-markets", zap.Int("count", len(fresh)))
	subscription.TrySend(a.controlCh, subscription.ControlMsg{Subscribe: &subscription.SubscribeMsg{Markets: fresh}}, a.logger)
}

func filterBySlug(markets []types.Market, slug string) []types.Market {
	out := make([]types.Market, 0, 1)
	for _, m := range markets {
		if strings.EqualFold(m.Slug, slug) {
			out = append(out, m)
		}
	}
	return out
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
