package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application, stopping producers
// before the consumers draining their output so no in-flight window
// event is lost.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal the catalog poll loop and any consumer
	// reading a.ctx.
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.shutdownHTTPServer(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.watcher.Close()
	a.controller.Close()

	a.ingestor.Close()

	// Closing the detector closes its window channel, which ends the
	// fan-out goroutine's range loop below.
	a.detector.Close()

	// Wait for the HTTP server, window fan-out, and catalog poll
	// goroutines to finish before tearing down the things they write to.
	a.wg.Wait()

	if err := a.shutdownStorage(); err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.cache.Close()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) shutdownHTTPServer(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}

func (a *App) shutdownStorage() error {
	return a.storage.Close()
}
