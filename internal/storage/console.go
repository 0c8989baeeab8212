package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/pkg/types"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreWindowEvent pretty-prints a closed spread window to console.
func (c *ConsoleStorage) StoreWindowEvent(ctx context.Context, ev *types.WindowCloseEvent) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("SPREAD WINDOW CLOSED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:       %s\n", ev.ID)
	fmt.Printf("Market:   %s\n", ev.MarketID)
	fmt.Printf("Opened:   %s\n", time.Unix(0, ev.OpenedAtNS).Format("2006-01-02 15:04:05.000"))
	fmt.Printf("Closed:   %s\n", time.Unix(0, ev.ClosedAtNS).Format("2006-01-02 15:04:05.000"))
	fmt.Printf("Duration: %d ms\n", ev.DurationMS)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Yes Ask:    %.4f\n", ev.YesAsk)
	fmt.Printf("  No Ask:     %.4f\n", ev.NoAsk)
	fmt.Printf("  Spread:     %.4f (%s)\n", ev.Spread, ev.SpreadCategory)
	fmt.Printf("  Duration:   %s\n", ev.OpenDurationClass)
	fmt.Printf("  CloseReason:%s\n", ev.CloseReason)
	fmt.Printf("  Priority:   %d\n", ev.OpportunityClass)
	fmt.Printf("  ticks=%d trade_fired=%t volume_ticks=%d price_shifted=%t\n",
		ev.Observables.TickCount, ev.Observables.TradeEventFired,
		ev.Observables.VolumeChangeTicks, ev.Observables.PriceShifted)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
