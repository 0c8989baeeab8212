package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/book"
	"github.com/arbwatch/pmspread/internal/catalog"
	"github.com/arbwatch/pmspread/internal/detector"
	"github.com/arbwatch/pmspread/internal/feed"
	"github.com/arbwatch/pmspread/internal/registry"
	"github.com/arbwatch/pmspread/pkg/config"
	"github.com/arbwatch/pmspread/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchBookCmd = &cobra.Command{
	Use:   "watch-book <market-slug>",
	Short: "Watch a single market's book and live window classifications",
	Long: `Resolves a market by slug, subscribes to its two token books on
the live feed, and renders a refreshing table of its open spread
windows and their classifier verdicts. Exits on Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatchBook,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchBookCmd)
}

// watchRow is one row of the live table: either a still-open window
// (closed == nil) or a closed one carrying its classifier verdict.
type watchRow struct {
	open   types.WindowOpenEvent
	closed *types.WindowCloseEvent
}

func runWatchBook(cmd *cobra.Command, args []string) error {
	slug := args[0]

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	market, err := resolveMarketBySlug(ctx, cfg, logger, slug)
	if err != nil {
		return err
	}

	yesToken, noToken, ok := market.YesNoTokens()
	if !ok {
		return fmt.Errorf("market %q has no resolvable YES/NO token pair", slug)
	}

	bookStore := book.New(logger)
	reg := registry.New(bookStore, logger)
	if !reg.AddMarket(market) {
		return fmt.Errorf("market %q already tracked or rejected", slug)
	}

	ingestor := feed.New(feed.Config{
		URL:               cfg.FeedURL,
		DialTimeout:       cfg.FeedDialTimeout,
		PongTimeout:       cfg.FeedPongTimeout,
		PingInterval:      cfg.FeedPingInterval,
		MessageBufferSize: cfg.FeedBufferSize,
		Logger:            logger,
	}, bookStore)

	if err := ingestor.Start(); err != nil {
		return fmt.Errorf("start feed ingestor: %w", err)
	}
	defer ingestor.Close()

	if err := ingestor.Subscribe(ctx, []string{yesToken, noToken}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	det := detector.New(detector.Config{
		Registry:         reg,
		PriceIn:          ingestor.PriceChanges(),
		TradeIn:          ingestor.Trades(),
		WindowBufferSize: cfg.WindowChannelBufferSize,
		Logger:           logger,
	})
	det.Start()
	defer det.Close()

	fmt.Printf("Watching %s (%s)\nyes=%s no=%s\nCtrl-C to exit.\n\n", market.Slug, market.Question, yesToken, noToken)

	rows := make(map[string]*watchRow)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-det.Windows():
			applyWindowEvent(rows, ev)
		case <-ticker.C:
			renderTable(market.Slug, rows)
		}
	}
}

func applyWindowEvent(rows map[string]*watchRow, ev types.WindowEvent) {
	switch ev.Kind {
	case types.WindowEventOpen:
		if ev.Open != nil {
			rows[ev.Open.ID] = &watchRow{open: *ev.Open}
		}
	case types.WindowEventClose:
		if ev.Close != nil {
			rows[ev.Close.ID] = &watchRow{open: ev.Close.WindowOpenEvent, closed: ev.Close}
		}
	}
}

func renderTable(slug string, rows map[string]*watchRow) {
	fmt.Print("\033[H\033[2J")
	fmt.Printf("%s — %d windows observed\n\n", slug, len(rows))
	fmt.Printf("%-8s %-8s %-8s %-10s %-12s %-18s %s\n", "YESASK", "NOASK", "SPREAD", "STATE", "DURATION", "CLOSE-REASON", "PRIORITY")

	for _, r := range rows {
		state := "open"
		duration := "-"
		reason := "-"
		priority := "-"
		if r.closed != nil {
			state = "closed"
			duration = fmt.Sprintf("%dms", r.closed.DurationMS)
			reason = string(r.closed.CloseReason)
			if reason == "" {
				reason = "-"
			}
			priority = fmt.Sprintf("%d", r.closed.OpportunityClass)
		}
		fmt.Printf("%-8.4f %-8.4f %-8.4f %-10s %-12s %-18s %s\n",
			r.open.YesAsk, r.open.NoAsk, r.open.Spread, state, duration, reason, priority)
	}
}

// resolveMarketBySlug paginates the catalog for an exact slug match;
// there is no single-market lookup endpoint on the Gamma API.
func resolveMarketBySlug(ctx context.Context, cfg *config.Config, logger *zap.Logger, slug string) (types.Market, error) {
	client := catalog.NewClient(cfg.CatalogURL, logger)
	const maxPages = 20
	matches, err := client.FetchBySlugPrefix(ctx, slug, maxPages)
	if err != nil {
		return types.Market{}, fmt.Errorf("fetch markets: %w", err)
	}
	for _, m := range matches {
		if strings.EqualFold(m.Slug, slug) {
			return m, nil
		}
	}
	return types.Market{}, fmt.Errorf("no active market found with slug %q", slug)
}
