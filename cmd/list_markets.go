package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbwatch/pmspread/internal/catalog"
	"github.com/arbwatch/pmspread/pkg/config"
	"github.com/arbwatch/pmspread/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listMarketsCmd = &cobra.Command{
	Use:   "list-markets",
	Short: "List active markets from the Gamma catalog",
	Long:  `Fetches and displays active markets from the Polymarket Gamma API for debugging purposes.`,
	RunE:  runListMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listMarketsCmd)
	listMarketsCmd.Flags().IntP("limit", "l", 20, "Maximum number of markets to fetch")
	listMarketsCmd.Flags().BoolP("verbose", "v", false, "Show detailed market information")
	listMarketsCmd.Flags().StringP("sort", "s", "volume24hr", "Sort by: volume24hr, createdAt, endDate")
}

func runListMarkets(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

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

	limit, _ := cmd.Flags().GetInt("limit")
	verbose, _ := cmd.Flags().GetBool("verbose")
	sortBy, _ := cmd.Flags().GetString("sort")

	if err := sortMarketsInPlace(nil, sortBy); err != nil {
		return err
	}

	client := catalog.NewClient(cfg.CatalogURL, logger)

	fmt.Printf("Fetching up to %d active markets...\n\n", limit)

	markets, err := client.FetchActiveMarkets(ctx, limit, 0)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}

	if len(markets) == 0 {
		fmt.Println("No active markets found.")
		return nil
	}

	if err := sortMarketsInPlace(markets, sortBy); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SLUG\tQUESTION\tTOKENS\n")
	fmt.Fprintf(w, "----\t--------\t------\n")

	for i := range markets {
		market := &markets[i]

		yesToken, noToken, ok := market.YesNoTokens()

		tokensStatus := "✓"
		if !ok {
			tokensStatus = "✗ (missing YES/NO)"
		}

		question := market.Question
		if len(question) > 60 {
			question = question[:57] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", market.Slug, question, tokensStatus)

		if verbose {
			fmt.Fprintf(w, "\tID: %s\n", market.ID)
			fmt.Fprintf(w, "\tClosed: %v, Active: %v\n", market.Closed, market.Active)
			fmt.Fprintf(w, "\tVolume24h: %.2f, Liquidity: %.2f\n", market.Volume24hr, market.Liquidity)
			if ok {
				fmt.Fprintf(w, "\tYES Token: %s\n", yesToken)
				fmt.Fprintf(w, "\tNO Token: %s\n", noToken)
			}
			fmt.Fprintf(w, "\n")
		}
	}

	w.Flush()

	fmt.Printf("\nTotal: %d markets\n", len(markets))

	return nil
}

// sortMarketsInPlace validates sortBy and, when markets is non-nil,
// sorts it in place by the requested field: volume24hr and createdAt
// descending, endDate ascending (soonest expiry first). Passing a nil
// slice validates the flag up front before the network round trip.
func sortMarketsInPlace(markets []types.Market, sortBy string) error {
	switch sortBy {
	case "volume24hr":
		sort.SliceStable(markets, func(i, j int) bool { return markets[i].Volume24hr > markets[j].Volume24hr })
	case "createdAt":
		sort.SliceStable(markets, func(i, j int) bool { return markets[i].CreatedAt.After(markets[j].CreatedAt) })
	case "endDate":
		sort.SliceStable(markets, func(i, j int) bool { return markets[i].EndDate.Before(markets[j].EndDate) })
	default:
		return fmt.Errorf("invalid sort option: %s. Valid options: volume24hr, createdAt, endDate", sortBy)
	}
	return nil
}
