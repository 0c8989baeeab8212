package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "pmspread",
	Short: "Prediction-market spread window detector",
	Long: `pmspread ingests a live binary-prediction-market feed, maintains
per-token order books, and detects and classifies arbitrage-spread
windows (yes_ask + no_ask < 1.0).

It does not trade. Detected windows are handed to external consumers —
a durable storage writer and a read-only debug HTTP surface — for
whatever downstream decision a consumer wants to make.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Best-effort: a missing .env is normal in production, where
	// configuration comes from the real environment instead.
	_ = godotenv.Load()
}
