package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd is the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "etl",
	Short: "Market data ETL for the NSE candle lake",
	Long: `Stock ETL

Extracts intraday OHLCV candles from the Kite Connect API, cleans and
validates them, and loads date-partitioned parquet datasets into a local
data lake with an optional S3 mirror.

Usage:
  go run ./cmd/etl [command]

Examples:
  go run ./cmd/etl run fno --date 2025-06-17
  go run ./cmd/etl run equity
  go run ./cmd/etl backfill fno --from 2025-06-01 --to 2025-06-17
  go run ./cmd/etl scheduler start
  go run ./cmd/etl partitions`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
