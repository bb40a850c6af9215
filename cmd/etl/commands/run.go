package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/internal/pipeline"
)

var (
	runDate      string
	runOverwrite bool
	runExpiry    string
	runSymbols   []string
)

// runCmd groups the single-date pipeline runs
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a pipeline for one trade date",
	Long: `Runs one pipeline end to end for a single trade date.

Subcommands:
  fno     - derivatives pipeline for every configured underlying
  equity  - Nifty 500 equity pipeline

Example:
  go run ./cmd/etl run fno --date 2025-06-17
  go run ./cmd/etl run equity --overwrite`,
}

var runFNOCmd = &cobra.Command{
	Use:   "fno",
	Short: "Run the derivatives pipeline",
	RunE:  runFNO,
}

var runEquityCmd = &cobra.Command{
	Use:   "equity",
	Short: "Run the equity pipeline",
	RunE:  runEquity,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runFNOCmd)
	runCmd.AddCommand(runEquityCmd)

	runCmd.PersistentFlags().StringVar(&runDate, "date", "", "trade date (YYYY-MM-DD, default today)")
	runCmd.PersistentFlags().BoolVar(&runOverwrite, "overwrite", false, "replace existing partitions")
	runFNOCmd.Flags().StringVar(&runExpiry, "expiry", "", "restrict contracts to one expiry (YYYY-MM-DD)")
	runEquityCmd.Flags().StringSliceVar(&runSymbols, "symbols", nil, "explicit symbol list instead of the index universe")
}

// parseExpiry resolves the optional --expiry flag; zero means no filter.
func parseExpiry(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	expiry, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry %q, expected YYYY-MM-DD", value)
	}
	return expiry, nil
}

// parseTradeDate resolves the --date flag, defaulting to today.
func parseTradeDate(value string) (time.Time, error) {
	if value == "" {
		return market.TradeDay(time.Now()), nil
	}
	date, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return date, nil
}

func runFNO(cmd *cobra.Command, args []string) error {
	tradeDate, err := parseTradeDate(runDate)
	if err != nil {
		return err
	}
	expiry, err := parseExpiry(runExpiry)
	if err != nil {
		return err
	}

	a, err := initApp(runOverwrite)
	if err != nil {
		return err
	}
	defer a.close()

	var failed int
	for _, underlying := range a.config.ETL.Underlyings {
		PrintRunHeader("fno pipeline", underlying, tradeDate.Format("2006-01-02"))

		report, err := a.pipeline.RunFNO(cmd.Context(), underlying, tradeDate, expiry)
		if err != nil {
			return err
		}
		PrintRunReport(report)

		if report.Status != pipeline.StatusSuccess {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d underlyings did not succeed", failed, len(a.config.ETL.Underlyings))
	}
	return nil
}

func runEquity(cmd *cobra.Command, args []string) error {
	tradeDate, err := parseTradeDate(runDate)
	if err != nil {
		return err
	}

	a, err := initApp(runOverwrite)
	if err != nil {
		return err
	}
	defer a.close()

	PrintRunHeader("equity pipeline", "nifty500", tradeDate.Format("2006-01-02"))

	report, err := a.pipeline.RunEquity(cmd.Context(), runSymbols, a.config.ETL.MaxInstruments, tradeDate)
	if err != nil {
		return err
	}
	PrintRunReport(report)

	if report.Status != pipeline.StatusSuccess {
		return fmt.Errorf("equity pipeline finished with status %s", report.Status)
	}
	return nil
}
