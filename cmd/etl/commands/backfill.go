package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kamal2131/stock-etl-airflow/internal/pipeline"
)

var (
	backfillFrom      string
	backfillTo        string
	backfillOverwrite bool
)

// backfillCmd re-runs a pipeline over a date range
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Run a pipeline over a date range",
	Long: `Runs a pipeline for every weekday in [--from, --to].

Existing partitions are skipped unless --overwrite is set, so a backfill
can resume after interruption without re-fetching finished days.

Example:
  go run ./cmd/etl backfill fno --from 2025-06-01 --to 2025-06-17
  go run ./cmd/etl backfill equity --from 2025-06-01 --to 2025-06-17 --overwrite`,
}

var backfillFNOCmd = &cobra.Command{
	Use:   "fno",
	Short: "Backfill the derivatives pipeline",
	RunE:  backfillFNO,
}

var backfillEquityCmd = &cobra.Command{
	Use:   "equity",
	Short: "Backfill the equity pipeline",
	RunE:  backfillEquity,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	backfillCmd.AddCommand(backfillFNOCmd)
	backfillCmd.AddCommand(backfillEquityCmd)

	backfillCmd.PersistentFlags().StringVar(&backfillFrom, "from", "", "start date (YYYY-MM-DD)")
	backfillCmd.PersistentFlags().StringVar(&backfillTo, "to", "", "end date (YYYY-MM-DD)")
	backfillCmd.PersistentFlags().BoolVar(&backfillOverwrite, "overwrite", false, "replace existing partitions")
	backfillCmd.MarkPersistentFlagRequired("from")
	backfillCmd.MarkPersistentFlagRequired("to")
}

// backfillDates expands the flag range into weekdays, oldest first.
func backfillDates() ([]time.Time, error) {
	from, err := time.ParseInLocation("2006-01-02", backfillFrom, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --from date %q", backfillFrom)
	}
	to, err := time.ParseInLocation("2006-01-02", backfillTo, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --to date %q", backfillTo)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("--to is before --from")
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func backfillFNO(cmd *cobra.Command, args []string) error {
	dates, err := backfillDates()
	if err != nil {
		return err
	}

	a, err := initApp(backfillOverwrite)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("Backfilling fno pipeline: %d trading days\n", len(dates))

	var failures int
	for i, date := range dates {
		for _, underlying := range a.config.ETL.Underlyings {
			report, err := a.pipeline.RunFNO(cmd.Context(), underlying, date, time.Time{})
			if err != nil {
				return err
			}
			fmt.Printf("  [%d/%d] %s %s: %s (%d rows)\n",
				i+1, len(dates), date.Format("2006-01-02"), underlying, report.Status, report.RowCount)
			if report.Status != pipeline.StatusSuccess {
				failures++
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("backfill finished with %d failed runs", failures)
	}
	fmt.Println("Backfill complete")
	return nil
}

func backfillEquity(cmd *cobra.Command, args []string) error {
	dates, err := backfillDates()
	if err != nil {
		return err
	}

	a, err := initApp(backfillOverwrite)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("Backfilling equity pipeline: %d trading days\n", len(dates))

	var failures int
	for i, date := range dates {
		report, err := a.pipeline.RunEquity(cmd.Context(), nil, a.config.ETL.MaxInstruments, date)
		if err != nil {
			return err
		}
		fmt.Printf("  [%d/%d] %s: %s (%d rows)\n",
			i+1, len(dates), date.Format("2006-01-02"), report.Status, report.RowCount)
		if report.Status != pipeline.StatusSuccess {
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("backfill finished with %d failed runs", failures)
	}
	fmt.Println("Backfill complete")
	return nil
}
