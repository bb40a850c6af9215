package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kamal2131/stock-etl-airflow/internal/api"
	"github.com/Kamal2131/stock-etl-airflow/internal/api/handlers"
)

// schedulerCmd manages the scheduler daemon
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduler management",
	Long: `Starts the scheduler daemon or inspects its jobs.

The daemon runs the configured pipelines after market close on weekdays
and serves a status API on the configured port.

Subcommands:
  start   - start the scheduler daemon with the status API
  list    - list registered jobs
  run     - trigger a job immediately
  status  - show job execution statistics

Example:
  go run ./cmd/etl scheduler start
  go run ./cmd/etl scheduler run equity_pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  startScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Trigger a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution statistics",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func startScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Stock ETL Scheduler ===")

	a, err := initApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return err
	}

	sched.Start()

	fmt.Println("Scheduler started")
	fmt.Println("Registered jobs:")
	for _, jobName := range sched.JobNames() {
		fmt.Printf("  - %s\n", jobName)
	}

	// Status API alongside the scheduler.
	status := handlers.NewStatusHandler(sched, a.store, a.ledger, a.config, a.logger)
	server := api.New(a.config, a.logger, api.NewRouter(status, a.logger))

	go func() {
		if err := server.Start(); err != nil {
			a.logger.WithError(err).Error("Status API stopped")
		}
	}()
	fmt.Printf("Status API listening on :%s\n", a.config.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Status API shutdown failed")
	}
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := initApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return err
	}

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.JobNames() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := initApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return err
	}

	fmt.Printf("Running job: %s\n", jobName)
	if err := sched.TriggerJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// TriggerJob is fire-and-forget; poll history so the CLI exits with
	// the job's outcome.
	for {
		time.Sleep(time.Second)
		stats, ok := sched.Stats()[jobName]
		if !ok || stats.TotalRuns == 0 {
			continue
		}
		if stats.FailureCount > 0 {
			return fmt.Errorf("job %s failed", jobName)
		}
		fmt.Printf("Job %s completed\n", jobName)
		return nil
	}
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := initApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return err
	}

	stats := sched.Stats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for jobName, stat := range stats {
		fmt.Printf("%s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}

	return nil
}
