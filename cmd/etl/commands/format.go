package commands

import (
	"fmt"
	"strings"

	"github.com/Kamal2131/stock-etl-airflow/internal/pipeline"
)

const rule = "───────────────────────────────────────────────────────────"

// PrintRunHeader prints a formatted header for one pipeline run.
func PrintRunHeader(name, key, date string) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", strings.ToUpper(name))
	fmt.Println(rule)
	fmt.Printf("  Key       : %s\n", key)
	fmt.Printf("  Date      : %s\n", date)
	fmt.Println(rule)
}

// PrintRunReport prints the stage-by-stage outcome of a run.
func PrintRunReport(report *pipeline.RunReport) {
	for _, stage := range report.Stages {
		marker := " "
		switch stage.Status {
		case pipeline.StatusSuccess:
			marker = "+"
		case pipeline.StatusFailed, pipeline.StatusQualityFailed:
			marker = "x"
		case pipeline.StatusSkipped:
			marker = "-"
		}

		line := fmt.Sprintf("  [%s] %-14s %-15s", marker, stage.Stage, stage.Status)
		if stage.RowCount > 0 {
			line += fmt.Sprintf(" rows=%d", stage.RowCount)
		}
		fmt.Println(line)

		if stage.Detail != "" {
			fmt.Printf("      %s\n", stage.Detail)
		}
	}

	fmt.Println(rule)
	duration := report.FinishedAt.Sub(report.StartedAt).Seconds()
	if report.Status == pipeline.StatusSuccess {
		fmt.Printf("  Run finished: %s (%d rows, %.2fs)\n", report.Status, report.RowCount, duration)
	} else {
		fmt.Printf("  Run finished: %s (%.2fs)\n", report.Status, duration)
	}
	fmt.Println()
}
