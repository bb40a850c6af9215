package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/internal/pipeline"
	"github.com/Kamal2131/stock-etl-airflow/pkg/config"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// EquityJob runs the Nifty 500 equity pipeline after market close.
type EquityJob struct {
	pipeline *pipeline.Pipeline
	config   *config.Config
	logger   *logger.Logger
}

func NewEquityJob(p *pipeline.Pipeline, cfg *config.Config, log *logger.Logger) *EquityJob {
	return &EquityJob{
		pipeline: p,
		config:   cfg,
		logger:   log,
	}
}

func (j *EquityJob) Name() string {
	return "equity_pipeline"
}

func (j *EquityJob) Schedule() string {
	return j.config.ETL.Schedule
}

// Run executes the equity pipeline for today's session. A quality failure
// is returned as an error so the run shows up failed in job history, but
// the partitions written before the check stay in place.
func (j *EquityJob) Run(ctx context.Context) error {
	tradeDate := market.TradeDay(time.Now())

	report, err := j.pipeline.RunEquity(ctx, nil, j.config.ETL.MaxInstruments, tradeDate)
	if err != nil {
		return fmt.Errorf("equity pipeline: %w", err)
	}

	switch report.Status {
	case pipeline.StatusSuccess:
		return nil
	case pipeline.StatusQualityFailed:
		return fmt.Errorf("equity pipeline finished with failing quality checks")
	default:
		return fmt.Errorf("equity pipeline finished with status %s", report.Status)
	}
}
