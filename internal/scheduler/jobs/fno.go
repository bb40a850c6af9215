package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/internal/pipeline"
	"github.com/Kamal2131/stock-etl-airflow/pkg/config"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// FNOJob runs the derivatives pipeline for every configured underlying
// after market close.
type FNOJob struct {
	pipeline *pipeline.Pipeline
	config   *config.Config
	logger   *logger.Logger
}

func NewFNOJob(p *pipeline.Pipeline, cfg *config.Config, log *logger.Logger) *FNOJob {
	return &FNOJob{
		pipeline: p,
		config:   cfg,
		logger:   log,
	}
}

func (j *FNOJob) Name() string {
	return "fno_pipeline"
}

func (j *FNOJob) Schedule() string {
	return j.config.ETL.Schedule
}

// Run executes the derivatives pipeline for today's session. Underlyings
// are independent; one failing does not stop the others.
func (j *FNOJob) Run(ctx context.Context) error {
	tradeDate := market.TradeDay(time.Now())

	var failed []string
	for _, underlying := range j.config.ETL.Underlyings {
		report, err := j.pipeline.RunFNO(ctx, underlying, tradeDate, time.Time{})
		if err != nil {
			return fmt.Errorf("fno pipeline for %s: %w", underlying, err)
		}
		if report.Status != pipeline.StatusSuccess {
			failed = append(failed, underlying)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("fno pipeline failed for: %s", strings.Join(failed, ","))
	}
	return nil
}
