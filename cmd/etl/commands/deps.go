package commands

import (
	"context"
	"fmt"

	"github.com/Kamal2131/stock-etl-airflow/internal/extract"
	"github.com/Kamal2131/stock-etl-airflow/internal/external/kite"
	"github.com/Kamal2131/stock-etl-airflow/internal/external/nse"
	"github.com/Kamal2131/stock-etl-airflow/internal/lake"
	"github.com/Kamal2131/stock-etl-airflow/internal/ledger"
	"github.com/Kamal2131/stock-etl-airflow/internal/mirror"
	"github.com/Kamal2131/stock-etl-airflow/internal/pipeline"
	"github.com/Kamal2131/stock-etl-airflow/internal/quality"
	"github.com/Kamal2131/stock-etl-airflow/internal/resolver"
	"github.com/Kamal2131/stock-etl-airflow/internal/scheduler"
	"github.com/Kamal2131/stock-etl-airflow/internal/scheduler/jobs"
	"github.com/Kamal2131/stock-etl-airflow/internal/transform"
	"github.com/Kamal2131/stock-etl-airflow/pkg/config"
	"github.com/Kamal2131/stock-etl-airflow/pkg/database"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// app holds the wired dependency graph for one CLI invocation.
type app struct {
	config   *config.Config
	logger   *logger.Logger
	pipeline *pipeline.Pipeline
	store    *lake.Store
	ledger   *ledger.Repository
	db       *database.DB
}

// initApp builds the full dependency graph from configuration.
func initApp(overwrite bool) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Create external API clients
	kiteClient := kite.NewClient(cfg.Kite, log)
	nseClient := nse.NewClient(cfg.ETL.UniverseURL, log)

	// 4. Create resolver with the degraded-universe fallback
	res := resolver.New(kiteClient, nseClient, nse.FallbackSymbols(), log)

	// 5. Create pipeline stages
	extractor := extract.New(kiteClient, cfg.ETL.RequestDelay, log)
	transformer := transform.New(log)
	checker := quality.New(log)
	store := lake.NewStore(cfg.Lake.BasePath, log)
	s3Mirror := mirror.New(cfg.S3, log)

	// 6. Connect the run ledger when a database is configured
	var db *database.DB
	var repo *ledger.Repository
	if cfg.Database.URL != "" {
		db, err = database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		repo = ledger.NewRepository(db, log)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			return nil, fmt.Errorf("ensure ledger schema: %w", err)
		}
	}

	// 7. Assemble the pipeline
	p := pipeline.New(pipeline.Options{
		Resolver:    res,
		Extractor:   extractor,
		Transformer: transformer,
		Checker:     checker,
		Store:       store,
		Mirror:      s3Mirror,
		Ledger:      repo,
		Logger:      log,
		Overwrite:   overwrite,
	})

	return &app{
		config:   cfg,
		logger:   log,
		pipeline: p,
		store:    store,
		ledger:   repo,
		db:       db,
	}, nil
}

// close releases held resources.
func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// initScheduler builds the scheduler with the configured pipeline jobs.
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.logger)

	if a.config.ETL.RunFNO {
		if err := sched.AddJob(jobs.NewFNOJob(a.pipeline, a.config, a.logger)); err != nil {
			return nil, fmt.Errorf("register fno job: %w", err)
		}
	}
	if a.config.ETL.RunEquity {
		if err := sched.AddJob(jobs.NewEquityJob(a.pipeline, a.config, a.logger)); err != nil {
			return nil, fmt.Errorf("register equity job: %w", err)
		}
	}

	return sched, nil
}
