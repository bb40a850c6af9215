package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Kamal2131/stock-etl-airflow/internal/extract"
	"github.com/Kamal2131/stock-etl-airflow/internal/lake"
	"github.com/Kamal2131/stock-etl-airflow/internal/ledger"
	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/internal/mirror"
	"github.com/Kamal2131/stock-etl-airflow/internal/quality"
	"github.com/Kamal2131/stock-etl-airflow/internal/resolver"
	"github.com/Kamal2131/stock-etl-airflow/internal/transform"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// Stage names used in run reports and logs.
const (
	stageResolve   = "resolve"
	stageExtract   = "extract"
	stageTransform = "transform"
	stageLoadRaw   = "load_raw"
	stageProcess   = "process"
	stageMirror    = "mirror"
	stageQuality   = "quality_check"
)

// Pipeline wires the ETL stages together and runs them for one trade date.
type Pipeline struct {
	resolver    *resolver.Resolver
	extractor   *extract.Extractor
	transformer *transform.Transformer
	checker     *quality.Checker
	store       *lake.Store
	mirror      *mirror.Mirror
	ledger      *ledger.Repository
	logger      *logger.Logger

	overwrite bool
}

// Options carry the collaborators the pipeline needs. Mirror and Ledger
// are optional.
type Options struct {
	Resolver    *resolver.Resolver
	Extractor   *extract.Extractor
	Transformer *transform.Transformer
	Checker     *quality.Checker
	Store       *lake.Store
	Mirror      *mirror.Mirror
	Ledger      *ledger.Repository
	Logger      *logger.Logger

	// Overwrite replaces existing partitions instead of skipping them.
	Overwrite bool
}

func New(opts Options) *Pipeline {
	return &Pipeline{
		resolver:    opts.Resolver,
		extractor:   opts.Extractor,
		transformer: opts.Transformer,
		checker:     opts.Checker,
		store:       opts.Store,
		mirror:      opts.Mirror,
		ledger:      opts.Ledger,
		logger:      opts.Logger.WithField("component", "pipeline"),
		overwrite:   opts.Overwrite,
	}
}

// RunFNO executes the derivatives pipeline for one underlying and trade
// date: resolve contracts, extract minute candles, clean, persist raw and
// processed layers, and validate. A non-zero expiry narrows the contract
// scope to that expiry day. The returned report always carries every
// stage outcome; the error is non-nil only for context cancellation.
func (p *Pipeline) RunFNO(ctx context.Context, underlying string, tradeDate, expiry time.Time) (*RunReport, error) {
	report := p.newReport("fno", underlying, tradeDate)
	scope := lake.FNOScope(underlying)

	instruments, result := p.resolve(ctx, report, func() ([]market.Instrument, error) {
		return p.resolver.ResolveDerivatives(ctx, underlying, expiry)
	})
	if !result.OK() {
		return p.finish(ctx, report), ctx.Err()
	}

	p.runCore(ctx, report, scope, instruments, market.IntervalMinute, tradeDate, nil)
	return p.finish(ctx, report), ctx.Err()
}

// RunEquity executes the equity pipeline for one trade date: 5-minute
// candles, coverage-aware quality check, and an S3 mirror of the processed
// partition when configured. A nil symbols list runs the Nifty 500
// universe; an explicit list restricts the run to those symbols.
func (p *Pipeline) RunEquity(ctx context.Context, symbols []string, maxInstruments int, tradeDate time.Time) (*RunReport, error) {
	report := p.newReport("equity", "nifty500", tradeDate)
	scope := lake.EquityScope("nifty500")

	instruments, result := p.resolve(ctx, report, func() ([]market.Instrument, error) {
		return p.resolver.ResolveEquity(ctx, symbols, maxInstruments)
	})
	if !result.OK() {
		return p.finish(ctx, report), ctx.Err()
	}

	p.runCore(ctx, report, scope, instruments, market.Interval5Minute, tradeDate, p.mirrorStage)
	return p.finish(ctx, report), ctx.Err()
}

func (p *Pipeline) newReport(pipeline, key string, tradeDate time.Time) *RunReport {
	p.logger.WithFields(map[string]interface{}{
		"pipeline":   pipeline,
		"key":        key,
		"trade_date": tradeDate.Format("2006-01-02"),
	}).Info("Pipeline run started")

	return &RunReport{
		Pipeline:  pipeline,
		Key:       key,
		TradeDate: tradeDate,
		Status:    StatusSuccess,
		StartedAt: time.Now(),
	}
}

func (p *Pipeline) resolve(ctx context.Context, report *RunReport, fn func() ([]market.Instrument, error)) ([]market.Instrument, StageResult) {
	start := time.Now()
	instruments, err := fn()

	var result StageResult
	switch {
	case err != nil:
		result = failed(stageResolve, err)
	case len(instruments) == 0:
		result = failed(stageResolve, fmt.Errorf("no instruments resolved"))
	default:
		result = StageResult{Stage: stageResolve, Status: StatusSuccess, RowCount: len(instruments)}
	}
	result.Duration = time.Since(start)
	report.add(result)
	return instruments, result
}

// mirrorFn mirrors a processed partition file; nil disables the stage.
type mirrorFn func(ctx context.Context, processedPath string, tradeDate time.Time) StageResult

// runCore executes the shared stage sequence. Non-success results cascade:
// each later stage is recorded as skipped instead of running.
func (p *Pipeline) runCore(ctx context.Context, report *RunReport, scope lake.Scope, instruments []market.Instrument, interval market.Interval, tradeDate time.Time, mirrorStage mirrorFn) {
	from, to := market.SessionBounds(tradeDate)

	// Extract.
	start := time.Now()
	extracted, err := p.extractor.ExtractBatch(ctx, instruments, interval, from, to)
	if err != nil {
		result := failed(stageExtract, err)
		result.Duration = time.Since(start)
		report.add(result)
		p.skipRemaining(report, stageTransform, stageLoadRaw, stageProcess, stageQuality)
		return
	}
	extractResult := StageResult{
		Stage:    stageExtract,
		Status:   StatusSuccess,
		RowCount: extracted.RowCount,
		Duration: time.Since(start),
	}
	if len(extracted.Failed) > 0 {
		extractResult.Detail = fmt.Sprintf("failed symbols: %s", strings.Join(extracted.Failed, ","))
	}
	report.add(extractResult)
	report.SymbolCount = len(extracted.Candles)
	report.FailedSymbols = len(extracted.Failed)

	// Transform.
	start = time.Now()
	dataset := p.transformer.TransformBatch(extracted.Candles, tradeDate)
	report.add(StageResult{
		Stage:    stageTransform,
		Status:   StatusSuccess,
		RowCount: len(dataset),
		Duration: time.Since(start),
	})

	// Load raw layer: the cleaned dataset as extracted this run.
	start = time.Now()
	dataset.Sort()
	rawPath, err := p.store.Write(dataset, scope, lake.LayerRaw, tradeDate, p.overwrite)
	if err != nil {
		result := failed(stageLoadRaw, err)
		result.Duration = time.Since(start)
		report.add(result)
		p.skipRemaining(report, stageProcess, stageQuality)
		return
	}
	report.add(StageResult{
		Stage:    stageLoadRaw,
		Status:   StatusSuccess,
		RowCount: len(dataset),
		Path:     rawPath,
		Duration: time.Since(start),
	})

	// Process: re-read the raw partition, re-sort, persist as processed.
	// Going through the stored partition rather than memory means a
	// backfill that skipped the raw write still rebuilds processed from
	// whatever the partition actually holds.
	start = time.Now()
	processed, err := p.store.Read(scope, lake.LayerRaw, tradeDate)
	if err != nil {
		result := failed(stageProcess, err)
		result.Duration = time.Since(start)
		report.add(result)
		p.skipRemaining(report, stageQuality)
		return
	}
	processed.Sort()
	processedPath, err := p.store.Write(processed, scope, lake.LayerProcessed, tradeDate, p.overwrite)
	if err != nil {
		result := failed(stageProcess, err)
		result.Duration = time.Since(start)
		report.add(result)
		p.skipRemaining(report, stageQuality)
		return
	}
	report.add(StageResult{
		Stage:    stageProcess,
		Status:   StatusSuccess,
		RowCount: len(processed),
		Path:     processedPath,
		Duration: time.Since(start),
	})
	report.RowCount = len(processed)

	// Mirror, equity only.
	if mirrorStage != nil {
		report.add(mirrorStage(ctx, processedPath, tradeDate))
	}

	// Quality check runs last so the partitions exist either way; a
	// quality failure marks the run but does not undo the load.
	start = time.Now()
	qualityReport := p.check(processed, scope, interval)
	result := StageResult{
		Stage:    stageQuality,
		RowCount: qualityReport.RowCount,
		Duration: time.Since(start),
	}
	if qualityReport.Passed {
		result.Status = StatusSuccess
		if len(qualityReport.Warnings) > 0 {
			result.Detail = strings.Join(qualityReport.Warnings, "; ")
		}
	} else {
		result.Status = StatusQualityFailed
		result.Detail = strings.Join(qualityReport.Errors, "; ")
	}
	report.add(result)
	report.QualityErrors = len(qualityReport.Errors)
	report.QualityWarnings = len(qualityReport.Warnings)
}

// check picks the quality variant: equity datasets get the coverage rule.
func (p *Pipeline) check(dataset market.Dataset, scope lake.Scope, interval market.Interval) *quality.Report {
	if scope.Domain == "equity" {
		return p.checker.CheckWithCoverage(dataset, interval)
	}
	return p.checker.Check(dataset)
}

func (p *Pipeline) mirrorStage(ctx context.Context, processedPath string, tradeDate time.Time) StageResult {
	start := time.Now()

	if p.mirror == nil || !p.mirror.IsConfigured() {
		return skipped(stageMirror, "S3 mirror not configured")
	}
	if processedPath == "" {
		return skipped(stageMirror, "no processed partition to mirror")
	}

	key := mirror.EquityKey(tradeDate, filepath.Base(processedPath))
	if err := p.mirror.Upload(ctx, processedPath, key); err != nil {
		result := failed(stageMirror, err)
		result.Duration = time.Since(start)
		return result
	}

	return StageResult{
		Stage:    stageMirror,
		Status:   StatusSuccess,
		Path:     key,
		Duration: time.Since(start),
	}
}

func (p *Pipeline) skipRemaining(report *RunReport, stages ...string) {
	for _, stage := range stages {
		report.add(skipped(stage, "earlier stage did not succeed"))
	}
}

// finish stamps the report, records it in the ledger, and logs the outcome.
func (p *Pipeline) finish(ctx context.Context, report *RunReport) *RunReport {
	report.FinishedAt = time.Now()

	if err := p.ledger.SaveRun(ctx, toRun(report)); err != nil {
		p.logger.WithError(err).Warn("Failed to record run in ledger")
	}

	entry := p.logger.WithFields(map[string]interface{}{
		"pipeline": report.Pipeline,
		"key":      report.Key,
		"status":   string(report.Status),
		"rows":     report.RowCount,
		"duration": report.FinishedAt.Sub(report.StartedAt),
	})
	if report.Status == StatusSuccess {
		entry.Info("Pipeline run finished")
	} else {
		entry.Error("Pipeline run did not succeed")
	}

	return report
}

// toRun converts a report to its ledger record.
func toRun(report *RunReport) ledger.Run {
	var details []string
	for _, stage := range report.Stages {
		if stage.Detail != "" {
			details = append(details, stage.Stage+": "+stage.Detail)
		}
	}

	return ledger.Run{
		Pipeline:     report.Pipeline,
		Key:          report.Key,
		TradeDate:    report.TradeDate,
		Status:       string(report.Status),
		RowCount:     report.RowCount,
		SymbolCount:  report.SymbolCount,
		FailedCount:  report.FailedSymbols,
		ErrorCount:   report.QualityErrors,
		WarningCount: report.QualityWarnings,
		Detail:       strings.Join(details, " | "),
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
	}
}
