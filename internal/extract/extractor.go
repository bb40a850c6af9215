package extract

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// CandleSource fetches raw candles for one instrument.
type CandleSource interface {
	Historical(ctx context.Context, token int64, interval market.Interval, from, to time.Time) ([]market.Candle, error)
}

const progressEvery = 50

// Extractor pulls candles for a batch of instruments, pacing requests with
// a rate limiter and retrying each instrument independently. One bad
// instrument never fails the batch.
type Extractor struct {
	source  CandleSource
	limiter *rate.Limiter
	retry   RetryPolicy
	logger  *logger.Logger
}

// New creates an extractor. requestDelay is the minimum spacing between
// upstream calls; zero or negative disables pacing.
func New(source CandleSource, requestDelay time.Duration, log *logger.Logger) *Extractor {
	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}
	return &Extractor{
		source:  source,
		limiter: rate.NewLimiter(limit, 1),
		retry:   DefaultRetryPolicy(),
		logger:  log.WithField("component", "extractor"),
	}
}

// WithRetryPolicy overrides the per-instrument retry policy.
func (e *Extractor) WithRetryPolicy(p RetryPolicy) *Extractor {
	e.retry = p
	return e
}

// Result holds the outcome of a batch extraction.
type Result struct {
	// Candles maps trading symbol to its extracted, enriched candles.
	// Symbols that returned no rows are absent.
	Candles map[string][]market.Candle
	// Failed lists symbols whose extraction failed after all retries.
	Failed []string
	// RowCount is the total number of candles across all symbols.
	RowCount int
}

// ExtractBatch fetches candles for every instrument over [from, to]. Each
// candle is stamped with its instrument's identity so downstream stages
// need no lookup table. The only error returned is context cancellation;
// per-instrument failures are collected in Result.Failed.
func (e *Extractor) ExtractBatch(ctx context.Context, instruments []market.Instrument, interval market.Interval, from, to time.Time) (*Result, error) {
	result := &Result{Candles: make(map[string][]market.Candle)}

	start := time.Now()
	e.logger.WithFields(map[string]interface{}{
		"instruments": len(instruments),
		"interval":    string(interval),
		"from":        from.Format("2006-01-02 15:04"),
		"to":          to.Format("2006-01-02 15:04"),
	}).Info("Starting batch extraction")

	for i, inst := range instruments {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var candles []market.Candle
		err := e.retry.Do(ctx, func() error {
			var fetchErr error
			candles, fetchErr = e.source.Historical(ctx, inst.Token, interval, from, to)
			return fetchErr
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			e.logger.WithError(err).WithField("symbol", inst.Symbol).Warn("Instrument extraction failed")
			result.Failed = append(result.Failed, inst.Symbol)
			continue
		}

		if len(candles) > 0 {
			enrich(candles, inst)
			result.Candles[inst.Symbol] = candles
			result.RowCount += len(candles)
		}

		if (i+1)%progressEvery == 0 {
			e.logger.WithFields(map[string]interface{}{
				"done":  i + 1,
				"total": len(instruments),
				"rows":  result.RowCount,
			}).Info("Extraction progress")
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"symbols":  len(result.Candles),
		"failed":   len(result.Failed),
		"rows":     result.RowCount,
		"duration": time.Since(start),
	}).Info("Batch extraction finished")

	return result, nil
}

// enrich stamps instrument identity onto each candle in place.
func enrich(candles []market.Candle, inst market.Instrument) {
	for i := range candles {
		candles[i].Symbol = inst.Symbol
		candles[i].Token = inst.Token
		candles[i].Exchange = inst.Exchange
		candles[i].Underlying = inst.Name
		candles[i].Expiry = inst.Expiry
		candles[i].Strike = inst.Strike
		candles[i].InstrumentType = inst.InstrumentType
		candles[i].LotSize = inst.LotSize
	}
}
