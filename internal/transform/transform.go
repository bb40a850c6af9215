package transform

import (
	"time"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// Transformer normalizes raw extracted candles into the processed dataset
// shape: missing timestamps dropped, duplicates collapsed, rows outside
// market hours or with impossible OHLC relationships removed, and each row
// stamped with the run's trade date.
type Transformer struct {
	logger *logger.Logger
}

func New(log *logger.Logger) *Transformer {
	return &Transformer{logger: log.WithField("component", "transformer")}
}

// stats counts rows removed at each cleaning step for one batch.
type stats struct {
	in           int
	nullTS       int
	duplicates   int
	outsideHours int
	invalidOHLC  int
	out          int
}

// TransformBatch cleans every symbol's candles and flattens them into one
// dataset. Every surviving row is stamped with the run's trade date, not a
// date derived from its timestamp. An empty input produces an empty
// dataset, not an error.
func (t *Transformer) TransformBatch(candles map[string][]market.Candle, tradeDate time.Time) market.Dataset {
	var dataset market.Dataset
	var s stats
	day := market.TradeDay(tradeDate)

	for symbol, rows := range candles {
		cleaned := t.cleanSymbol(symbol, rows, day, &s)
		dataset = append(dataset, cleaned...)
	}
	s.out = len(dataset)

	t.logger.WithFields(map[string]interface{}{
		"rows_in":       s.in,
		"rows_out":      s.out,
		"null_ts":       s.nullTS,
		"duplicates":    s.duplicates,
		"outside_hours": s.outsideHours,
		"invalid_ohlc":  s.invalidOHLC,
	}).Info("Transformed batch")

	return dataset
}

// cleanSymbol applies the cleaning steps, in order, to one symbol's candles.
func (t *Transformer) cleanSymbol(symbol string, rows []market.Candle, tradeDate time.Time, s *stats) []market.Row {
	s.in += len(rows)

	// Drop rows with no timestamp first so the dedupe key is well defined.
	withTS := rows[:0:0]
	for _, c := range rows {
		if c.Timestamp.IsZero() {
			s.nullTS++
			continue
		}
		withTS = append(withTS, c)
	}

	// Duplicate timestamps keep the last occurrence, matching the upstream
	// feed's behavior of re-sending corrected candles.
	lastIdx := make(map[int64]int, len(withTS))
	for i, c := range withTS {
		lastIdx[c.Timestamp.UnixNano()] = i
	}

	out := make([]market.Row, 0, len(lastIdx))
	for i, c := range withTS {
		if lastIdx[c.Timestamp.UnixNano()] != i {
			s.duplicates++
			continue
		}
		if !market.WithinMarketHours(c.Timestamp) {
			s.outsideHours++
			continue
		}
		if !validOHLC(c) {
			s.invalidOHLC++
			continue
		}

		out = append(out, market.Row{
			Timestamp:      c.Timestamp,
			Open:           c.Open,
			High:           c.High,
			Low:            c.Low,
			Close:          c.Close,
			Volume:         c.Volume,
			OI:             c.OI,
			Symbol:         symbol,
			Token:          c.Token,
			Exchange:       c.Exchange,
			Underlying:     c.Underlying,
			Expiry:         c.Expiry,
			Strike:         c.Strike,
			InstrumentType: c.InstrumentType,
			LotSize:        c.LotSize,
			TradeDate:      tradeDate,
		})
	}

	return out
}

// validOHLC reports whether a candle's price relationships are possible:
// high at least every other price, low at most every other price. Zero
// prices pass; the quality gate warns on those downstream. NaN prices
// fail every comparison and are dropped here.
func validOHLC(c market.Candle) bool {
	if !(c.High >= c.Low && c.High >= c.Open && c.High >= c.Close) {
		return false
	}
	return c.Low <= c.Open && c.Low <= c.Close
}
