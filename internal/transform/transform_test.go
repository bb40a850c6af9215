package transform

import (
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

func newTransformer() *Transformer {
	return New(logger.NewWriter(io.Discard, "error"))
}

func ts(hour, minute int) time.Time {
	return time.Date(2025, 6, 17, hour, minute, 0, 0, time.Local)
}

func candle(t time.Time, o, h, l, c float64) market.Candle {
	return market.Candle{Timestamp: t, Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func TestTransformBatchEmpty(t *testing.T) {
	dataset := newTransformer().TransformBatch(nil, ts(10, 0))
	assert.True(t, dataset.Empty())

	dataset = newTransformer().TransformBatch(map[string][]market.Candle{"INFY": {}}, ts(10, 0))
	assert.True(t, dataset.Empty())
}

func TestTransformBatchStampsRunTradeDate(t *testing.T) {
	// The candle is timestamped the previous session; the stamp must still
	// be the run's date.
	input := map[string][]market.Candle{
		"INFY": {candle(time.Date(2025, 6, 16, 10, 0, 0, 0, time.Local), 100, 101, 99, 100.5)},
	}

	runDate := time.Date(2025, 6, 17, 0, 0, 0, 0, time.Local)
	dataset := newTransformer().TransformBatch(input, runDate)
	require.Len(t, dataset, 1)

	row := dataset[0]
	assert.Equal(t, "INFY", row.Symbol)
	assert.Equal(t, runDate, row.TradeDate)
	assert.Equal(t, 100.5, row.Close)
}

func TestTransformBatchDropsNullTimestamps(t *testing.T) {
	input := map[string][]market.Candle{
		"INFY": {
			candle(time.Time{}, 100, 101, 99, 100),
			candle(ts(10, 0), 100, 101, 99, 100),
		},
	}

	dataset := newTransformer().TransformBatch(input, ts(10, 0))
	require.Len(t, dataset, 1)
	assert.Equal(t, ts(10, 0), dataset[0].Timestamp)
}

func TestTransformBatchDedupeKeepsLast(t *testing.T) {
	input := map[string][]market.Candle{
		"INFY": {
			candle(ts(10, 0), 100, 101, 99, 10.0),
			candle(ts(10, 0), 100, 101, 99, 10.5), // corrected re-send
		},
	}

	dataset := newTransformer().TransformBatch(input, ts(10, 0))
	require.Len(t, dataset, 1)
	assert.Equal(t, 10.5, dataset[0].Close, "the later duplicate must win")
}

func TestTransformBatchFiltersMarketHours(t *testing.T) {
	input := map[string][]market.Candle{
		"INFY": {
			candle(ts(9, 14), 100, 101, 99, 100),  // pre-open
			candle(ts(9, 15), 100, 101, 99, 100),  // open boundary, kept
			candle(ts(15, 30), 100, 101, 99, 100), // close boundary, kept
			candle(ts(15, 31), 100, 101, 99, 100), // post-close
		},
	}

	dataset := newTransformer().TransformBatch(input, ts(10, 0))
	require.Len(t, dataset, 2)
}

func TestTransformBatchFiltersInvalidOHLC(t *testing.T) {
	cases := []struct {
		name   string
		candle market.Candle
	}{
		{"low above negative open", candle(ts(10, 0), -1, 101, 99, 100)},
		{"low above zero close", candle(ts(10, 1), 100, 101, 99, 0)},
		{"high below low", candle(ts(10, 2), 100, 98, 99, 100)},
		{"high below close", candle(ts(10, 3), 100, 100, 99, 101)},
		{"low above open", candle(ts(10, 4), 99, 101, 100, 100)},
		{"nan price", candle(ts(10, 5), math.NaN(), 101, 99, 100)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dataset := newTransformer().TransformBatch(map[string][]market.Candle{"INFY": {tc.candle}}, ts(10, 0))
			assert.True(t, dataset.Empty())
		})
	}
}

func TestTransformBatchKeepsZeroPriceRows(t *testing.T) {
	// A zero price with consistent relationships survives cleaning; the
	// quality gate owns the zero-price warning.
	input := map[string][]market.Candle{
		"INFY": {candle(ts(10, 0), 0, 1, 0, 0.5)},
	}

	dataset := newTransformer().TransformBatch(input, ts(10, 0))
	require.Len(t, dataset, 1)
	assert.Equal(t, 0.0, dataset[0].Open)
}

func TestTransformBatchIdempotent(t *testing.T) {
	input := map[string][]market.Candle{
		"INFY": {
			candle(ts(10, 0), 100, 101, 99, 100),
			candle(ts(10, 1), 100.5, 102, 100, 101),
		},
	}

	first := newTransformer().TransformBatch(input, ts(10, 0))
	require.Len(t, first, 2)

	// Feeding clean output back through changes nothing.
	again := make(map[string][]market.Candle)
	for _, row := range first {
		again[row.Symbol] = append(again[row.Symbol], market.Candle{
			Timestamp: row.Timestamp,
			Open:      row.Open, High: row.High, Low: row.Low, Close: row.Close,
			Volume: row.Volume, OI: row.OI,
		})
	}
	second := newTransformer().TransformBatch(again, ts(10, 0))
	assert.Len(t, second, len(first))
}

func TestTransformBatchMultipleSymbols(t *testing.T) {
	input := map[string][]market.Candle{
		"INFY": {candle(ts(10, 0), 100, 101, 99, 100)},
		"TCS":  {candle(ts(10, 0), 3000, 3010, 2990, 3005)},
	}

	dataset := newTransformer().TransformBatch(input, ts(10, 0))
	require.Len(t, dataset, 2)
	assert.Equal(t, 2, dataset.SymbolCount())
}
