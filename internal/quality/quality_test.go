package quality

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

func newChecker() *Checker {
	return New(logger.NewWriter(io.Discard, "error"))
}

func row(symbol string, hour, minute int, o, h, l, c float64) market.Row {
	return market.Row{
		Symbol:    symbol,
		Timestamp: time.Date(2025, 6, 17, hour, minute, 0, 0, time.Local),
		Open:      o, High: h, Low: l, Close: c,
		Volume: 100,
	}
}

func cleanRows(symbol string, n int) market.Dataset {
	base := time.Date(2025, 6, 17, 9, 15, 0, 0, time.Local)
	rows := make(market.Dataset, 0, n)
	for i := 0; i < n; i++ {
		r := row(symbol, 9, 15, 100, 101, 99, 100.5)
		r.Timestamp = base.Add(time.Duration(i) * time.Minute)
		rows = append(rows, r)
	}
	return rows
}

func TestCheckCleanDataset(t *testing.T) {
	report := newChecker().Check(cleanRows("INFY", 10))
	assert.True(t, report.Passed)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 10, report.RowCount)
}

func TestCheckEmptyDataset(t *testing.T) {
	report := newChecker().Check(nil)
	assert.False(t, report.Passed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "empty")
}

func TestCheckNegativeOpen(t *testing.T) {
	dataset := market.Dataset{row("INFY", 10, 0, -5, 101, 99, 100)}
	report := newChecker().Check(dataset)

	assert.False(t, report.Passed)
	var openErrors int
	for _, e := range report.Errors {
		if strings.Contains(e, "open") {
			openErrors++
		}
	}
	assert.Equal(t, 1, openErrors, "exactly one error should name the open field")
}

func TestCheckHighBelowLow(t *testing.T) {
	dataset := market.Dataset{row("INFY", 10, 0, 100, 98, 99, 100)}
	report := newChecker().Check(dataset)

	assert.False(t, report.Passed)
	found := false
	for _, e := range report.Errors {
		if strings.Contains(e, "high below low") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckMissingTimestamps(t *testing.T) {
	dataset := market.Dataset{
		{Symbol: "INFY", Open: 100, High: 101, Low: 99, Close: 100},
	}
	report := newChecker().Check(dataset)
	assert.False(t, report.Passed)
	assert.Contains(t, report.Errors[0], "missing timestamps")
}

func TestCheckWarningsDoNotFail(t *testing.T) {
	dataset := market.Dataset{
		row("INFY", 10, 0, 100, 101, 99, 100),
		row("INFY", 10, 0, 100, 101, 99, 100), // duplicate key
		row("INFY", 16, 0, 100, 101, 99, 100), // outside market hours
		row("INFY", 10, 1, 0, 101, 0, 100),    // zero prices
	}
	report := newChecker().Check(dataset)

	assert.True(t, report.Passed)
	assert.Empty(t, report.Errors)
	assert.Len(t, report.Warnings, 4)
}

func TestCheckZeroPricesWarnsPerField(t *testing.T) {
	dataset := market.Dataset{
		row("INFY", 10, 0, 0, 101, 0, 100),
		row("INFY", 10, 1, 0, 101, 99, 100),
	}
	report := newChecker().Check(dataset)

	assert.True(t, report.Passed)
	require.Len(t, report.Warnings, 2)
	assert.Contains(t, report.Warnings[0], "2 rows have zero open prices")
	assert.Contains(t, report.Warnings[1], "1 rows have zero low prices")
}

func TestCheckIndependentRules(t *testing.T) {
	// One row trips a timestamp error, another a price error. Both must
	// be reported.
	dataset := market.Dataset{
		{Symbol: "INFY", Open: 100, High: 101, Low: 99, Close: 100},
		row("TCS", 10, 0, -1, 101, 99, 100),
	}
	report := newChecker().Check(dataset)
	assert.False(t, report.Passed)
	assert.GreaterOrEqual(t, len(report.Errors), 2)
}

func TestCheckWithCoverageWarns(t *testing.T) {
	// 16 symbols at 75 candles each would be 1200 rows; 80% is 960.
	dataset := make(market.Dataset, 0, 880)
	for s := 0; s < 16; s++ {
		symbol := string(rune('A' + s))
		for i := 0; i < 55; i++ {
			r := row(symbol, 9, 15, 100, 101, 99, 100)
			r.Timestamp = r.Timestamp.Add(time.Duration(i*5) * time.Minute)
			dataset = append(dataset, r)
		}
	}

	report := newChecker().CheckWithCoverage(dataset, market.Interval5Minute)
	assert.True(t, report.Passed, "coverage is a warning, not an error")

	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "low coverage") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckWithCoverageFullSession(t *testing.T) {
	dataset := make(market.Dataset, 0, 75)
	base := time.Date(2025, 6, 17, 9, 15, 0, 0, time.Local)
	for i := 0; i < 75; i++ {
		r := row("INFY", 9, 15, 100, 101, 99, 100)
		r.Timestamp = base.Add(time.Duration(i*5) * time.Minute)
		dataset = append(dataset, r)
	}

	report := newChecker().CheckWithCoverage(dataset, market.Interval5Minute)
	assert.True(t, report.Passed)
	assert.Empty(t, report.Warnings)
}
