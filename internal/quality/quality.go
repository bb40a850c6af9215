package quality

import (
	"fmt"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// Report is the outcome of validating a dataset. Errors fail the check;
// warnings are recorded but do not.
type Report struct {
	Passed   bool
	Errors   []string
	Warnings []string
	RowCount int
}

func (r *Report) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Passed = false
}

func (r *Report) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Checker validates processed datasets before they are declared good.
type Checker struct {
	logger *logger.Logger
}

func New(log *logger.Logger) *Checker {
	return &Checker{logger: log.WithField("component", "quality")}
}

// Check runs every quality rule over the dataset. Rules are independent:
// one failing rule never hides another.
func (c *Checker) Check(dataset market.Dataset) *Report {
	report := &Report{Passed: true, RowCount: len(dataset)}

	if dataset.Empty() {
		report.addError("dataset is empty")
	}

	c.checkTimestamps(dataset, report)
	c.checkPrices(dataset, report)
	c.checkHighLow(dataset, report)
	c.checkDuplicates(dataset, report)
	c.checkMarketHours(dataset, report)
	c.checkZeroPrices(dataset, report)

	c.log(report)
	return report
}

// CheckWithCoverage runs Check and additionally warns when the dataset
// covers noticeably fewer rows than expected for the symbol count. The
// threshold is 80% of a full session per symbol.
func (c *Checker) CheckWithCoverage(dataset market.Dataset, interval market.Interval) *Report {
	report := c.Check(dataset)

	if symbols := dataset.SymbolCount(); symbols > 0 {
		expected := int(float64(symbols*interval.CandlesPerSession()) * 0.8)
		if len(dataset) < expected {
			report.addWarning("low coverage: %d rows for %d symbols, expected at least %d", len(dataset), symbols, expected)
		}
	}

	return report
}

func (c *Checker) checkTimestamps(dataset market.Dataset, report *Report) {
	var missing int
	for _, row := range dataset {
		if row.Timestamp.IsZero() {
			missing++
		}
	}
	if missing > 0 {
		report.addError("%d rows have missing timestamps", missing)
	}
}

func (c *Checker) checkPrices(dataset market.Dataset, report *Report) {
	for _, field := range []string{"open", "high", "low", "close"} {
		var negative int
		for _, row := range dataset {
			if price(row, field) < 0 {
				negative++
			}
		}
		if negative > 0 {
			report.addError("%d rows have negative %s prices", negative, field)
		}
	}
}

func (c *Checker) checkHighLow(dataset market.Dataset, report *Report) {
	var inverted int
	for _, row := range dataset {
		if row.High < row.Low {
			inverted++
		}
	}
	if inverted > 0 {
		report.addError("%d rows have high below low", inverted)
	}
}

func (c *Checker) checkDuplicates(dataset market.Dataset, report *Report) {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]bool, len(dataset))
	var dups int
	for _, row := range dataset {
		k := key{row.Symbol, row.Timestamp.UnixNano()}
		if seen[k] {
			dups++
		}
		seen[k] = true
	}
	if dups > 0 {
		report.addWarning("%d duplicate (symbol, timestamp) rows", dups)
	}
}

func (c *Checker) checkMarketHours(dataset market.Dataset, report *Report) {
	var outside int
	for _, row := range dataset {
		if !row.Timestamp.IsZero() && !market.WithinMarketHours(row.Timestamp) {
			outside++
		}
	}
	if outside > 0 {
		report.addWarning("%d rows fall outside market hours", outside)
	}
}

func (c *Checker) checkZeroPrices(dataset market.Dataset, report *Report) {
	for _, field := range []string{"open", "high", "low", "close"} {
		var zeros int
		for _, row := range dataset {
			if price(row, field) == 0 {
				zeros++
			}
		}
		if zeros > 0 {
			report.addWarning("%d rows have zero %s prices", zeros, field)
		}
	}
}

func price(row market.Row, field string) float64 {
	switch field {
	case "open":
		return row.Open
	case "high":
		return row.High
	case "low":
		return row.Low
	default:
		return row.Close
	}
}

func (c *Checker) log(report *Report) {
	entry := c.logger.WithFields(map[string]interface{}{
		"passed":   report.Passed,
		"rows":     report.RowCount,
		"errors":   len(report.Errors),
		"warnings": len(report.Warnings),
	})
	if report.Passed {
		entry.Info("Quality check passed")
	} else {
		entry.Error("Quality check failed")
	}
}
