package market

import (
	"sort"
	"time"
)

// Row is one record of the canonical, analytics-ready schema. Derivative
// enrichment columns (underlying, expiry, strike, type, lot size) are zero
// valued for equity rows.
type Row struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	OI        int64

	Symbol   string
	Token    int64
	Exchange string

	Underlying     string
	Expiry         time.Time
	Strike         float64
	InstrumentType string
	LotSize        int

	TradeDate time.Time
}

// Dataset is the canonical output of a pipeline run, handed wholesale
// between stages.
type Dataset []Row

// Empty reports whether the dataset has no rows.
func (d Dataset) Empty() bool {
	return len(d) == 0
}

// Sort orders rows by symbol then timestamp, in place.
func (d Dataset) Sort() {
	sort.SliceStable(d, func(i, j int) bool {
		if d[i].Symbol != d[j].Symbol {
			return d[i].Symbol < d[j].Symbol
		}
		return d[i].Timestamp.Before(d[j].Timestamp)
	})
}

// SymbolCount returns the number of distinct symbols in the dataset.
func (d Dataset) SymbolCount() int {
	seen := make(map[string]struct{}, len(d))
	for _, r := range d {
		seen[r.Symbol] = struct{}{}
	}
	return len(seen)
}
