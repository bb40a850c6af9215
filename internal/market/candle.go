package market

import "time"

// Interval is the candle interval supported by the upstream source.
type Interval string

const (
	IntervalMinute  Interval = "minute"
	Interval5Minute Interval = "5minute"
)

// Valid reports whether the interval is one the pipelines support.
func (i Interval) Valid() bool {
	return i == IntervalMinute || i == Interval5Minute
}

// Minutes returns the interval length in minutes.
func (i Interval) Minutes() int {
	if i == Interval5Minute {
		return 5
	}
	return 1
}

// CandlesPerSession returns the number of candles a full trading session
// produces at this interval (375 session minutes: 09:15 to 15:30).
func (i Interval) CandlesPerSession() int {
	return sessionMinutes / i.Minutes()
}

// Candle is one OHLCV(+OI) record, enriched by the extractor with the
// owning instrument's metadata before it enters the transform stage.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	OI        int64

	// Enrichment
	Symbol         string
	Token          int64
	Exchange       string
	Underlying     string
	Expiry         time.Time
	Strike         float64
	InstrumentType string
	LotSize        int
}
