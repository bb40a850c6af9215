package market

import "time"

// Exchange segments used by the pipelines.
const (
	ExchangeNSE = "NSE" // equity segment
	ExchangeNFO = "NFO" // futures & options segment
)

// Instrument types as reported by the instrument catalog.
const (
	TypeEquity = "EQ"
	TypeFuture = "FUT"
	TypeCall   = "CE"
	TypePut    = "PE"
)

// Instrument describes one tradable instrument resolved for a run.
// The numeric Token is the extraction key; symbols can be ambiguous
// across exchange segments.
type Instrument struct {
	Token          int64
	Symbol         string
	Name           string // underlying name for derivatives
	Exchange       string
	Segment        string
	InstrumentType string
	Expiry         time.Time // zero for equities
	Strike         float64
	LotSize        int
	TickSize       float64
}

// IsDerivative reports whether the instrument is a futures or options contract.
func (i Instrument) IsDerivative() bool {
	switch i.InstrumentType {
	case TypeFuture, TypeCall, TypePut:
		return true
	}
	return false
}
