package lake

import (
	"time"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
)

// record is the parquet row shape. Timestamps are stored as epoch
// milliseconds so partitions read back identically regardless of the
// writer's zone database.
type record struct {
	Timestamp      int64   `parquet:"timestamp,timestamp(millisecond)"`
	Open           float64 `parquet:"open"`
	High           float64 `parquet:"high"`
	Low            float64 `parquet:"low"`
	Close          float64 `parquet:"close"`
	Volume         int64   `parquet:"volume"`
	OI             int64   `parquet:"oi"`
	Symbol         string  `parquet:"symbol,dict"`
	Token          int64   `parquet:"token"`
	Exchange       string  `parquet:"exchange,dict"`
	Underlying     string  `parquet:"underlying,dict"`
	Expiry         int64   `parquet:"expiry,timestamp(millisecond),optional"`
	Strike         float64 `parquet:"strike"`
	InstrumentType string  `parquet:"instrument_type,dict"`
	LotSize        int32   `parquet:"lot_size"`
	TradeDate      int64   `parquet:"trade_date,timestamp(millisecond)"`
}

func toRecord(row market.Row) record {
	rec := record{
		Timestamp:      row.Timestamp.UnixMilli(),
		Open:           row.Open,
		High:           row.High,
		Low:            row.Low,
		Close:          row.Close,
		Volume:         row.Volume,
		OI:             row.OI,
		Symbol:         row.Symbol,
		Token:          row.Token,
		Exchange:       row.Exchange,
		Underlying:     row.Underlying,
		Strike:         row.Strike,
		InstrumentType: row.InstrumentType,
		LotSize:        int32(row.LotSize),
		TradeDate:      row.TradeDate.UnixMilli(),
	}
	if !row.Expiry.IsZero() {
		rec.Expiry = row.Expiry.UnixMilli()
	}
	return rec
}

func toRow(rec record) market.Row {
	row := market.Row{
		Timestamp:      time.UnixMilli(rec.Timestamp).In(time.Local),
		Open:           rec.Open,
		High:           rec.High,
		Low:            rec.Low,
		Close:          rec.Close,
		Volume:         rec.Volume,
		OI:             rec.OI,
		Symbol:         rec.Symbol,
		Token:          rec.Token,
		Exchange:       rec.Exchange,
		Underlying:     rec.Underlying,
		Strike:         rec.Strike,
		InstrumentType: rec.InstrumentType,
		LotSize:        int(rec.LotSize),
		TradeDate:      time.UnixMilli(rec.TradeDate).In(time.Local),
	}
	if rec.Expiry != 0 {
		row.Expiry = time.UnixMilli(rec.Expiry).In(time.Local)
	}
	return row
}
