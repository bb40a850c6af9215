package market

import (
	"testing"
	"time"
)

func TestIntervalCandlesPerSession(t *testing.T) {
	tests := []struct {
		interval Interval
		want     int
	}{
		{IntervalMinute, 375},
		{Interval5Minute, 75},
	}

	for _, tt := range tests {
		if got := tt.interval.CandlesPerSession(); got != tt.want {
			t.Errorf("%s CandlesPerSession() = %d, want %d", tt.interval, got, tt.want)
		}
	}
}

func TestIntervalValid(t *testing.T) {
	if !IntervalMinute.Valid() || !Interval5Minute.Valid() {
		t.Error("expected supported intervals to be valid")
	}
	if Interval("3minute").Valid() {
		t.Error("3minute should not be valid")
	}
}

func TestSessionBounds(t *testing.T) {
	day := time.Date(2025, 6, 17, 0, 0, 0, 0, time.Local)
	from, to := SessionBounds(day)

	if from.Hour() != 9 || from.Minute() != 15 {
		t.Errorf("session open = %v, want 09:15", from)
	}
	if to.Hour() != 15 || to.Minute() != 30 {
		t.Errorf("session close = %v, want 15:30", to)
	}
	if !from.Before(to) {
		t.Error("session open must precede close")
	}
}

func TestWithinMarketHours(t *testing.T) {
	day := time.Date(2025, 6, 17, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		hh   int
		mm   int
		want bool
	}{
		{"before open", 9, 14, false},
		{"at open", 9, 15, true},
		{"mid session", 12, 0, true},
		{"at close", 15, 30, true},
		{"after close", 15, 31, false},
		{"midnight", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := time.Date(day.Year(), day.Month(), day.Day(), tt.hh, tt.mm, 0, 0, time.Local)
			if got := WithinMarketHours(ts); got != tt.want {
				t.Errorf("WithinMarketHours(%02d:%02d) = %v, want %v", tt.hh, tt.mm, got, tt.want)
			}
		})
	}
}

func TestDatasetSort(t *testing.T) {
	base := time.Date(2025, 6, 17, 9, 15, 0, 0, time.Local)
	ds := Dataset{
		{Symbol: "TCS", Timestamp: base.Add(5 * time.Minute)},
		{Symbol: "INFY", Timestamp: base.Add(10 * time.Minute)},
		{Symbol: "TCS", Timestamp: base},
		{Symbol: "INFY", Timestamp: base},
	}

	ds.Sort()

	want := []struct {
		symbol string
		offset time.Duration
	}{
		{"INFY", 0},
		{"INFY", 10 * time.Minute},
		{"TCS", 0},
		{"TCS", 5 * time.Minute},
	}

	for i, w := range want {
		if ds[i].Symbol != w.symbol || !ds[i].Timestamp.Equal(base.Add(w.offset)) {
			t.Errorf("row %d = %s@%v, want %s@%v", i, ds[i].Symbol, ds[i].Timestamp, w.symbol, base.Add(w.offset))
		}
	}
}

func TestDatasetSymbolCount(t *testing.T) {
	ds := Dataset{
		{Symbol: "TCS"},
		{Symbol: "TCS"},
		{Symbol: "INFY"},
	}

	if got := ds.SymbolCount(); got != 2 {
		t.Errorf("SymbolCount() = %d, want 2", got)
	}

	if got := (Dataset{}).SymbolCount(); got != 0 {
		t.Errorf("empty SymbolCount() = %d, want 0", got)
	}
}

func TestInstrumentIsDerivative(t *testing.T) {
	tests := []struct {
		typ  string
		want bool
	}{
		{TypeEquity, false},
		{TypeFuture, true},
		{TypeCall, true},
		{TypePut, true},
	}

	for _, tt := range tests {
		inst := Instrument{InstrumentType: tt.typ}
		if got := inst.IsDerivative(); got != tt.want {
			t.Errorf("IsDerivative(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}
