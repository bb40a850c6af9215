package market

import "time"

// Market hours (IST): 09:15 to 15:30, both bounds inclusive.
const (
	openHour   = 9
	openMinute = 15

	closeHour   = 15
	closeMinute = 30

	sessionMinutes = (closeHour*60 + closeMinute) - (openHour*60 + openMinute)
)

// SessionBounds returns the trading session start and end for a trade date,
// in the date's location.
func SessionBounds(tradeDate time.Time) (from, to time.Time) {
	y, m, d := tradeDate.Date()
	loc := tradeDate.Location()
	from = time.Date(y, m, d, openHour, openMinute, 0, 0, loc)
	to = time.Date(y, m, d, closeHour, closeMinute, 0, 0, loc)
	return from, to
}

// WithinMarketHours reports whether a timestamp's local time of day falls
// inside the trading session, inclusive on both bounds.
func WithinMarketHours(ts time.Time) bool {
	minutes := ts.Hour()*60 + ts.Minute()
	return minutes >= openHour*60+openMinute && minutes <= closeHour*60+closeMinute
}

// TradeDay truncates a timestamp to midnight in its location, the form
// trade dates are stamped in.
func TradeDay(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}
