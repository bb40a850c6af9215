package kite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
)

const (
	// Kite expects "from"/"to" in this layout, local exchange time.
	timeRangeLayout = "2006-01-02 15:04:05"
	// Candle timestamps come back with a numeric zone offset.
	candleTimeLayout = "2006-01-02T15:04:05-0700"
)

// historicalResponse is the JSON envelope for the historical candles endpoint.
// Each candle is a positional array: [timestamp, open, high, low, close,
// volume] with open interest appended when oi=1 was requested.
type historicalResponse struct {
	Status string `json:"status"`
	Data   struct {
		Candles [][]json.RawMessage `json:"candles"`
	} `json:"data"`
}

// Historical fetches OHLCV candles for a single instrument over [from, to]
// at the given interval. Open interest is always requested; equity
// instruments simply return it as zero.
func (c *Client) Historical(ctx context.Context, token int64, interval market.Interval, from, to time.Time) ([]market.Candle, error) {
	endpoint := fmt.Sprintf("%s/instruments/historical/%d/%s", c.baseURL, token, interval)

	query := url.Values{}
	query.Set("from", from.Format(timeRangeLayout))
	query.Set("to", to.Format(timeRangeLayout))
	query.Set("oi", "1")

	resp, err := c.http().Get(ctx, endpoint+"?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch historical: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var parsed historicalResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode historical response: %w", err)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("kite API returned status %q", parsed.Status)
	}

	// A malformed candle loses only itself, not the instrument's fetch.
	candles := make([]market.Candle, 0, len(parsed.Data.Candles))
	for i, raw := range parsed.Data.Candles {
		candle, err := parseCandle(raw)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"token": token,
				"index": i,
			}).Warn("Skipping unparseable candle")
			continue
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// parseCandle decodes one positional candle array.
func parseCandle(raw []json.RawMessage) (market.Candle, error) {
	if len(raw) < 6 {
		return market.Candle{}, fmt.Errorf("expected at least 6 fields, got %d", len(raw))
	}

	var tsStr string
	if err := json.Unmarshal(raw[0], &tsStr); err != nil {
		return market.Candle{}, fmt.Errorf("timestamp: %w", err)
	}
	ts, err := time.Parse(candleTimeLayout, tsStr)
	if err != nil {
		return market.Candle{}, fmt.Errorf("timestamp %q: %w", tsStr, err)
	}

	var c market.Candle
	c.Timestamp = ts

	floats := []*float64{&c.Open, &c.High, &c.Low, &c.Close}
	for i, dst := range floats {
		if err := json.Unmarshal(raw[i+1], dst); err != nil {
			return market.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
	}

	if err := json.Unmarshal(raw[5], &c.Volume); err != nil {
		return market.Candle{}, fmt.Errorf("volume: %w", err)
	}
	if len(raw) > 6 {
		if err := json.Unmarshal(raw[6], &c.OI); err != nil {
			return market.Candle{}, fmt.Errorf("oi: %w", err)
		}
	}

	return c, nil
}
