package kite

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
)

// Instruments fetches the full instrument dump for an exchange segment.
// The dump is a CSV document covering every tradable instrument.
func (c *Client) Instruments(ctx context.Context, exchange string) ([]market.Instrument, error) {
	url := fmt.Sprintf("%s/instruments/%s", c.baseURL, exchange)

	resp, err := c.http().Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch instruments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	instruments, err := parseInstrumentsCSV(resp.Body, exchange)
	if err != nil {
		return nil, fmt.Errorf("parse instruments: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"exchange": exchange,
		"count":    len(instruments),
	}).Info("Fetched instrument dump")

	return instruments, nil
}

// parseInstrumentsCSV parses the Kite instrument dump. Unparseable numeric
// fields are left zero rather than failing the whole dump.
func parseInstrumentsCSV(r io.Reader, exchange string) ([]market.Instrument, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("empty instrument dump for %s", exchange)
	}

	// Header row maps column names to positions; the dump's column order
	// is not contractual.
	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	instruments := make([]market.Instrument, 0, len(records)-1)
	for _, row := range records[1:] {
		token, err := strconv.ParseInt(field(row, "instrument_token"), 10, 64)
		if err != nil {
			continue
		}

		inst := market.Instrument{
			Token:          token,
			Symbol:         field(row, "tradingsymbol"),
			Name:           field(row, "name"),
			Exchange:       field(row, "exchange"),
			Segment:        field(row, "segment"),
			InstrumentType: field(row, "instrument_type"),
		}

		inst.Strike, _ = strconv.ParseFloat(field(row, "strike"), 64)
		inst.TickSize, _ = strconv.ParseFloat(field(row, "tick_size"), 64)
		inst.LotSize, _ = strconv.Atoi(field(row, "lot_size"))

		if expiryStr := field(row, "expiry"); expiryStr != "" {
			if expiry, err := time.ParseInLocation("2006-01-02", expiryStr, time.Local); err == nil {
				inst.Expiry = expiry
			}
		}

		instruments = append(instruments, inst)
	}

	return instruments, nil
}
