package nse

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/Kamal2131/stock-etl-airflow/pkg/httputil"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// DefaultUniverseURL is the published Nifty 500 constituent list.
const DefaultUniverseURL = "https://archives.nseindia.com/content/indices/ind_nifty500list.csv"

// Client fetches index constituent lists from the NSE archives.
type Client struct {
	universeURL string
	logger      *logger.Logger
	httpClient  *httputil.Client
}

// NewClient creates a universe client. An empty universeURL falls back to
// the published Nifty 500 list.
func NewClient(universeURL string, log *logger.Logger) *Client {
	if universeURL == "" {
		universeURL = DefaultUniverseURL
	}
	return &Client{
		universeURL: universeURL,
		logger:      log.WithField("client", "nse"),
	}
}

func (c *Client) http() *httputil.Client {
	if c.httpClient == nil {
		// The archive host occasionally rejects requests without a
		// browser-like user agent.
		c.httpClient = httputil.New(c.logger).
			WithHeader("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	}
	return c.httpClient
}

// Nifty500Symbols downloads the constituent CSV and returns the trading
// symbols in published order.
func (c *Client) Nifty500Symbols(ctx context.Context) ([]string, error) {
	resp, err := c.http().Get(ctx, c.universeURL)
	if err != nil {
		return nil, fmt.Errorf("fetch universe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch universe: unexpected status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse universe CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("universe CSV is empty")
	}

	symbolCol := -1
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), "Symbol") {
			symbolCol = i
			break
		}
	}
	if symbolCol < 0 {
		return nil, fmt.Errorf("universe CSV has no Symbol column")
	}

	symbols := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if symbolCol >= len(row) {
			continue
		}
		symbol := strings.TrimSpace(row[symbolCol])
		if symbol != "" {
			symbols = append(symbols, symbol)
		}
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe CSV has no symbols")
	}

	c.logger.WithField("count", len(symbols)).Info("Fetched Nifty 500 universe")
	return symbols, nil
}

// FallbackSymbols is a hardcoded fragment of large-cap constituents used
// when the published list cannot be fetched. The degraded run still covers
// the most liquid names.
func FallbackSymbols() []string {
	return []string{
		"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK",
		"HINDUNILVR", "SBIN", "BHARTIARTL", "KOTAKBANK", "ITC",
		"LT", "AXISBANK", "BAJFINANCE", "ASIANPAINT", "MARUTI",
		"TITAN", "SUNPHARMA", "ULTRACEMCO", "WIPRO", "HCLTECH",
	}
}
