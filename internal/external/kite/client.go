package kite

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Kamal2131/stock-etl-airflow/pkg/config"
	"github.com/Kamal2131/stock-etl-airflow/pkg/httputil"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// Client handles communication with the Zerodha Kite Connect API.
// All upstream market-data calls go through this client.
type Client struct {
	apiKey      string
	accessToken string
	baseURL     string
	logger      *logger.Logger

	// Lazily constructed on first use and cached for the process lifetime.
	httpClient *httputil.Client
}

// NewClient creates a new Kite Connect client. The underlying HTTP client
// is not built until the first request.
func NewClient(cfg config.KiteConfig, log *logger.Logger) *Client {
	return &Client{
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		baseURL:     cfg.BaseURL,
		logger:      log.WithField("client", "kite"),
	}
}

// http returns the owned HTTP client, constructing it on first access.
// Retry is disabled here: the extractor owns the retry policy, and stacking
// transport retries on top would multiply the attempt budget.
func (c *Client) http() *httputil.Client {
	if c.httpClient == nil {
		c.httpClient = httputil.NewWithTimeout(c.logger, 30*time.Second).
			DisableRetry().
			WithHeader("X-Kite-Version", "3").
			WithHeader("Authorization", fmt.Sprintf("token %s:%s", c.apiKey, c.accessToken))
	}
	return c.httpClient
}

// apiError is the error envelope Kite returns for non-2xx responses.
type apiError struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
}

// decodeError turns a non-OK response into a descriptive error.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("kite API error (%d %s): %s", resp.StatusCode, apiErr.ErrorType, apiErr.Message)
	}
	return fmt.Errorf("kite API error: unexpected status %d", resp.StatusCode)
}
