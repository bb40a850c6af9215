package nse

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.NewWriter(io.Discard, "error")
}

func TestNifty500Symbols(t *testing.T) {
	csv := "Company Name,Industry,Symbol,Series,ISIN Code\n" +
		"Reliance Industries Ltd.,Oil Gas & Consumable Fuels,RELIANCE,EQ,INE002A01018\n" +
		"Tata Consultancy Services Ltd.,Information Technology,TCS,EQ,INE467B01029\n" +
		"Infosys Ltd.,Information Technology, INFY ,EQ,INE009A01021\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, csv)
	}))
	defer server.Close()

	symbols, err := NewClient(server.URL, testLogger()).Nifty500Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"RELIANCE", "TCS", "INFY"}, symbols)
}

func TestNifty500SymbolsMissingColumn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Company Name,Industry\nReliance,Energy\n")
	}))
	defer server.Close()

	_, err := NewClient(server.URL, testLogger()).Nifty500Symbols(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Symbol column")
}

func TestNifty500SymbolsServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, testLogger()).Nifty500Symbols(context.Background())
	require.Error(t, err)
	assert.Greater(t, calls, 1, "universe fetch should retry server errors")
}

func TestFallbackSymbols(t *testing.T) {
	fallback := FallbackSymbols()
	assert.Len(t, fallback, 20)
	assert.Contains(t, fallback, "RELIANCE")
	assert.Contains(t, fallback, "HCLTECH")
}
