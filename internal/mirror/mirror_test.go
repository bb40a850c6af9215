package mirror

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamal2131/stock-etl-airflow/pkg/config"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.NewWriter(io.Discard, "error")
}

func TestIsConfigured(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.S3Config
		want bool
	}{
		{"fully configured", config.S3Config{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}, true},
		{"no bucket", config.S3Config{AccessKeyID: "k", SecretAccessKey: "s"}, false},
		{"no credentials", config.S3Config{Bucket: "b"}, false},
		{"empty", config.S3Config{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, New(tc.cfg, testLogger()).IsConfigured())
		})
	}
}

func TestUploadUnconfigured(t *testing.T) {
	m := New(config.S3Config{}, testLogger())
	err := m.Upload(context.Background(), "/tmp/nope.parquet", "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestEquityKey(t *testing.T) {
	date := time.Date(2025, 6, 17, 0, 0, 0, 0, time.Local)
	assert.Equal(t, "nifty500/date=2025-06-17/data.parquet", EquityKey(date, "data.parquet"))
}
