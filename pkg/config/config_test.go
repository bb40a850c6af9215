package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Lake.BasePath != "data/lake" {
		t.Errorf("Expected BasePath to be data/lake, got %s", cfg.Lake.BasePath)
	}

	if cfg.ETL.RequestDelay != 350*time.Millisecond {
		t.Errorf("Expected RequestDelay to be 350ms, got %v", cfg.ETL.RequestDelay)
	}

	if len(cfg.ETL.Underlyings) != 2 {
		t.Errorf("Expected 2 default underlyings, got %v", cfg.ETL.Underlyings)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("ENV", "production")
	os.Setenv("DATA_LAKE_PATH", "/var/lib/lake")
	os.Setenv("UNDERLYINGS", "BANKNIFTY, NIFTY, FINNIFTY")
	os.Setenv("KITE_REQUEST_DELAY", "500ms")
	os.Setenv("NIFTY500_MAX_INSTRUMENTS", "25")
	os.Setenv("LOG_LEVEL", "info")

	defer func() {
		os.Unsetenv("ENV")
		os.Unsetenv("DATA_LAKE_PATH")
		os.Unsetenv("UNDERLYINGS")
		os.Unsetenv("KITE_REQUEST_DELAY")
		os.Unsetenv("NIFTY500_MAX_INSTRUMENTS")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}

	if cfg.Lake.BasePath != "/var/lib/lake" {
		t.Errorf("Expected BasePath to be /var/lib/lake, got %s", cfg.Lake.BasePath)
	}

	if len(cfg.ETL.Underlyings) != 3 || cfg.ETL.Underlyings[2] != "FINNIFTY" {
		t.Errorf("Expected 3 underlyings ending in FINNIFTY, got %v", cfg.ETL.Underlyings)
	}

	if cfg.ETL.RequestDelay != 500*time.Millisecond {
		t.Errorf("Expected RequestDelay to be 500ms, got %v", cfg.ETL.RequestDelay)
	}

	if cfg.ETL.MaxInstruments != 25 {
		t.Errorf("Expected MaxInstruments to be 25, got %d", cfg.ETL.MaxInstruments)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel to be info, got %s", cfg.LogLevel)
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	os.Setenv("ENV", "sandbox")
	defer os.Unsetenv("ENV")

	if _, err := Load(); err == nil {
		t.Error("Expected validation error for invalid ENV")
	}
}

func TestLoadInvalidDelay(t *testing.T) {
	os.Setenv("KITE_REQUEST_DELAY", "-1s")
	defer os.Unsetenv("KITE_REQUEST_DELAY")

	if _, err := Load(); err == nil {
		t.Error("Expected validation error for negative request delay")
	}
}

func TestGetEnvAsList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"simple", "A,B,C", []string{"A", "B", "C"}},
		{"with spaces", " A , B ", []string{"A", "B"}},
		{"trailing comma", "A,B,", []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("TEST_LIST_KEY", tt.value)
			defer os.Unsetenv("TEST_LIST_KEY")

			got := getEnvAsList("TEST_LIST_KEY", "")
			if len(got) != len(tt.want) {
				t.Fatalf("getEnvAsList() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("getEnvAsList()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
