package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("CHUNK_PAUSE_SEC", "")
	t.Setenv("PASS_SLEEP_SEC", "")
	t.Setenv("FLUSH_THRESHOLD", "")
	t.Setenv("RETRY_MAX_ATTEMPTS", "")
	t.Setenv("HTTP_TIMEOUT_SEC", "")
	t.Setenv("MARKET_BASE_URL", "")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("DEFAULT_PRECISION", "")
	c := Load()
	if c.ChunkSize != 10 {
		t.Fatalf("ChunkSize default")
	}
	if c.ChunkPause != 5*time.Second || c.PassSleep != 300*time.Second {
		t.Fatalf("pause defaults")
	}
	if c.FlushThreshold != 20 {
		t.Fatalf("FlushThreshold default")
	}
	if c.RetryMaxAttempts != 4 || c.RetryInitialInterval != 500*time.Millisecond {
		t.Fatalf("retry defaults")
	}
	if c.HTTPTimeout != 30*time.Second {
		t.Fatalf("HTTPTimeout default")
	}
	if c.MarketBaseURL != "https://plati.market" {
		t.Fatalf("MarketBaseURL default")
	}
	if c.MetricsAddr != ":8080" {
		t.Fatalf("MetricsAddr default")
	}
	if c.DefaultPrecision != 2 {
		t.Fatalf("DefaultPrecision default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "25")
	t.Setenv("CHUNK_PAUSE_SEC", "1")
	t.Setenv("FLUSH_THRESHOLD", "50")
	t.Setenv("RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("RETRY_INITIAL_INTERVAL_MS", "100")
	t.Setenv("DIGISELLER_SELLER_ID", "12345")
	t.Setenv("DIGISELLER_API_KEY", "key")
	t.Setenv("SPREADSHEET_ID", "sheet-1")
	t.Setenv("METRICS_ADDR", ":9090")
	c := Load()
	if c.ChunkSize != 25 {
		t.Fatalf("ChunkSize env")
	}
	if c.ChunkPause != time.Second {
		t.Fatalf("ChunkPause env")
	}
	if c.FlushThreshold != 50 {
		t.Fatalf("FlushThreshold env")
	}
	if c.RetryMaxAttempts != 7 || c.RetryInitialInterval != 100*time.Millisecond {
		t.Fatalf("retry env")
	}
	if c.SellerID != 12345 || c.APIKey != "key" {
		t.Fatalf("digiseller env")
	}
	if c.SpreadsheetID != "sheet-1" {
		t.Fatalf("SpreadsheetID env")
	}
	if c.MetricsAddr != ":9090" {
		t.Fatalf("MetricsAddr env")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "lots")
	t.Setenv("DIGISELLER_SELLER_ID", "not-a-number")
	c := Load()
	if c.ChunkSize != 10 {
		t.Fatalf("malformed int should fall back to default")
	}
	if c.SellerID != 0 {
		t.Fatalf("malformed int64 should fall back to default")
	}
}
