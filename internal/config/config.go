// Package config provides runtime configuration values for the repricer.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration knobs for the repricing loop, the marketplace
// scraper, the Digiseller API, and the tracking spreadsheet.
type Config struct {
	// repricing loop
	ChunkSize      int
	ChunkPause     time.Duration
	PassSleep      time.Duration
	FlushThreshold int

	// retry
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	// outbound HTTP
	HTTPTimeout time.Duration

	// marketplace
	MarketBaseURL string

	// Digiseller API
	DigisellerBaseURL string
	SellerID          int64
	APIKey            string

	// Google Sheets
	GoogleKeyPath    string
	SpreadsheetID    string
	SheetName        string
	DefaultPrecision int

	// seller-items export
	ExportSpreadsheetID string
	ExportSheetName     string

	// observability
	MetricsAddr     string
	ShutdownTimeout time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func i64env(key string, def int64) int64 {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from a local .env file (if present) and the
// environment, with defaults.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		ChunkSize:      atoienv("CHUNK_SIZE", 10),
		ChunkPause:     durenvs("CHUNK_PAUSE_SEC", 5),
		PassSleep:      durenvs("PASS_SLEEP_SEC", 300),
		FlushThreshold: atoienv("FLUSH_THRESHOLD", 20),

		RetryMaxAttempts:     atoienv("RETRY_MAX_ATTEMPTS", 4),
		RetryInitialInterval: durenvms("RETRY_INITIAL_INTERVAL_MS", 500),
		RetryMaxInterval:     durenvs("RETRY_MAX_INTERVAL_SEC", 10),

		HTTPTimeout: durenvs("HTTP_TIMEOUT_SEC", 30),

		MarketBaseURL: getenv("MARKET_BASE_URL", "https://plati.market"),

		DigisellerBaseURL: getenv("DIGISELLER_BASE_URL", "https://api.digiseller.com"),
		SellerID:          i64env("DIGISELLER_SELLER_ID", 0),
		APIKey:            getenv("DIGISELLER_API_KEY", ""),

		GoogleKeyPath:    getenv("GOOGLE_KEY_PATH", "service-account.json"),
		SpreadsheetID:    getenv("SPREADSHEET_ID", ""),
		SheetName:        getenv("SHEET_NAME", "Products"),
		DefaultPrecision: atoienv("DEFAULT_PRECISION", 2),

		ExportSpreadsheetID: getenv("EXPORT_SPREADSHEET_ID", ""),
		ExportSheetName:     getenv("EXPORT_SHEET_NAME", "Items"),

		MetricsAddr:     getenv("METRICS_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),
	}
}
