package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"paydo/internal/budget"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend       string
	DataDir           string
	SQLiteDBPath      string
	StorageKey        string
	LegacyStorageKeys []string

	// Ledger
	Timezone        string
	TagPolicy       string
	ReportCacheSize int
	ReportCacheTTL  time.Duration

	LogLevel string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	AMQPPrefetch int

	// Elasticsearch sink, disabled when no URLs are set
	ElasticsearchURLs  []string
	ElasticsearchIndex string

	// Google Sheets sink, disabled when no spreadsheet is set
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

var storageKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:       getEnv("DATA_BACKEND", "file"),
		DataDir:           getEnv("DATA_DIR", "./data"),
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/paydo.db"),
		StorageKey:        getEnv("STORAGE_KEY", "poolaki_data_v2"),
		LegacyStorageKeys: getEnvList("LEGACY_STORAGE_KEYS", []string{"poolaki_data"}),

		Timezone:        getEnv("TIMEZONE", "Asia/Tehran"),
		TagPolicy:       getEnv("BUDGET_TAG_POLICY", string(budget.AllTags)),
		ReportCacheSize: getEnvInt("REPORT_CACHE_SIZE", 64),
		ReportCacheTTL:  getEnvDuration("REPORT_CACHE_TTL", 10*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "paydo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),
		AMQPPrefetch: getEnvInt("AMQP_PREFETCH", 10),

		ElasticsearchURLs:  getEnvList("ELASTICSEARCH_URLS", nil),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "paydo-transactions"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory":
	case "file":
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file backend")
		} else if err := ensureDir(c.DataDir); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := ensureDir(dir); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory file sqlite]", c.DataBackend))
	}

	for _, key := range append([]string{c.StorageKey}, c.LegacyStorageKeys...) {
		if !storageKeyPattern.MatchString(key) {
			errors = append(errors, fmt.Sprintf("invalid storage key '%s': use letters, digits, '.', '_' or '-'", key))
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if !budget.Policy(c.TagPolicy).IsValid() {
		errors = append(errors, fmt.Sprintf("invalid budget tag policy '%s': must be 'all' or 'first'", c.TagPolicy))
	}
	if c.ReportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}
	if c.ReportCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must not be negative", c.ReportCacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPPrefetch < 1 {
			errors = append(errors, fmt.Sprintf("invalid AMQP prefetch %d: must be at least 1", c.AMQPPrefetch))
		}
	}

	for _, raw := range c.ElasticsearchURLs {
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid Elasticsearch URL '%s': must be http or https", raw))
		}
	}
	if len(c.ElasticsearchURLs) > 0 && c.ElasticsearchIndex == "" {
		errors = append(errors, "Elasticsearch index cannot be empty when Elasticsearch URLs are provided")
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		hasFile := c.GoogleCredentialsFile != ""
		if !hasFile && c.GoogleCredentialsJSON == "" {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for the sheets sink")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
