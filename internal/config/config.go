package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spendlens/internal/core"
	"spendlens/internal/log"
)

// Backend names accepted in DATA_BACKEND.
const (
	BackendAPI    = "api"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

var validBackends = []string{BackendAPI, BackendMemory, BackendSQLite, BackendSheets}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	MaxUploadBytes     int64

	// Backend selection
	DataBackend string

	// Remote statement service
	StatementAPIURL     string
	StatementAPITimeout time.Duration
	StatementAPIRate    int

	// Remote reads cache, off unless STATEMENT_CACHE_TTL is set
	StatementCacheTTL  time.Duration
	StatementCacheSize int

	// Local backends
	SQLiteDBPath   string
	MemorySeedFile string

	// AMQP, optional for the server
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Analytics
	ExcludedCategory string
	TopCategories    int
	DashboardMonths  int

	// Worker
	BackfillBatchSize int
	BackfillInterval  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),

		StatementAPIURL:     getEnv("STATEMENT_API_URL", ""),
		StatementAPITimeout: getEnvDuration("STATEMENT_API_TIMEOUT", 15*time.Second),
		StatementAPIRate:    getEnvInt("STATEMENT_API_RATE", 10),

		StatementCacheTTL:  getEnvDuration("STATEMENT_CACHE_TTL", 0),
		StatementCacheSize: getEnvInt("STATEMENT_CACHE_SIZE", 64),

		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/spendlens.db"),
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendlens"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "category_changes"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Summaries"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		ExcludedCategory: getEnv("EXCLUDED_CATEGORY", core.ExcludedCategory),
		TopCategories:    getEnvInt("TOP_CATEGORIES", 6),
		DashboardMonths:  getEnvInt("DASHBOARD_MONTHS", 6),

		BackfillBatchSize: getEnvInt("BACKFILL_BATCH_SIZE", 200),
		BackfillInterval:  getEnvDuration("BACKFILL_INTERVAL", time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendAPI:
		if c.StatementAPIURL == "" {
			errors = append(errors, "STATEMENT_API_URL is required when using api backend")
		} else if u, err := url.Parse(c.StatementAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid statement API URL '%s': must be an absolute http(s) URL", c.StatementAPIURL))
		}
		if c.StatementAPITimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid statement API timeout %v: must be positive", c.StatementAPITimeout))
		}
		if c.StatementAPIRate < 1 {
			errors = append(errors, fmt.Sprintf("invalid statement API rate %d: must be at least 1 request per second", c.StatementAPIRate))
		}

	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}

	case BackendMemory:
		if c.MemorySeedFile != "" {
			if _, err := os.Stat(c.MemorySeedFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("memory seed file does not exist: %s", c.MemorySeedFile))
			}
		}

	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// AMQP is optional; when set it must be complete
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
	}

	if c.StatementCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid statement cache TTL %v: must not be negative", c.StatementCacheTTL))
	}
	if c.StatementCacheTTL > 0 && c.StatementCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid statement cache size %d: must be at least 1", c.StatementCacheSize))
	}

	if c.ExcludedCategory != "" && !core.IsValidCategory(c.ExcludedCategory) {
		errors = append(errors, fmt.Sprintf("invalid excluded category '%s'", c.ExcludedCategory))
	}
	if c.TopCategories < 1 || c.TopCategories > len(core.Categories()) {
		errors = append(errors, fmt.Sprintf("invalid top categories %d: must be between 1 and %d", c.TopCategories, len(core.Categories())))
	}
	if c.DashboardMonths < 1 || c.DashboardMonths > 60 {
		errors = append(errors, fmt.Sprintf("invalid dashboard months %d: must be between 1 and 60", c.DashboardMonths))
	}

	// Validate worker configuration
	if c.BackfillBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid backfill batch size %d: must be at least 1", c.BackfillBatchSize))
	} else if c.BackfillBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid backfill batch size %d: must be at most 1000", c.BackfillBatchSize))
	}
	if c.BackfillInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid backfill interval %v: must be at least 1 second", c.BackfillInterval))
	} else if c.BackfillInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid backfill interval %v: must be at most 24 hours", c.BackfillInterval))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if format := strings.ToLower(c.LogFormat); format != "text" && format != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// LoggerConfig translates the logging keys for log.New.
func (c *Config) LoggerConfig(component string) log.Config {
	cfg := log.DefaultConfig()
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		cfg.Level = level
	}
	cfg.Format = strings.ToLower(c.LogFormat)
	cfg.Component = component
	return cfg
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
