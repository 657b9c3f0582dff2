package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Store
	StoreDriver        string
	SQLiteDBPath       string
	DatabaseURL        string
	StoreRetryAttempts int
	StoreRetryBackoff  time.Duration
	StoreTimeout       time.Duration
	DefaultCategories  []string

	// Alerts and summaries
	AlertThreshold               float64
	SummaryIncludeUnspentBudgets bool
	SummaryDay                   int
	SummaryInterval              time.Duration
	SummaryConcurrency           int
	SummaryStatePath             string

	// Notifications
	NotifyMode   string
	SMTPServer   string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// AMQP
	AMQPURL         string
	AMQPExchange    string
	AMQPAlertQueue  string
	AMQPExportQueue string

	// Auth
	JWTSecret string
	JWTTTL    time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

const (
	NotifySMTP  = "smtp"
	NotifyQueue = "queue"
	NotifyNone  = "none"
)

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		StoreDriver:        getEnv("STORE_DRIVER", "sqlite"),
		SQLiteDBPath:       getEnv("SQLITE_DB_PATH", "./data/expenses.db"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		StoreRetryAttempts: getEnvInt("STORE_RETRY_ATTEMPTS", 3),
		StoreRetryBackoff:  getEnvDuration("STORE_RETRY_BACKOFF", 100*time.Millisecond),
		StoreTimeout:       getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		DefaultCategories:  getEnvList("DEFAULT_CATEGORIES", nil),

		AlertThreshold:               getEnvFloat("ALERT_THRESHOLD", 0.9),
		SummaryIncludeUnspentBudgets: getEnvBool("SUMMARY_INCLUDE_UNSPENT_BUDGETS", false),
		SummaryDay:                   getEnvInt("SUMMARY_DAY", 1),
		SummaryInterval:              getEnvDuration("SUMMARY_INTERVAL", time.Hour),
		SummaryConcurrency:           getEnvInt("SUMMARY_CONCURRENCY", 4),
		SummaryStatePath:             getEnv("SUMMARY_STATE_PATH", "./data/summary.state"),

		NotifyMode:   getEnv("NOTIFY_MODE", NotifySMTP),
		SMTPServer:   getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "expensetracker"),
		AMQPAlertQueue:  getEnv("AMQP_ALERT_QUEUE", "budget_alerts"),
		AMQPExportQueue: getEnv("AMQP_EXPORT_QUEUE", "expense_exports"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "tint"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
	}

	return cfg
}

// Validate checks the settings every binary shares and returns all
// problems in one error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.StoreDriver {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLITE_DB_PATH cannot be empty when STORE_DRIVER is sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid store driver '%s': must be one of [sqlite postgres]", c.StoreDriver))
	}

	if c.StoreRetryAttempts < 1 || c.StoreRetryAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid store retry attempts %d: must be between 1 and 10", c.StoreRetryAttempts))
	}
	if c.StoreRetryBackoff < 0 {
		errors = append(errors, fmt.Sprintf("invalid store retry backoff %v: must not be negative", c.StoreRetryBackoff))
	}
	if c.StoreTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must not be negative", c.StoreTimeout))
	}

	if c.AlertThreshold <= 0 || c.AlertThreshold > 1 {
		errors = append(errors, fmt.Sprintf("invalid alert threshold %v: must be in (0, 1]", c.AlertThreshold))
	}
	if c.SummaryDay < 1 || c.SummaryDay > 31 {
		errors = append(errors, fmt.Sprintf("invalid summary day %d: must be between 1 and 31", c.SummaryDay))
	}
	if c.SummaryInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid summary interval %v: must be at least 1 second", c.SummaryInterval))
	}
	if c.SummaryConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary concurrency %d: must be at least 1", c.SummaryConcurrency))
	}

	switch c.NotifyMode {
	case NotifySMTP, NotifyNone:
	case NotifyQueue:
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP_URL is required when NOTIFY_MODE is queue")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid notify mode '%s': must be one of [smtp queue none]", c.NotifyMode))
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
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
		if c.AMQPAlertQueue == "" || c.AMQPExportQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	if c.JWTTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT TTL %v: must be at least 1 minute", c.JWTTTL))
	}

	switch strings.ToLower(c.LogFormat) {
	case "tint", "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [tint text json]", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateServer adds the checks only the HTTP API needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("configuration validation failed:\n- JWT_SECRET must be at least 16 characters")
	}
	return nil
}

// ValidateExport adds the checks the export worker needs.
func (c *Config) ValidateExport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the export worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the export worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file not found: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
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
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
