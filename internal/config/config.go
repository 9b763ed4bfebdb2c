package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server        ServerConfig
	Backend       BackendConfig
	Reporting     ReportingConfig
	Notifications NotificationsConfig
	Sheets        SheetsConfig
	MongoDB       MongoDBConfig
	Log           LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// BackendConfig describes the Wellca management API the dashboard talks to.
type BackendConfig struct {
	BaseURL       string
	PathPrefix    string
	DashboardPath string
	CSRFHeader    string
	CSRFToken     string
	DiscoverCSRF  bool
	Timeout       time.Duration
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
	ChartWidth   int
	ChartHeight  int
}

// NotificationsConfig tunes message bubble timing.
type NotificationsConfig struct {
	Display time.Duration
	Fade    time.Duration
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether weekly reports should be appended to a spreadsheet.
func (c SheetsConfig) Enabled() bool {
	return c.SpreadsheetID != ""
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether weekly report snapshots should be stored.
func (c MongoDBConfig) Enabled() bool {
	return c.URI != ""
}

// LogConfig selects the log level and an optional rotating log file.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	timeout, err := getenvDuration("WELLCA_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	display, err := getenvDuration("MESSAGE_DISPLAY_DURATION", 3000*time.Millisecond)
	if err != nil {
		return nil, err
	}
	fade, err := getenvDuration("MESSAGE_FADE_DURATION", 300*time.Millisecond)
	if err != nil {
		return nil, err
	}
	discover, err := getenvBool("WELLCA_DISCOVER_CSRF", true)
	if err != nil {
		return nil, err
	}

	ints := map[string]int{}
	for key, fallback := range map[string]int{
		"CHART_WIDTH":      1024,
		"CHART_HEIGHT":     400,
		"LOG_MAX_SIZE_MB":  50,
		"LOG_MAX_BACKUPS":  5,
		"LOG_MAX_AGE_DAYS": 28,
	} {
		value, err := getenvInt(key, fallback)
		if err != nil {
			return nil, err
		}
		ints[key] = value
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Backend: BackendConfig{
			BaseURL:       os.Getenv("WELLCA_BASE_URL"),
			PathPrefix:    getenvWithDefault("WELLCA_PATH_PREFIX", "/wellca-management"),
			DashboardPath: getenvWithDefault("WELLCA_DASHBOARD_PATH", "/wellca-management/dashboard"),
			CSRFHeader:    getenvWithDefault("WELLCA_CSRF_HEADER", "X-CSRF-TOKEN"),
			CSRFToken:     os.Getenv("WELLCA_CSRF_TOKEN"),
			DiscoverCSRF:  discover,
			Timeout:       timeout,
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * 5"),
			Timezone:     getenvWithDefault("TIMEZONE", "America/Toronto"),
			ChartWidth:   ints["CHART_WIDTH"],
			ChartHeight:  ints["CHART_HEIGHT"],
		},
		Notifications: NotificationsConfig{
			Display: display,
			Fade:    fade,
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "wellca"),
		},
		Log: LogConfig{
			Level:      getenvWithDefault("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  ints["LOG_MAX_SIZE_MB"],
			MaxBackups: ints["LOG_MAX_BACKUPS"],
			MaxAgeDays: ints["LOG_MAX_AGE_DAYS"],
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Backend.BaseURL == "" {
		return errors.New("WELLCA_BASE_URL must be provided")
	}

	if c.Backend.CSRFToken != "" && c.Backend.CSRFHeader == "" {
		return errors.New("WELLCA_CSRF_HEADER must be provided with WELLCA_CSRF_TOKEN")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	if c.Sheets.Enabled() && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	if c.MongoDB.Enabled() && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	return nil
}

// Location resolves the reporting timezone.
func (c ReportingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s is not a duration: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s is not a number: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s is not a boolean: %w", key, err)
	}
	return b, nil
}
