package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration: defaults in code, then an
// optional YAML file, then environment overrides, in that order.
type Config struct {
	City          string          `yaml:"city"`
	MaxProperties int             `yaml:"max_properties"`
	Storage       StorageConfig   `yaml:"storage"`
	Crawler       CrawlerConfig   `yaml:"crawler"`
	Browser       BrowserConfig   `yaml:"browser"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
	Admin         AdminConfig     `yaml:"admin"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// StorageConfig selects and locates the embedded backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // sqlite or duckdb
	Path    string `yaml:"path"`
}

// CrawlerConfig contains frontier and pacing settings.
type CrawlerConfig struct {
	ConcurrencyMin    int  `yaml:"concurrency_min"`
	ConcurrencyMax    int  `yaml:"concurrency_max"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	DelayMinMs        int  `yaml:"delay_min_ms"`
	DelayMaxMs        int  `yaml:"delay_max_ms"`
	RotateSession     bool `yaml:"rotate_session"`
	SessionDelayMinMs int  `yaml:"session_delay_min_ms"`
	SessionDelayMaxMs int  `yaml:"session_delay_max_ms"`
	MaxRetries        int  `yaml:"max_retries"`
	BatchSize         int  `yaml:"batch_size"`
	SearchPageLimit   int  `yaml:"search_page_limit"`
}

// BrowserConfig contains headless-Chrome settings.
type BrowserConfig struct {
	ExecPath       string `yaml:"exec_path"`
	Headless       bool   `yaml:"headless"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SchedulerConfig contains the daily-run settings.
type SchedulerConfig struct {
	DailyRunEnabled bool   `yaml:"daily_run_enabled"`
	DailyRunTime    string `yaml:"daily_run_time"`
}

// AdminConfig contains the operational HTTP API settings.
type AdminConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		City:          "חיפה",
		MaxProperties: 100,
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "data/madlan.db",
		},
		Crawler: CrawlerConfig{
			ConcurrencyMin:    1,
			ConcurrencyMax:    2,
			RequestsPerMinute: 10,
			DelayMinMs:        2000,
			DelayMaxMs:        6000,
			RotateSession:     true,
			SessionDelayMinMs: 1000,
			SessionDelayMaxMs: 4000,
			MaxRetries:        3,
			BatchSize:         10,
			SearchPageLimit:   50,
		},
		Browser: BrowserConfig{
			Headless:       true,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			TimeoutSeconds: 30,
		},
		Scheduler: SchedulerConfig{
			DailyRunEnabled: false,
			DailyRunTime:    "02:00",
		},
		Admin: AdminConfig{
			Enabled:    false,
			ListenAddr: ":8090",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides. A missing file is not an error; defaults and
// the environment still apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers MADLAN_* environment variables over the config.
func (c *Config) applyEnv() {
	setString(&c.City, "MADLAN_CITY")
	setInt(&c.MaxProperties, "MADLAN_MAX_PROPERTIES")
	setString(&c.Storage.Backend, "MADLAN_STORAGE_BACKEND")
	setString(&c.Storage.Path, "MADLAN_STORAGE_PATH")
	setInt(&c.Crawler.ConcurrencyMin, "MADLAN_CONCURRENCY_MIN")
	setInt(&c.Crawler.ConcurrencyMax, "MADLAN_CONCURRENCY_MAX")
	setInt(&c.Crawler.RequestsPerMinute, "MADLAN_REQUESTS_PER_MINUTE")
	setInt(&c.Crawler.DelayMinMs, "MADLAN_DELAY_MIN_MS")
	setInt(&c.Crawler.DelayMaxMs, "MADLAN_DELAY_MAX_MS")
	setBool(&c.Crawler.RotateSession, "MADLAN_ROTATE_SESSION")
	setInt(&c.Crawler.SessionDelayMinMs, "MADLAN_SESSION_DELAY_MIN_MS")
	setInt(&c.Crawler.SessionDelayMaxMs, "MADLAN_SESSION_DELAY_MAX_MS")
	setInt(&c.Crawler.MaxRetries, "MADLAN_MAX_RETRIES")
	setInt(&c.Crawler.BatchSize, "MADLAN_BATCH_SIZE")
	setInt(&c.Crawler.SearchPageLimit, "MADLAN_SEARCH_PAGE_LIMIT")
	setString(&c.Browser.ExecPath, "MADLAN_CHROME_PATH")
	setBool(&c.Browser.Headless, "MADLAN_HEADLESS")
	setString(&c.Browser.UserAgent, "MADLAN_USER_AGENT")
	setInt(&c.Browser.TimeoutSeconds, "MADLAN_BROWSER_TIMEOUT_SECONDS")
	setBool(&c.Scheduler.DailyRunEnabled, "MADLAN_DAILY_RUN_ENABLED")
	setString(&c.Scheduler.DailyRunTime, "MADLAN_DAILY_RUN_TIME")
	setBool(&c.Admin.Enabled, "MADLAN_ADMIN_ENABLED")
	setString(&c.Admin.ListenAddr, "MADLAN_ADMIN_LISTEN_ADDR")
	setString(&c.Logging.Level, "MADLAN_LOG_LEVEL")
}

// Validate checks every configuration invariant and returns the full
// list of violations; the process must not start crawling unless it
// is empty.
func (c *Config) Validate() []error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.City == "" {
		add("city must not be empty")
	}
	if c.MaxProperties < 0 {
		add("max_properties must be non-negative, got %d", c.MaxProperties)
	}
	if c.Storage.Backend != "sqlite" && c.Storage.Backend != "duckdb" {
		add("storage.backend must be sqlite or duckdb, got %q", c.Storage.Backend)
	}
	if c.Storage.Path == "" {
		add("storage.path must not be empty")
	}
	if c.Crawler.ConcurrencyMin < 1 {
		add("crawler.concurrency_min must be at least 1, got %d", c.Crawler.ConcurrencyMin)
	}
	if c.Crawler.ConcurrencyMax < c.Crawler.ConcurrencyMin {
		add("crawler.concurrency_max (%d) must be >= concurrency_min (%d)",
			c.Crawler.ConcurrencyMax, c.Crawler.ConcurrencyMin)
	}
	if c.Crawler.RequestsPerMinute < 0 {
		add("crawler.requests_per_minute must be non-negative, got %d", c.Crawler.RequestsPerMinute)
	}
	if c.Crawler.DelayMinMs < 0 {
		add("crawler.delay_min_ms must be non-negative, got %d", c.Crawler.DelayMinMs)
	}
	if c.Crawler.DelayMaxMs < c.Crawler.DelayMinMs {
		add("crawler.delay_max_ms (%d) must be >= delay_min_ms (%d)",
			c.Crawler.DelayMaxMs, c.Crawler.DelayMinMs)
	}
	if c.Crawler.SessionDelayMinMs < 0 {
		add("crawler.session_delay_min_ms must be non-negative, got %d", c.Crawler.SessionDelayMinMs)
	}
	if c.Crawler.SessionDelayMaxMs < c.Crawler.SessionDelayMinMs {
		add("crawler.session_delay_max_ms (%d) must be >= session_delay_min_ms (%d)",
			c.Crawler.SessionDelayMaxMs, c.Crawler.SessionDelayMinMs)
	}
	if c.Crawler.MaxRetries < 0 {
		add("crawler.max_retries must be non-negative, got %d", c.Crawler.MaxRetries)
	}
	if c.Crawler.BatchSize < 1 {
		add("crawler.batch_size must be at least 1, got %d", c.Crawler.BatchSize)
	}
	if c.Crawler.SearchPageLimit < 1 {
		add("crawler.search_page_limit must be at least 1, got %d", c.Crawler.SearchPageLimit)
	}
	if c.Browser.TimeoutSeconds < 1 {
		add("browser.timeout_seconds must be at least 1, got %d", c.Browser.TimeoutSeconds)
	}

	return errs
}

// DelayMin returns the minimum per-request delay as a duration.
func (c *CrawlerConfig) DelayMin() time.Duration {
	return time.Duration(c.DelayMinMs) * time.Millisecond
}

// DelayMax returns the maximum per-request delay as a duration.
func (c *CrawlerConfig) DelayMax() time.Duration {
	return time.Duration(c.DelayMaxMs) * time.Millisecond
}

// SessionDelayMin returns the minimum session-launch delay.
func (c *CrawlerConfig) SessionDelayMin() time.Duration {
	return time.Duration(c.SessionDelayMinMs) * time.Millisecond
}

// SessionDelayMax returns the maximum session-launch delay.
func (c *CrawlerConfig) SessionDelayMax() time.Duration {
	return time.Duration(c.SessionDelayMaxMs) * time.Millisecond
}

// Timeout returns the browser navigation timeout.
func (c *BrowserConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
