package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "IGGRAPH_"

// Config holds every option recognised by the crawler. The crawl keys keep
// their historical snake_case names so existing config files keep working.
type Config struct {
	RateLimitRetries       int     `yaml:"rate_limit_retries" toml:"rate_limit_retries"`
	ExponentialSleepBase   float64 `yaml:"exponential_sleep_base" toml:"exponential_sleep_base"`
	ExponentialSleepOffset float64 `yaml:"exponential_sleep_offset" toml:"exponential_sleep_offset"`
	MaxFollowedScraped     int     `yaml:"max_followed_scraped" toml:"max_followed_scraped"`
	FollowsPageSize        int     `yaml:"follows_page_size" toml:"follows_page_size"`

	AccountsPerBatch IntRange    `yaml:"accounts_per_batch" toml:"accounts_per_batch"`
	Sleep            SleepConfig `yaml:"sleep" toml:"sleep"`

	Instagram InstagramConfig `yaml:"instagram" toml:"instagram"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// IntRange is an inclusive integer range
type IntRange struct {
	Minimum int `yaml:"minimum" toml:"minimum"`
	Maximum int `yaml:"maximum" toml:"maximum"`
}

// SecondsRange is an inclusive range of seconds
type SecondsRange struct {
	Minimum float64 `yaml:"minimum" toml:"minimum"`
	Maximum float64 `yaml:"maximum" toml:"maximum"`
}

// SleepConfig holds the pacing ranges
type SleepConfig struct {
	BetweenAccounts       SecondsRange `yaml:"between_accounts" toml:"between_accounts"`
	BetweenAccountBatches SecondsRange `yaml:"between_account_batches" toml:"between_account_batches"`
}

// InstagramConfig holds upstream connection settings
type InstagramConfig struct {
	SessionID         string        `yaml:"session_id" toml:"session_id"`
	CSRFToken         string        `yaml:"csrf_token" toml:"csrf_token"`
	UserAgent         string        `yaml:"user_agent" toml:"user_agent"`
	BaseURL           string        `yaml:"base_url" toml:"base_url"`
	Timeout           time.Duration `yaml:"timeout" toml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" toml:"requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address" toml:"listen_address"`
}

// DefaultConfig returns a Config instance with conservative pacing
func DefaultConfig() *Config {
	return &Config{
		RateLimitRetries:       5,
		ExponentialSleepBase:   2,
		ExponentialSleepOffset: 10,
		MaxFollowedScraped:     1000,
		FollowsPageSize:        100,
		AccountsPerBatch:       IntRange{Minimum: 4, Maximum: 9},
		Sleep: SleepConfig{
			BetweenAccounts:       SecondsRange{Minimum: 15, Maximum: 45},
			BetweenAccountBatches: SecondsRange{Minimum: 300, Maximum: 600},
		},
		Instagram: InstagramConfig{
			UserAgent:         "Instagram 219.0.0.12.117 Android",
			BaseURL:           "https://i.instagram.com",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv overrides values from IGGRAPH_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(name string, dst *float64) {
		if v := os.Getenv(envPrefix + name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = f
		}
	}

	setString("SESSION_ID", &c.Instagram.SessionID)
	setString("CSRF_TOKEN", &c.Instagram.CSRFToken)
	setString("USER_AGENT", &c.Instagram.UserAgent)
	setString("BASE_URL", &c.Instagram.BaseURL)
	setInt("REQUESTS_PER_MINUTE", &c.Instagram.RequestsPerMinute)
	setInt("RATE_LIMIT_RETRIES", &c.RateLimitRetries)
	setFloat("EXPONENTIAL_SLEEP_BASE", &c.ExponentialSleepBase)
	setFloat("EXPONENTIAL_SLEEP_OFFSET", &c.ExponentialSleepOffset)
	setInt("MAX_FOLLOWED_SCRAPED", &c.MaxFollowedScraped)
	setInt("FOLLOWS_PAGE_SIZE", &c.FollowsPageSize)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FILE", &c.Logging.File)
	setString("METRICS_ADDRESS", &c.Metrics.ListenAddress)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML or TOML file. An empty path
// searches the default locations and is not an error when nothing is found.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// FindConfigFile returns the first existing config file among the default locations
func FindConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		"config.yaml",
		"config.yml",
		"iggraph.toml",
		filepath.Join(home, ".config", "iggraph", "config.yaml"),
		filepath.Join(home, ".config", "iggraph", "config.toml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks every option and reports all problems at once
func (c *Config) Validate() error {
	var errs []error

	if c.RateLimitRetries < 1 {
		errs = append(errs, errors.New("rate_limit_retries must be at least 1"))
	}
	if c.ExponentialSleepBase <= 0 {
		errs = append(errs, errors.New("exponential_sleep_base must be positive"))
	}
	if c.ExponentialSleepOffset < 0 {
		errs = append(errs, errors.New("exponential_sleep_offset cannot be negative"))
	}
	if c.MaxFollowedScraped < 1 {
		errs = append(errs, errors.New("max_followed_scraped must be at least 1"))
	}
	if c.FollowsPageSize < 1 {
		errs = append(errs, errors.New("follows_page_size must be at least 1"))
	}
	if c.AccountsPerBatch.Minimum < 1 || c.AccountsPerBatch.Minimum > c.AccountsPerBatch.Maximum {
		errs = append(errs, errors.New("accounts_per_batch needs 1 <= minimum <= maximum"))
	}
	for name, r := range map[string]SecondsRange{
		"sleep.between_accounts":        c.Sleep.BetweenAccounts,
		"sleep.between_account_batches": c.Sleep.BetweenAccountBatches,
	} {
		if r.Minimum < 0 || r.Minimum > r.Maximum {
			errs = append(errs, fmt.Errorf("%s needs 0 <= minimum <= maximum", name))
		}
	}

	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram.base_url is required"))
	}
	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("instagram.timeout must be positive"))
	}
	if c.Instagram.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("instagram.requests_per_minute cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "warning": true, "error": true, "critical": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save writes the configuration as YAML, or TOML when path ends in .toml
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(path) {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = []byte(sb.String())
	} else {
		var err error
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Redacted returns a copy safe for display
func (c *Config) Redacted() *Config {
	out := *c
	if out.Instagram.SessionID != "" {
		out.Instagram.SessionID = "***"
	}
	if out.Instagram.CSRFToken != "" {
		out.Instagram.CSRFToken = "***"
	}
	return &out
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["session-id"].(string); ok && v != "" {
		c.Instagram.SessionID = v
	}
	if v, ok := flags["csrf-token"].(string); ok && v != "" {
		c.Instagram.CSRFToken = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.ListenAddress = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v > 0 {
		c.Instagram.RequestsPerMinute = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".iggraph.env"))
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
