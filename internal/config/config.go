// ABOUTME: Configuration loading and parsing for aa-tracker
// ABOUTME: Supports YAML or TOML files with environment variable expansion, .env files and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied before a file or the environment is read.
const (
	DefaultHTTPAddr          = "0.0.0.0:8080"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultQueryTimeout      = 5 * time.Second
	DefaultMaxAge            = 24 * time.Hour
	DefaultMetricsPath       = "/metrics"
)

// Config represents the complete aa-tracker configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Telegram TelegramConfig `yaml:"telegram" toml:"telegram"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	HTTPAddr          string        `yaml:"http_addr" toml:"http_addr"`
	ReadHeaderTimeout time.Duration `yaml:"-" toml:"-"`

	ReadHeaderTimeoutRaw string `yaml:"read_header_timeout" toml:"read_header_timeout"`
}

// DatabaseConfig holds database configuration.
// Target is a SQLite path or a postgres:// URL.
type DatabaseConfig struct {
	Target       string        `yaml:"target" toml:"target"`
	MaxOpenConns int           `yaml:"max_open_conns" toml:"max_open_conns"`
	QueryTimeout time.Duration `yaml:"-" toml:"-"`

	QueryTimeoutRaw string `yaml:"query_timeout" toml:"query_timeout"`
}

// TelegramConfig holds the bot credentials used to verify init data
type TelegramConfig struct {
	BotToken      string        `yaml:"bot_token" toml:"bot_token"`
	StrictParsing bool          `yaml:"strict_parsing" toml:"strict_parsing"`
	MaxAge        time.Duration `yaml:"-" toml:"-"`

	MaxAgeRaw string `yaml:"max_age" toml:"max_age"`
}

// AuthConfig controls per-request authentication of task routes
type AuthConfig struct {
	RequireInitData bool `yaml:"require_init_data" toml:"require_init_data"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Default returns a Config with every optional field set.
// database.target and telegram.bot_token have no default and must be supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:          DefaultHTTPAddr,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
		},
		Database: DatabaseConfig{
			QueryTimeout: DefaultQueryTimeout,
		},
		Telegram: TelegramConfig{
			MaxAge: DefaultMaxAge,
		},
		Auth: AuthConfig{
			RequireInitData: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Path: DefaultMetricsPath,
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a Config from the process environment when no file is given.
//
//	BOT_TOKEN             telegram.bot_token (required)
//	DATABASE_URL          database.target (required)
//	HTTP_ADDR             server.http_addr
//	LOG_LEVEL             logging.level
//	LOG_FORMAT            logging.format
//	INIT_DATA_MAX_AGE     telegram.max_age
//	REQUIRE_INIT_DATA     auth.require_init_data (default true)
//	METRICS_ENABLED       metrics.enabled
func FromEnv() (*Config, error) {
	cfg := Default()

	cfg.Telegram.BotToken = os.Getenv("BOT_TOKEN")
	setString(&cfg.Database.Target, "DATABASE_URL")
	setString(&cfg.Server.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Telegram.MaxAgeRaw, "INIT_DATA_MAX_AGE")

	var err error
	if cfg.Auth.RequireInitData, err = envBool("REQUIRE_INIT_DATA", true); err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled, err = envBool("METRICS_ENABLED", false); err != nil {
		return nil, err
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set are not overridden. A missing file is an error only when required.
func LoadEnvFile(path string, required bool) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading env file %s: %w", path, err)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// envBool parses key as a bool, returning def when it is unset or empty.
func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s %q: %w", key, v, err)
	}
	return b, nil
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Database.Target == "" {
		return fmt.Errorf("database.target is required")
	}
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Telegram.MaxAge <= 0 {
		return fmt.Errorf("telegram.max_age must be positive")
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("database.query_timeout must be positive")
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.read_header_timeout", cfg.Server.ReadHeaderTimeoutRaw, &cfg.Server.ReadHeaderTimeout},
		{"database.query_timeout", cfg.Database.QueryTimeoutRaw, &cfg.Database.QueryTimeout},
		{"telegram.max_age", cfg.Telegram.MaxAgeRaw, &cfg.Telegram.MaxAge},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
