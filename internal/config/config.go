// Package config provides configuration for the exporter. Values come from an
// optional YAML file overridden by environment variables; everything is read
// once at startup and immutable afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blueberrycongee/litellm-exporter/internal/window"
)

// Config is the complete exporter configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Name           string `yaml:"name"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	SSLMode        string `yaml:"ssl_mode"`
	MinConnections int    `yaml:"min_connections"`
	MaxConnections int    `yaml:"max_connections"`
}

// MetricsConfig contains the exposition port, refresh interval, and the
// time windows bounding the aggregate queries.
type MetricsConfig struct {
	Port           int           `yaml:"port"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	SpendWindow    string        `yaml:"spend_window"`
	RequestWindow  string        `yaml:"request_window"`
	ErrorWindow    string        `yaml:"error_window"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Windows holds the parsed time windows shared by the collectors.
type Windows struct {
	Spend   window.Window
	Request window.Window
	Error   window.Window
}

// Default returns a configuration with the documented defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			Name:           "litellm",
			User:           "postgres",
			Password:       "",
			SSLMode:        "disable",
			MinConnections: 1,
			MaxConnections: 10,
		},
		Metrics: MetricsConfig{
			Port:           9090,
			UpdateInterval: 15 * time.Second,
			SpendWindow:    "30d",
			RequestWindow:  "24h",
			ErrorWindow:    "1h",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if path
// is non-empty), then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables. A set-but-malformed value is a
// configuration error, never a silent fallback to the default.
func (c *Config) applyEnv() error {
	c.Database.Host = envString("LITELLM_DB_HOST", c.Database.Host)
	c.Database.Name = envString("LITELLM_DB_NAME", c.Database.Name)
	c.Database.User = envString("LITELLM_DB_USER", c.Database.User)
	c.Database.Password = envString("LITELLM_DB_PASSWORD", c.Database.Password)
	c.Database.SSLMode = envString("LITELLM_DB_SSLMODE", c.Database.SSLMode)

	c.Metrics.SpendWindow = envString("METRICS_SPEND_WINDOW", c.Metrics.SpendWindow)
	c.Metrics.RequestWindow = envString("METRICS_REQUEST_WINDOW", c.Metrics.RequestWindow)
	c.Metrics.ErrorWindow = envString("METRICS_ERROR_WINDOW", c.Metrics.ErrorWindow)

	c.Logging.Level = envString("LOG_LEVEL", c.Logging.Level)

	var err error
	if c.Database.Port, err = envInt("LITELLM_DB_PORT", c.Database.Port); err != nil {
		return err
	}
	if c.Database.MinConnections, err = envInt("DB_MIN_CONNECTIONS", c.Database.MinConnections); err != nil {
		return err
	}
	if c.Database.MaxConnections, err = envInt("DB_MAX_CONNECTIONS", c.Database.MaxConnections); err != nil {
		return err
	}
	if c.Metrics.Port, err = envInt("METRICS_PORT", c.Metrics.Port); err != nil {
		return err
	}
	if c.Metrics.UpdateInterval, err = envSeconds("METRICS_UPDATE_INTERVAL", c.Metrics.UpdateInterval); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration. Window specs and pool bounds are
// configuration, not runtime data, so any problem here is fatal at startup.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host must not be empty")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database port %d out of range", c.Database.Port)
	}
	if c.Database.MinConnections < 0 {
		return fmt.Errorf("min connections must not be negative")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("max connections must be at least 1")
	}
	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("min connections %d exceeds max connections %d",
			c.Database.MinConnections, c.Database.MaxConnections)
	}
	if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics port %d out of range", c.Metrics.Port)
	}
	if c.Metrics.UpdateInterval <= 0 {
		return fmt.Errorf("update interval must be positive")
	}
	if _, err := c.ParseWindows(); err != nil {
		return err
	}
	return nil
}

// ParseWindows parses the three configured window specs.
func (c *Config) ParseWindows() (Windows, error) {
	spend, err := window.Parse(c.Metrics.SpendWindow)
	if err != nil {
		return Windows{}, fmt.Errorf("spend window: %w", err)
	}
	request, err := window.Parse(c.Metrics.RequestWindow)
	if err != nil {
		return Windows{}, fmt.Errorf("request window: %w", err)
	}
	errWindow, err := window.Parse(c.Metrics.ErrorWindow)
	if err != nil {
		return Windows{}, fmt.Errorf("error window: %w", err)
	}
	return Windows{Spend: spend, Request: request, Error: errWindow}, nil
}

func envString(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

// envSeconds reads an interval expressed as integer seconds ("15") or Go
// duration syntax ("15s").
func envSeconds(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	return 0, fmt.Errorf("%s: invalid interval %q", key, value)
}
