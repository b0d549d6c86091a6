package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/liamcoop/pdc/internal/logger"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig holds the PostgreSQL connection. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ChartsConfig points at the flow chart definitions used to seed in-memory stores
type ChartsConfig struct {
	Dir string `yaml:"dir"`
}

// CalculatorConfig tunes questionnaire runs
type CalculatorConfig struct {
	// MaxSteps is the maximum number of questions answered per questionnaire
	MaxSteps int `yaml:"max_steps"`

	// Concurrency is the number of questionnaires run in parallel by batch calculations
	Concurrency int `yaml:"concurrency"`

	// Assumption is recorded for automatic answers whose answerer does not describe one
	Assumption string `yaml:"assumption"`
}

// CacheConfig tunes the item metadata cache
type CacheConfig struct {
	ItemTTL    time.Duration `yaml:"item_ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// LogConfig sets the logging verbosity
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config represents the calculator service configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Charts     ChartsConfig     `yaml:"charts"`
	Calculator CalculatorConfig `yaml:"calculator"`
	Cache      CacheConfig      `yaml:"cache"`
	Log        LogConfig        `yaml:"log"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Charts: ChartsConfig{
			Dir: "charts",
		},
		Calculator: CalculatorConfig{
			MaxSteps:    256,
			Concurrency: 8,
			Assumption:  "answered automatically from the item metadata",
		},
		Cache: CacheConfig{
			ItemTTL:    10 * time.Minute,
			MaxEntries: 10000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from path on top of the defaults.
// A missing file yields the defaults, a malformed one an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from DATABASE_URL, PORT, LOG_LEVEL and PDC_CHARTS_DIR
func (c *Config) ApplyEnv() error {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Server.Port = p
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if dir := os.Getenv("PDC_CHARTS_DIR"); dir != "" {
		c.Charts.Dir = dir
	}
	return nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must be >= 0")
	}
	if c.Calculator.MaxSteps <= 0 {
		return fmt.Errorf("calculator.max_steps must be > 0, got %d", c.Calculator.MaxSteps)
	}
	if c.Calculator.Concurrency <= 0 {
		return fmt.Errorf("calculator.concurrency must be > 0, got %d", c.Calculator.Concurrency)
	}
	if c.Cache.ItemTTL < 0 {
		return fmt.Errorf("cache.item_ttl must be >= 0, got %v", c.Cache.ItemTTL)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be >= 0, got %d", c.Cache.MaxEntries)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
