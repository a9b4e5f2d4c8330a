// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// index builder, the search frontend, caching, logging, and metrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Indexer IndexerConfig `yaml:"indexer"`
	Search  SearchConfig  `yaml:"search"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// IndexerConfig controls the index build: dictionary sizing, per-document
// seen-set capacity, and progress reporting cadence.
type IndexerConfig struct {
	TermBuckets   int `yaml:"termBuckets"`
	SeenSetSize   int `yaml:"seenSetSize"`
	ProgressEvery int `yaml:"progressEvery"`
}

// SearchConfig controls query execution defaults.
type SearchConfig struct {
	DefaultTop int `yaml:"defaultTop"`
}

// RedisConfig holds Redis connection and query-cache parameters. The cache is
// disabled unless Enabled is set; a connection failure degrades the searcher
// to uncached operation.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server. When enabled, both
// the index build and the search frontend (one-shot and stdin mode) serve it.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config sized for corpora up to roughly a million
// unique terms.
func defaultConfig() *Config {
	return &Config{
		Indexer: IndexerConfig{
			TermBuckets:   1 << 20,
			SeenSetSize:   1 << 15,
			ProgressEvery: 500,
		},
		Search: SearchConfig{
			DefaultTop: 20,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

func (c *Config) validate() error {
	if c.Indexer.TermBuckets <= 0 || c.Indexer.TermBuckets&(c.Indexer.TermBuckets-1) != 0 {
		return fmt.Errorf("indexer.termBuckets must be a positive power of two, got %d", c.Indexer.TermBuckets)
	}
	if c.Indexer.SeenSetSize <= 0 || c.Indexer.SeenSetSize&(c.Indexer.SeenSetSize-1) != 0 {
		return fmt.Errorf("indexer.seenSetSize must be a positive power of two, got %d", c.Indexer.SeenSetSize)
	}
	if c.Search.DefaultTop <= 0 {
		return fmt.Errorf("search.defaultTop must be positive, got %d", c.Search.DefaultTop)
	}
	return nil
}

// applyEnvOverrides reads BS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("BS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BS_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("BS_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("BS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("BS_SEARCH_DEFAULT_TOP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Search.DefaultTop = n
		}
	}
}
