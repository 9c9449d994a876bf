package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	HTTPHost string `envconfig:"HTTP_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8010"`

	// SimilarityThreshold is the lexical overlap score above which an
	// incoming draft is flagged as a duplicate of an existing article.
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.7"`

	FeedsFile         string        `envconfig:"FEEDS_FILE" default:""`
	CrawlInterval     time.Duration `envconfig:"CRAWL_INTERVAL" default:"15m"`
	CrawlRateLimit    float64       `envconfig:"CRAWL_RATE_LIMIT" default:"1"`
	CrawlFetchContent bool          `envconfig:"CRAWL_FETCH_CONTENT" default:"true"`

	// ArchiveDatabaseURL enables the optional Postgres archive sink when
	// set. The in-memory engine never reads from the archive.
	ArchiveDatabaseURL string `envconfig:"ARCHIVE_DATABASE_URL" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.CrawlInterval < time.Minute {
		return fmt.Errorf("CRAWL_INTERVAL must be at least 1m")
	}
	if c.CrawlRateLimit <= 0 {
		return fmt.Errorf("CRAWL_RATE_LIMIT must be positive")
	}
	return nil
}

// CrawlEnabled reports whether a feeds file was configured.
func (c *Config) CrawlEnabled() bool {
	return strings.TrimSpace(c.FeedsFile) != ""
}
