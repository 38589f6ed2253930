// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/recipeharvest/crawler/internal/scraper"
)

// Config captures all crawler configuration knobs loaded via Viper.
type Config struct {
	Site      SiteConfig        `mapstructure:"site"`
	Crawler   CrawlerConfig     `mapstructure:"crawler"`
	HTTP      HTTPConfig        `mapstructure:"http"`
	Storage   StorageConfig     `mapstructure:"storage"`
	DB        DBConfig          `mapstructure:"db"`
	PubSub    PubSubConfig      `mapstructure:"pubsub"`
	Server    ServerConfig      `mapstructure:"server"`
	Logging   LoggingConfig     `mapstructure:"logging"`
	Selectors scraper.Selectors `mapstructure:"selectors"`
}

// SiteConfig identifies the site being crawled.
type SiteConfig struct {
	IndexURL string `mapstructure:"index_url"`
	ItemCap  int    `mapstructure:"item_cap"`
}

// CrawlerConfig governs session and pool behavior.
type CrawlerConfig struct {
	Concurrency   int    `mapstructure:"concurrency"`
	UserAgent     string `mapstructure:"user_agent"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	SettleMs      int    `mapstructure:"settle_ms"`
}

// HTTPConfig configures the plain-HTTP fetch path (index page, images).
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// StorageConfig sets snapshot and image persistence destinations.
type StorageConfig struct {
	// Backend selects the cloud store implementation: gcs, local, memory.
	Backend    string `mapstructure:"backend"`
	GCSBucket  string `mapstructure:"gcs_bucket"`
	Prefix     string `mapstructure:"prefix"`
	StagingDir string `mapstructure:"staging_dir"`
	LocalDir   string `mapstructure:"local_dir"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for record-persisted notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the status/metrics HTTP endpoint.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Selectors == (scraper.Selectors{}) {
		cfg.Selectors = scraper.DefaultSelectors()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.index_url", "https://www.bbc.co.uk/food/recipes/a-z/a/1#featured-content")
	v.SetDefault("site.item_cap", scraper.DefaultItemCap)
	v.SetDefault("crawler.concurrency", 1)
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/83.0.4103.116 Safari/537.36")
	v.SetDefault("crawler.nav_timeout_seconds", 45)
	v.SetDefault("crawler.settle_ms", 3000)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.staging_dir", "raw_recipe_data")
	v.SetDefault("storage.local_dir", "recipe_objects")
	v.SetDefault("db.table", "recipe_data")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Site.IndexURL == "" {
		return fmt.Errorf("site.index_url is required")
	}
	if c.Site.ItemCap <= 0 {
		return fmt.Errorf("site.item_cap must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required when backend is gcs")
		}
	case "local", "memory":
	default:
		return fmt.Errorf("storage.backend must be gcs, local, or memory")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when server is enabled")
	}
	return nil
}

// NavTimeout returns the session navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Crawler.NavTimeoutSec) * time.Second
}

// Settle returns the post-render settle delay as a duration.
func (c Config) Settle() time.Duration {
	return time.Duration(c.Crawler.SettleMs) * time.Millisecond
}

// HTTPTimeout returns the plain-HTTP fetch timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
