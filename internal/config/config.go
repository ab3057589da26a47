// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Seeds   []crawl.Seed  `mapstructure:"seeds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Driver   string `mapstructure:"driver"` // "postgres" or "memory"
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// CrawlerConfig governs the task engine.
type CrawlerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueDepth  int `mapstructure:"queue_depth"`
}

// FetcherConfig configures the HTTP fetch client.
type FetcherConfig struct {
	UserAgent      string   `mapstructure:"user_agent"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	DelaySeconds   int      `mapstructure:"delay_seconds"`
	AllowedDomains []string `mapstructure:"allowed_domains"`
}

// ServerConfig controls the ops HTTP server.
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
	v.SetEnvPrefix("CRAWLER")
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("crawler.concurrency", 1)
	v.SetDefault("crawler.queue_depth", 4096)
	v.SetDefault("fetcher.user_agent", "foodcrawler/1.0")
	v.SetDefault("fetcher.timeout_seconds", 15)
	v.SetDefault("fetcher.delay_seconds", 0)
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("seeds", []map[string]any{
		{
			"city": "HongKong",
			"url":  "https://www.yelp.com/search?cflt=restaurants&find_loc=Hong+Kong",
		},
	})
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.driver is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Fetcher.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetcher.timeout_seconds must be > 0")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Seeds) == 0 {
		return fmt.Errorf("at least one seed is required")
	}
	for i, s := range c.Seeds {
		if s.City == "" || s.URL == "" {
			return fmt.Errorf("seed %d must set both city and url", i)
		}
	}
	return nil
}

// FetchTimeout converts the fetcher timeout to a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetcher.TimeoutSeconds) * time.Second
}

// FetchDelay converts the fetcher delay to a duration.
func (c Config) FetchDelay() time.Duration {
	return time.Duration(c.Fetcher.DelaySeconds) * time.Second
}
