// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScraperConfig governs the crawl pipeline.
type ScraperConfig struct {
	BaseURL                 string  `mapstructure:"base_url"`
	FullScrape              bool    `mapstructure:"full_scrape"`
	ScrapeFolder            string  `mapstructure:"scrape_folder"`
	LogFolder               string  `mapstructure:"log_folder"`
	IgnorePreviouslyScraped bool    `mapstructure:"ignore_previously_scraped"`
	BufferSize              int     `mapstructure:"buffer_size"`
	TimeSleepLower          float64 `mapstructure:"time_sleep_lower"`
	TimeSleepUpper          float64 `mapstructure:"time_sleep_upper"`
	StoreHTML               bool    `mapstructure:"store_html"`
	MaxPages                int     `mapstructure:"max_pages"`
	HistoryFiles            int     `mapstructure:"history_files"`
}

// HTTPConfig configures HTTP client retry behavior.
type HTTPConfig struct {
	TimeoutSeconds    int `mapstructure:"timeout_seconds"`
	RetryAttempts     int `mapstructure:"retry_attempts"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
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
	v.SetDefault("scraper.base_url", "https://arbeidsplassen.nav.no")
	v.SetDefault("scraper.full_scrape", false)
	v.SetDefault("scraper.scrape_folder", "data/scrapes")
	v.SetDefault("scraper.log_folder", "logs")
	v.SetDefault("scraper.ignore_previously_scraped", true)
	v.SetDefault("scraper.buffer_size", 100)
	v.SetDefault("scraper.time_sleep_lower", 0.75)
	v.SetDefault("scraper.time_sleep_upper", 1.5)
	v.SetDefault("scraper.store_html", false)
	v.SetDefault("scraper.max_pages", 100)
	v.SetDefault("scraper.history_files", 50)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.retry_attempts", 3)
	v.SetDefault("http.retry_delay_seconds", 2)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper.base_url must be set")
	}
	if c.Scraper.ScrapeFolder == "" {
		return fmt.Errorf("scraper.scrape_folder must be set")
	}
	if c.Scraper.BufferSize <= 0 {
		return fmt.Errorf("scraper.buffer_size must be > 0")
	}
	if c.Scraper.TimeSleepLower < 0 {
		return fmt.Errorf("scraper.time_sleep_lower must be >= 0")
	}
	if c.Scraper.TimeSleepUpper < c.Scraper.TimeSleepLower {
		return fmt.Errorf("scraper.time_sleep_upper must be >= scraper.time_sleep_lower")
	}
	if c.Scraper.MaxPages <= 0 {
		return fmt.Errorf("scraper.max_pages must be > 0")
	}
	if c.Scraper.HistoryFiles <= 0 {
		return fmt.Errorf("scraper.history_files must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RetryAttempts <= 0 {
		return fmt.Errorf("http.retry_attempts must be > 0")
	}
	if c.HTTP.RetryDelaySeconds < 0 {
		return fmt.Errorf("http.retry_delay_seconds must be >= 0")
	}
	return nil
}

// Timeout converts the HTTP timeout config into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RetryDelay converts the retry delay config into a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.HTTP.RetryDelaySeconds) * time.Second
}
