package config

import (
	"fmt"
	"net/url"
	"time"
)

// Site is one instance of the card list website.
type Site struct {
	BaseURL string `toml:"base_url"`
	Locale  string `toml:"locale"`
	// ImageBase resolves relative card image paths. Empty means BaseURL.
	ImageBase string `toml:"image_base"`
}

// ImageRoot returns the URL card image paths are resolved against.
func (s Site) ImageRoot() string {
	if s.ImageBase != "" {
		return s.ImageBase
	}
	return s.BaseURL
}

// Config holds scraper configuration.
type Config struct {
	Source          Site          `toml:"source"`
	Translation     Site          `toml:"translation"`
	DatabasePath    string        `toml:"database"`
	OutputFile      string        `toml:"output"`
	OutputFormat    string        `toml:"format"` // json or dual
	Delay           time.Duration `toml:"delay"`
	RandomDelay     time.Duration `toml:"random_delay"`
	Timeout         time.Duration `toml:"timeout"`
	MaxRetries      int           `toml:"max_retries"`
	RetryBackoff    time.Duration `toml:"retry_backoff"`
	RetryBackoffMax time.Duration `toml:"retry_backoff_max"`
	BatchSize       int           `toml:"batch_size"`
	DedupeMaxSize   int           `toml:"dedupe_max_size"`
	UserAgent       string        `toml:"user_agent"`
	MetricsAddr     string        `toml:"metrics_addr"`
	Verbose         bool          `toml:"verbose"`
	SkipDownload    bool          `toml:"-"`
}

// DefaultConfig returns defaults for the official card list sites.
func DefaultConfig() *Config {
	return &Config{
		Source: Site{
			BaseURL: "https://onepiece-cardgame.com/cardlist/",
			Locale:  "ja",
		},
		Translation: Site{
			BaseURL:   "https://asia-en.onepiece-cardgame.com/cardlist/",
			Locale:    "en",
			ImageBase: "https://en.onepiece-cardgame.com/cardlist/",
		},
		DatabasePath:    "OPTCG.cdb",
		OutputFile:      "OPTCG.json",
		OutputFormat:    "json",
		Delay:           500 * time.Millisecond,
		RandomDelay:     0,
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    500 * time.Millisecond,
		RetryBackoffMax: 10 * time.Second,
		BatchSize:       64,
		DedupeMaxSize:   50000,
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:         false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := c.Source.validate("source"); err != nil {
		return err
	}
	if err := c.Translation.validate("translation"); err != nil {
		return err
	}
	if c.Source.Locale == c.Translation.Locale {
		return fmt.Errorf("source and translation locales must differ")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be json or dual")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

func (s Site) validate(name string) error {
	if s.BaseURL == "" {
		return fmt.Errorf("%s base URL cannot be empty", name)
	}

	parsedURL, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid %s base URL: %w", name, err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s base URL must include a host", name)
	}
	if s.Locale == "" {
		return fmt.Errorf("%s locale cannot be empty", name)
	}
	if s.ImageBase != "" {
		imageURL, err := url.Parse(s.ImageBase)
		if err != nil {
			return fmt.Errorf("invalid %s image base: %w", name, err)
		}
		if imageURL.Host == "" {
			return fmt.Errorf("%s image base must include a host", name)
		}
	}
	return nil
}
