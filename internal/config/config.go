package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "America/New_York"
	defaultFeedURL      = "https://calendar.ctl.columbia.edu/calendar.json"
	defaultRefreshCron  = "*/15 * * * *"
	defaultCacheDir     = "./var/feed-cache"
	defaultFetchRetries = 2
	defaultPerPage      = 10
	defaultHomepage     = 10
	defaultUpcoming     = 3
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the HTML and API routes.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LogConfig selects the log level and encoder.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format" json:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone feed datetimes are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// FeedURL is the Bedework JSON endpoint.
	FeedURL string `yaml:"feed_url" json:"feed_url"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic feed refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the last good feed body plus ETag/Last-Modified.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// FetchRetries is how many extra attempts a failed fetch gets.
	FetchRetries int `yaml:"fetch_retries" json:"fetch_retries"`

	ItemsPerPage  int `yaml:"items_per_page" json:"items_per_page"`
	HomepageItems int `yaml:"homepage_items" json:"homepage_items"`
	UpcomingItems int `yaml:"upcoming_items" json:"upcoming_items"`

	// CategoryFilter, when non-empty, restricts loading to feed events
	// carrying at least one of these categories.
	CategoryFilter []string `yaml:"category_filter" json:"category_filter"`

	Log LogConfig `yaml:"log" json:"log"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		FeedURL:        defaultFeedURL,
		RefreshCron:    defaultRefreshCron,
		CacheDir:       defaultCacheDir,
		FetchRetries:   defaultFetchRetries,
		ItemsPerPage:   defaultPerPage,
		HomepageItems:  defaultHomepage,
		UpcomingItems:  defaultUpcoming,
		CategoryFilter: []string{},
		Log:            LogConfig{Level: "info", Format: "console"},
		BasicAuth:      nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.FeedURL == "" {
		c.FeedURL = defaultFeedURL
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.FetchRetries < 0 {
		c.FetchRetries = 0
	}
	if c.ItemsPerPage <= 0 {
		c.ItemsPerPage = defaultPerPage
	}
	if c.HomepageItems <= 0 {
		c.HomepageItems = defaultHomepage
	}
	if c.UpcomingItems <= 0 {
		c.UpcomingItems = defaultUpcoming
	}
	if c.CategoryFilter == nil {
		c.CategoryFilter = []string{}
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		c.Log.Format = "console"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ApplyEnv loads an optional .env file and lets CTLCAL_* variables override
// file values. Missing .env is not an error.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("CTLCAL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("CTLCAL_FEED_URL"); v != "" {
		c.FeedURL = v
	}
	if v := os.Getenv("CTLCAL_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("CTLCAL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CTLCAL_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("CTLCAL_FETCH_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.FetchRetries = n
		}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to path atomically (temp file in the
// same directory, then rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".ctlcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
