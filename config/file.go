// Package config loads newsgrab settings from ~/.newsgrab/config.yaml and
// NEWSGRAB_* environment variables, and sets up logging.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/pevans/newsgrab/browser"
	"github.com/pevans/newsgrab/scraper"
	"github.com/pevans/newsgrab/search"
)

// Search providers.
const (
	ProviderGoogle = "google"
	ProviderFeed   = "feed"
)

// BrowserConfig controls the Chrome instance each article is scraped in.
type BrowserConfig struct {
	Headless       bool          `yaml:"headless"`
	LogLevel       int           `yaml:"log_level"`
	ExecPath       string        `yaml:"exec_path"`
	WindowWidth    int           `yaml:"window_width"`
	WindowHeight   int           `yaml:"window_height"`
	UserAgent      string        `yaml:"user_agent"`
	ActionTimeout  time.Duration `yaml:"action_timeout"`
	ElementTimeout time.Duration `yaml:"element_timeout"`
}

// WaitConfig overrides the page interaction policy.
type WaitConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	MaxWait           time.Duration `yaml:"max_wait"`
	ScrollSettle      time.Duration `yaml:"scroll_settle"`
	ClickSettle       time.Duration `yaml:"click_settle"`
	MaxScrollSteps    int           `yaml:"max_scroll_steps"`
	MaxCarouselClicks int           `yaml:"max_carousel_clicks"`
}

// SearchConfig selects and configures the search provider.
type SearchConfig struct {
	Provider     string   `yaml:"provider"`
	Site         string   `yaml:"site"`
	RapidAPIKey  string   `yaml:"rapidapi_key"`
	RapidAPIHost string   `yaml:"rapidapi_host"`
	BaseURL      string   `yaml:"base_url"`
	Country      string   `yaml:"country"`
	Feeds        []string `yaml:"feeds"`
}

// StorageConfig locates the record archive and the run database.
type StorageConfig struct {
	ArchiveDir string `yaml:"archive_dir"`
	RunsDSN    string `yaml:"runs_dsn"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config represents the structure of ~/.newsgrab/config.yaml.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Wait    WaitConfig    `yaml:"wait"`
	Search  SearchConfig  `yaml:"search"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	site := scraper.APNews()
	opts := browser.DefaultOptions()
	dir := dataDir()

	return &Config{
		Browser: BrowserConfig{
			Headless:       opts.Headless,
			LogLevel:       opts.LogLevel,
			WindowWidth:    opts.WindowWidth,
			WindowHeight:   opts.WindowHeight,
			ActionTimeout:  opts.ActionTimeout,
			ElementTimeout: opts.ElementTimeout,
		},
		Wait: WaitConfig{
			PollInterval:      site.PollInterval,
			MaxWait:           site.MaxWait,
			ScrollSettle:      site.ScrollSettle,
			ClickSettle:       site.ClickSettle,
			MaxScrollSteps:    site.MaxScrollSteps,
			MaxCarouselClicks: site.MaxCarouselClicks,
		},
		Search: SearchConfig{
			Provider: ProviderGoogle,
			Site:     "apnews.com/article",
			Country:  "ES",
		},
		Storage: StorageConfig{
			ArchiveDir: filepath.Join(dir, "articles"),
			RunsDSN:    filepath.Join(dir, "runs.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// dataDir is ~/.newsgrab, or the working directory if there is no home.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".newsgrab")
}

// DefaultPath returns ~/.newsgrab/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "config: get user home directory")
	}
	return filepath.Join(home, ".newsgrab", "config.yaml"), nil
}

// Load builds the configuration from defaults, then the config file, then
// the environment. With an empty path the default file is read if it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return nil // File doesn't exist -- not an error
	}
	if err != nil {
		return eris.Wrap(err, "config: read config file")
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return eris.Wrap(err, "config: parse config file")
	}
	return nil
}

// applyEnv overrides file values with NEWSGRAB_* variables.
func (c *Config) applyEnv() {
	c.Storage.ArchiveDir = getEnv("NEWSGRAB_ARCHIVE_DIR", c.Storage.ArchiveDir)
	c.Storage.RunsDSN = getEnv("NEWSGRAB_RUNS_DSN", c.Storage.RunsDSN)
	c.Search.RapidAPIKey = getEnv("NEWSGRAB_RAPIDAPI_KEY", c.Search.RapidAPIKey)
	c.Browser.ExecPath = getEnv("NEWSGRAB_CHROME_PATH", c.Browser.ExecPath)
	c.Log.Level = getEnv("NEWSGRAB_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("NEWSGRAB_LOG_FORMAT", c.Log.Format)
	c.Server.Addr = getEnv("NEWSGRAB_SERVER_ADDR", c.Server.Addr)

	if v, err := strconv.ParseBool(os.Getenv("NEWSGRAB_HEADLESS")); err == nil {
		c.Browser.Headless = v
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Search.Provider {
	case ProviderGoogle, ProviderFeed:
	default:
		return eris.Errorf("config: unknown search provider %q", c.Search.Provider)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return eris.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if strings.TrimSpace(c.Storage.ArchiveDir) == "" {
		return eris.New("config: storage.archive_dir is empty")
	}
	if strings.TrimSpace(c.Storage.RunsDSN) == "" {
		return eris.New("config: storage.runs_dsn is empty")
	}
	if err := c.SiteConfig().Validate(); err != nil {
		return eris.Wrap(err, "config: wait")
	}
	return nil
}

// SiteConfig returns the AP News conventions with the configured wait
// policy applied.
func (c *Config) SiteConfig() scraper.SiteConfig {
	site := scraper.APNews()
	site.PollInterval = c.Wait.PollInterval
	site.MaxWait = c.Wait.MaxWait
	site.ScrollSettle = c.Wait.ScrollSettle
	site.ClickSettle = c.Wait.ClickSettle
	site.MaxScrollSteps = c.Wait.MaxScrollSteps
	site.MaxCarouselClicks = c.Wait.MaxCarouselClicks
	return site
}

// BrowserOptions returns the Chrome launch options.
func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:       c.Browser.Headless,
		LogLevel:       c.Browser.LogLevel,
		ExecPath:       c.Browser.ExecPath,
		WindowWidth:    c.Browser.WindowWidth,
		WindowHeight:   c.Browser.WindowHeight,
		UserAgent:      c.Browser.UserAgent,
		ActionTimeout:  c.Browser.ActionTimeout,
		ElementTimeout: c.Browser.ElementTimeout,
	}
}

// Searcher builds the configured search provider.
func (c *Config) Searcher() (search.Searcher, error) {
	switch c.Search.Provider {
	case ProviderFeed:
		if len(c.Search.Feeds) == 0 {
			return nil, eris.New("config: search.feeds is empty")
		}
		return search.NewFeedSearcher(c.Search.Feeds), nil
	case ProviderGoogle:
		if c.Search.RapidAPIKey == "" {
			return nil, eris.New("config: search.rapidapi_key is not set (or NEWSGRAB_RAPIDAPI_KEY)")
		}
		var opts []search.GoogleOption
		if c.Search.BaseURL != "" {
			opts = append(opts, search.WithBaseURL(c.Search.BaseURL))
		}
		if c.Search.RapidAPIHost != "" {
			opts = append(opts, search.WithHost(c.Search.RapidAPIHost))
		}
		if c.Search.Country != "" {
			opts = append(opts, search.WithCountry(c.Search.Country))
		}
		return search.NewGoogle(c.Search.RapidAPIKey, opts...), nil
	}
	return nil, eris.Errorf("config: unknown search provider %q", c.Search.Provider)
}
