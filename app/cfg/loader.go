package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./rentalindex.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir       string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source site configuration files"`
	Port             string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	RequestTimeout   int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Per-request fetch timeout in seconds"`
	RequestBudget    int    `long:"request-budget" env:"REQUEST_BUDGET" default:"500" description:"Maximum fetches per source per run"`
	FetchDelayMs     int    `long:"fetch-delay-ms" env:"FETCH_DELAY_MS" default:"1500" description:"Minimum delay between requests to the same source in milliseconds"`
	DiscoverMaxPages int    `long:"discover-max-pages" env:"DISCOVER_MAX_PAGES" default:"20" description:"Maximum category pages visited per source during discovery"`
	DiscoverMaxURLs  int    `long:"discover-max-urls" env:"DISCOVER_MAX_URLS" default:"400" description:"Maximum listing URLs collected per source during discovery"`
	GraceDays        int    `long:"grace-days" env:"GRACE_DAYS" default:"7" description:"Days without re-observation before a listing is deactivated"`
	ChromeRemoteURL  string `long:"chrome-remote-url" env:"CHROME_REMOTE_URL" description:"DevTools websocket URL of a remote Chrome instance (optional; a local headless instance is launched when empty)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RentalIndex/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Asia/Phnom_Penh" description:"Timezone for index dates (e.g., UTC, Asia/Phnom_Penh)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:           raw.DBPath,
		SourcesDir:       raw.SourcesDir,
		Port:             raw.Port,
		RequestTimeout:   raw.RequestTimeout,
		RequestBudget:    raw.RequestBudget,
		FetchDelayMs:     raw.FetchDelayMs,
		DiscoverMaxPages: raw.DiscoverMaxPages,
		DiscoverMaxURLs:  raw.DiscoverMaxURLs,
		GraceDays:        raw.GraceDays,
		ChromeRemoteURL:  raw.ChromeRemoteURL,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// SetForTesting replaces the global configuration. Tests only.
func SetForTesting(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
