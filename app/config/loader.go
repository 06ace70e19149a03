package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/weegienamja/Globescraper-sub003/app/cfg"
	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

// Loader handles loading and validation of source site configurations
type Loader struct {
	sourcesDir string
}

// NewLoader creates a new configuration loader
func NewLoader(sourcesDir string) *Loader {
	return &Loader{sourcesDir: sourcesDir}
}

// LoadAll loads all YAML configuration files from the sources directory,
// keyed by source ID.
func (l *Loader) LoadAll() (map[listing.Source]*SourceConfig, error) {
	configs := make(map[listing.Source]*SourceConfig)

	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return configs, nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		config, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		source, err := listing.ParseSource(config.Source.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		configs[source] = config
		slog.Debug("Loaded source configuration", "file", file, "source", config.Source.ID)
	}

	return configs, nil
}

// loadFile loads a single YAML configuration file
func (l *Loader) loadFile(path string) (*SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config SourceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	l.setDefaults(&config)

	return &config, nil
}

// setDefaults applies default values to configuration
func (l *Loader) setDefaults(config *SourceConfig) {
	appCfg := cfg.Get()

	if config.Settings.Strategy == "" {
		config.Settings.Strategy = "http"
	}
	if config.Settings.DelayMs == 0 {
		config.Settings.DelayMs = appCfg.FetchDelayMs
	}
	if config.Settings.MaxPages == 0 {
		config.Settings.MaxPages = appCfg.DiscoverMaxPages
	}
	if config.Settings.MaxURLs == 0 {
		config.Settings.MaxURLs = appCfg.DiscoverMaxURLs
	}
}

// validate validates the configuration
func (l *Loader) validate(config *SourceConfig) error {
	if config.Source.ID == "" {
		return fmt.Errorf("source ID is required")
	}
	if config.Source.BaseURL == "" {
		return fmt.Errorf("source base URL is required")
	}
	if len(config.Categories) == 0 && len(config.Feeds) == 0 {
		return fmt.Errorf("at least one category or feed URL is required")
	}

	if config.Settings.Strategy != "http" && config.Settings.Strategy != "browser" {
		return fmt.Errorf("invalid fetch strategy: %s", config.Settings.Strategy)
	}
	if config.Settings.DelayMs < 0 {
		return fmt.Errorf("delay must be non-negative")
	}
	if config.Settings.MaxPages < 0 {
		return fmt.Errorf("max pages must be non-negative")
	}
	if config.Settings.MaxURLs < 0 {
		return fmt.Errorf("max urls must be non-negative")
	}

	return nil
}
