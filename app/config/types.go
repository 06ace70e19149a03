package config

// SourceConfig represents a complete source site configuration
type SourceConfig struct {
	Source     SourceInfo     `yaml:"source"`
	Settings   SourceSettings `yaml:"settings"`
	Categories []string       `yaml:"categories"`
	Feeds      []string       `yaml:"feeds"`
}

// SourceInfo contains basic source site information
type SourceInfo struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
}

// SourceSettings contains per-source scraping settings
type SourceSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Strategy string `yaml:"strategy"` // "http" or "browser"
	DelayMs  int    `yaml:"delay_ms"`
	MaxPages int    `yaml:"max_pages"`
	MaxURLs  int    `yaml:"max_urls"`
}
