package sources

import (
	"fmt"
	"time"

	"github.com/weegienamja/Globescraper-sub003/app/cfg"
	"github.com/weegienamja/Globescraper-sub003/app/config"
	"github.com/weegienamja/Globescraper-sub003/app/fetch"
	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

// Registry builds adapters from loaded source configurations. Adapters
// are constructed per run so each run starts with a fresh fetcher: the
// request budget and politeness timer are per-run state.
type Registry struct {
	configs map[listing.Source]*config.SourceConfig
}

func NewRegistry(configs map[listing.Source]*config.SourceConfig) *Registry {
	return &Registry{configs: configs}
}

// Enabled returns the sources that are configured and enabled, in a
// stable order.
func (r *Registry) Enabled() []listing.Source {
	ordered := []listing.Source{listing.SourceKhmer24, listing.SourceRealEstateKH, listing.SourceIPSCambodia}

	var out []listing.Source
	for _, source := range ordered {
		if config, ok := r.configs[source]; ok && config.Settings.Enabled {
			out = append(out, source)
		}
	}
	return out
}

// Build constructs the adapter for one source together with a cleanup
// function releasing the fetcher (the browser strategy holds a Chrome
// instance).
func (r *Registry) Build(source listing.Source) (Adapter, func(), error) {
	sourceConfig, ok := r.configs[source]
	if !ok {
		return nil, nil, fmt.Errorf("source not configured: %s", source)
	}
	if !sourceConfig.Settings.Enabled {
		return nil, nil, fmt.Errorf("source disabled: %s", source)
	}

	fetcher, cleanup := r.buildFetcher(sourceConfig)

	switch source {
	case listing.SourceKhmer24:
		return NewKhmer24(sourceConfig, fetcher), cleanup, nil
	case listing.SourceRealEstateKH:
		return NewRealEstateKH(sourceConfig, fetcher), cleanup, nil
	case listing.SourceIPSCambodia:
		return NewIPSCambodia(sourceConfig, fetcher), cleanup, nil
	}
	cleanup()
	return nil, nil, fmt.Errorf("no adapter for source: %s", source)
}

func (r *Registry) buildFetcher(sourceConfig *config.SourceConfig) (fetch.Fetcher, func()) {
	appCfg := cfg.Get()
	delay := time.Duration(sourceConfig.Settings.DelayMs) * time.Millisecond
	timeout := time.Duration(appCfg.RequestTimeout) * time.Second

	if sourceConfig.Settings.Strategy == "browser" {
		browser := fetch.NewBrowserFetcher(appCfg.ChromeRemoteURL, delay, timeout, appCfg.RequestBudget, appCfg.UserAgent)
		return browser, browser.Close
	}

	return fetch.NewHTTPFetcher(delay, timeout, appCfg.RequestBudget, appCfg.UserAgent), func() {}
}
