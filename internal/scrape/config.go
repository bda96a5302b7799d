package scrape

import "time"

// Config contains the options controlling how source pages are
// discovered and scraped into insights.
type Config struct {
	// Path of the manifest file listing source URLs, one per line.
	// The service watches this file and picks up newly added URLs
	// without a restart.
	SourceManifest string `yaml:"source_manifest" env:"SOURCE_MANIFEST" env-default:"data/sites_fontes.txt"`

	// The manifest watcher can miss events on some platforms, so a
	// 'force' sync is performed on a regular interval regardless.
	ForceSyncSeconds int `yaml:"force_sync_seconds" env:"FORCE_SYNC_SECONDS" env-default:"300"`

	// Number of workers scraping and generating insights concurrently.
	// Each worker talks to the AI provider, so raising this too high
	// invites rate limiting.
	Parallelism int `yaml:"parallelism" env:"MAX_WORKERS" env-default:"4" validate:"gte=1"`

	// Timeout applied to each page fetch.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" env:"FETCH_TIMEOUT_SECONDS" env-default:"10"`

	// How long extracted page text is cached. A forced re-sync within
	// the TTL reuses the cached text instead of re-fetching the page.
	PageCacheTTLSeconds int `yaml:"page_cache_ttl_seconds" env:"PAGE_CACHE_TTL_SECONDS" env-default:"900"`
}

func (config *Config) ForceSyncDuration() time.Duration {
	return time.Duration(config.ForceSyncSeconds) * time.Second
}

func (config *Config) FetchTimeout() time.Duration {
	return time.Duration(config.FetchTimeoutSeconds) * time.Second
}

func (config *Config) PageCacheTTL() time.Duration {
	return time.Duration(config.PageCacheTTLSeconds) * time.Second
}
