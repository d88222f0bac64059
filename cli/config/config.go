package config

import (
	"fmt"
	"time"
)

// DefaultDelay is the abort window after the runner selection is
// announced, used when the config file does not set one.
const DefaultDelay = 5 * time.Second

// Config represents a crier.yaml configuration file.
// All values are optional and act as defaults for crier flags.
// CLI flags always override config values.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database"`
	// Runners is the default selection filter, applied when neither
	// the --runners flag nor MORPH_RUNNERS provides one.
	Runners []string `yaml:"runners"`
	// RecencyDays overrides the recency guard window when positive.
	RecencyDays int `yaml:"recency_days"`
	// Delay is the abort window between announcing the selected
	// runners and executing them. Omitted means DefaultDelay; an
	// explicit "0s" skips the wait.
	Delay *Duration `yaml:"delay"`

	Webhook  WebhookConfig  `yaml:"webhook"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Events   EventsConfig   `yaml:"events"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Harvest  HarvestConfig  `yaml:"harvest"`
}

// WebhookConfig holds messaging-webhook defaults from the config file.
// An empty URL falls back to MORPH_SLACK_CHANNEL_WEBHOOK_URL.
type WebhookConfig struct {
	URL      string   `yaml:"url"`
	Username string   `yaml:"username"`
	Channel  string   `yaml:"channel"`
	Timeout  Duration `yaml:"timeout"`
}

// FetchConfig holds fetch-cache defaults from the config file.
type FetchConfig struct {
	TTL       Duration `yaml:"ttl"`
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
}

// EventsConfig holds event-publisher defaults from the config file.
// Publishing is enabled only when URL is set.
type EventsConfig struct {
	URL     string   `yaml:"url"`
	Channel string   `yaml:"channel"`
	Timeout Duration `yaml:"timeout"`
	Retries *int     `yaml:"retries,omitempty"`
}

// ArchiveConfig holds archive defaults from the config file.
// Archiving is enabled only when Path is set.
type ArchiveConfig struct {
	Dataset   string `yaml:"dataset"`
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// WatchdogConfig configures the built-in endpoint health runner.
type WatchdogConfig struct {
	Endpoints []string `yaml:"endpoints"`
}

// HarvestConfig configures the built-in archive digest runner.
type HarvestConfig struct {
	LookbackDays int `yaml:"lookback_days"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// AnnounceDelay resolves the abort window: the configured value when
// the delay key is present, DefaultDelay otherwise.
func (c *Config) AnnounceDelay() time.Duration {
	if c.Delay == nil {
		return DefaultDelay
	}
	return c.Delay.Duration
}
