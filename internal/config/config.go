// Package config handles loading and validating the application
// configuration from a JSON file, the same shape the teacher repo this
// project was bootstrapped from uses for its own db.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration loaded from config.json.
// The file is read once at startup; changes require a restart.
type Config struct {
	// FirehoseURL is the websocket endpoint to subscribe to, e.g.
	// "wss://bsky.network/xrpc/com.atproto.sync.subscribeRepos".
	FirehoseURL string `json:"firehoseUrl"`

	// RuleFile is the path to a newline-delimited keyword list used to
	// build the matcher.
	RuleFile string `json:"ruleFile"`

	// MetricsAddr is the listen address for Prometheus scraping
	// (exposition itself is wired by the caller, outside this repo).
	MetricsAddr string `json:"metricsAddr"`

	// ModerationConnString is the PostgreSQL connection string for the
	// moderation database polled by the labeled-account cache. Empty
	// disables the cache (no suppression of repeat alerts).
	ModerationConnString string `json:"moderationConnString,omitempty"`

	// LabeledAccountPollInterval controls how often the labeled-account
	// cache refreshes. Default 10m.
	LabeledAccountPollInterval durationJSON `json:"labeledAccountPollInterval,omitempty"`

	// PostQueueSize bounds the post-processor's input queue. Default 10000.
	PostQueueSize int `json:"postQueueSize,omitempty"`

	// RecorderQueueSize bounds the activity recorder's input queue. Default 10000.
	RecorderQueueSize int `json:"recorderQueueSize,omitempty"`

	// MentionThreshold, LinkThreshold, TagThreshold, TotalThreshold
	// override the default facet thresholds (see internal/firehose).
	MentionThreshold int `json:"mentionThreshold,omitempty"`
	LinkThreshold    int `json:"linkThreshold,omitempty"`
	TagThreshold     int `json:"tagThreshold,omitempty"`
	TotalThreshold   int `json:"totalThreshold,omitempty"`
}

// durationJSON unmarshals a Go duration string ("10m", "30s") from JSON.
type durationJSON time.Duration

func (d *durationJSON) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", s, err)
	}
	*d = durationJSON(parsed)
	return nil
}

// Duration returns d as a time.Duration.
func (d durationJSON) Duration() time.Duration {
	return time.Duration(d)
}

const (
	defaultQueueSize    = 10000
	defaultPollInterval = 10 * time.Minute
)

// Load reads and parses configuration from the given file path. It
// returns an error if the file cannot be read, parsed, or is missing
// required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9090"
	}
	if cfg.PostQueueSize == 0 {
		cfg.PostQueueSize = defaultQueueSize
	}
	if cfg.RecorderQueueSize == 0 {
		cfg.RecorderQueueSize = defaultQueueSize
	}
	if cfg.LabeledAccountPollInterval.Duration() == 0 {
		cfg.LabeledAccountPollInterval = durationJSON(defaultPollInterval)
	}
	if cfg.MentionThreshold == 0 {
		cfg.MentionThreshold = 4
	}
	if cfg.LinkThreshold == 0 {
		cfg.LinkThreshold = 4
	}
	if cfg.TagThreshold == 0 {
		cfg.TagThreshold = 4
	}
	if cfg.TotalThreshold == 0 {
		cfg.TotalThreshold = 6
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks that all required fields are present.
func (c *Config) validate() error {
	switch {
	case c.FirehoseURL == "":
		return fmt.Errorf("config: firehoseUrl is required")
	case c.RuleFile == "":
		return fmt.Errorf("config: ruleFile is required")
	}
	return nil
}
