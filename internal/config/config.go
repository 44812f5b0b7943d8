// Package config loads the channel list and process settings from
// channels.yaml, with environment overrides for deployment knobs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "channels.yaml"
	DefaultRSSHubBase = "https://rsshub.app"
	DefaultDBPath     = "data.db"
	DefaultPageSize   = 30
)

// Channel describes one tracked external source. Exactly one addressing mode
// is needed: a direct feed URL, an RSSHub username, or a message-stream
// handle. The ingestion core treats the reference as opaque.
type Channel struct {
	Slug     string `yaml:"slug"`
	Title    string `yaml:"title"`
	Username string `yaml:"username"`
	RSS      string `yaml:"rss"`
	Stream   string `yaml:"stream"`
}

type Config struct {
	RSSHubBase string    `yaml:"rsshub_base"`
	DBPath     string    `yaml:"db_path"`
	PageSize   int       `yaml:"page_size"`
	Channels   []Channel `yaml:"channels"`
}

// FeedURL resolves the channel's feed address: an explicit rss URL wins,
// otherwise the username is routed through the RSSHub base. Stream-only
// channels have no feed URL.
func (c Channel) FeedURL(base string) (string, error) {
	if c.RSS != "" {
		return c.RSS, nil
	}
	if c.Username != "" {
		return strings.TrimRight(base, "/") + "/telegram/channel/" + c.Username, nil
	}
	return "", fmt.Errorf("channel %q has neither rss nor username", c.Slug)
}

// Load reads the config file at path, applies defaults, resolves env
// overrides (RSSHUB_BASE, DB_PATH, PAGE_SIZE), and validates.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := resolveEnv(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RSSHubBase == "" {
		cfg.RSSHubBase = DefaultRSSHubBase
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
}

func resolveEnv(cfg *Config) error {
	if v := os.Getenv("RSSHUB_BASE"); v != "" {
		cfg.RSSHubBase = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("PAGE_SIZE: invalid value %q", v)
		}
		cfg.PageSize = n
	}
	return nil
}

func validate(cfg *Config) error {
	if len(cfg.Channels) == 0 {
		return errors.New("channels: at least one channel must be configured")
	}

	seen := make(map[string]bool, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		if ch.Slug == "" {
			return errors.New("channels: slug is required")
		}
		if !slugOK(ch.Slug) {
			return fmt.Errorf("channels: slug %q is not URL-safe", ch.Slug)
		}
		if seen[ch.Slug] {
			return fmt.Errorf("channels: duplicate slug %q", ch.Slug)
		}
		seen[ch.Slug] = true

		if ch.RSS == "" && ch.Username == "" && ch.Stream == "" {
			return fmt.Errorf("channels: %q needs rss, username, or stream", ch.Slug)
		}
	}

	return nil
}

// Find returns the channel with the given slug, or false.
func (cfg *Config) Find(slug string) (Channel, bool) {
	for _, ch := range cfg.Channels {
		if ch.Slug == slug {
			return ch, true
		}
	}
	return Channel{}, false
}

func slugOK(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
