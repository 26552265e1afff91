package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"policywatch/types"
)

// Defaults applied when config.json omits a value.
const (
	DefaultPageSize      = 4
	DefaultPairThreshold = 0.0
)

// Config is the run configuration loaded from config.json. The source list
// is the single source of truth for which cache keys are valid.
type Config struct {
	PageSize        int                 `json:"PAGE_SIZE"`
	MaxItemsTotal   int                 `json:"MAX_ITEMS_TOTAL"`
	Sources         []types.Source      `json:"sources"`
	IgnoreSelectors map[string][]string `json:"ignore_selectors"`

	// Hosts whose pages go through a readability pre-pass before cleaning,
	// for article-like pages that have no curated selector list.
	ReadabilityHosts []string `json:"readability_hosts"`

	// Minimum similarity score for sentence pairing. Kept at 0.0 by default:
	// downstream formatting assumes high recall.
	PairThreshold float64 `json:"pair_threshold"`
}

// Load reads and validates config.json. An unreadable or invalid
// configuration prevents any run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{
		PageSize:      DefaultPageSize,
		PairThreshold: DefaultPairThreshold,
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	for i, src := range cfg.Sources {
		if src.Tag == "" || src.URL == "" {
			return nil, fmt.Errorf("source %d: tag and url are required", i)
		}
		if src.Kind != types.KindHTML && src.Kind != types.KindRSS {
			return nil, fmt.Errorf("source %q: unknown kind %q", src.Tag, src.Kind)
		}
	}
	return cfg, nil
}

// SelectorsFor returns the removal selectors for the given page URL:
// the default list plus the host-specific list, deduplicated in order.
func (c *Config) SelectorsFor(rawURL string) []string {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Host)
	}

	seen := make(map[string]bool)
	var out []string
	for _, sel := range append(append([]string{}, c.IgnoreSelectors["default"]...), c.IgnoreSelectors[host]...) {
		if !seen[sel] {
			seen[sel] = true
			out = append(out, sel)
		}
	}
	return out
}

// UseReadability reports whether the host of the given URL is configured
// for the readability pre-pass.
func (c *Config) UseReadability(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, h := range c.ReadabilityHosts {
		if strings.ToLower(h) == host {
			return true
		}
	}
	return false
}

// ValidKeys returns the set of cache keys backed by a configured source,
// used for pruning.
func (c *Config) ValidKeys() map[types.Key]bool {
	keys := make(map[types.Key]bool, len(c.Sources))
	for _, src := range c.Sources {
		keys[src.Key()] = true
	}
	return keys
}

// GetEnvOrDefault returns the environment value for key, or fallback if unset.
func GetEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt returns the integer environment value for key, or fallback
// if unset or not a number.
func GetEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// GetEnvBool returns the boolean environment value for key ("1"/"true"),
// or fallback if unset.
func GetEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v == "1" || strings.EqualFold(v, "true")
}
