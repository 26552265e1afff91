package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `{
		"PAGE_SIZE": 6,
		"MAX_ITEMS_TOTAL": 200,
		"sources": [
			{"tag": "tos", "url": "https://example.com/tos"},
			{"tag": "news", "url": "https://example.com/feed.xml", "kind": "rss", "region": "eu"}
		],
		"ignore_selectors": {
			"default": [".cookie-banner"],
			"example.com": ["nav.breadcrumbs", ".cookie-banner"]
		},
		"pair_threshold": 0.3
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PageSize != 6 || cfg.MaxItemsTotal != 200 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[1].Kind != "rss" || cfg.Sources[1].Region != "eu" {
		t.Errorf("sources = %+v", cfg.Sources)
	}
	if cfg.PairThreshold != 0.3 {
		t.Errorf("pair threshold = %v", cfg.PairThreshold)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"sources": []}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PageSize != DefaultPageSize {
		t.Errorf("default page size = %d", cfg.PageSize)
	}
	if cfg.PairThreshold != DefaultPairThreshold {
		t.Errorf("default pair threshold = %v", cfg.PairThreshold)
	}
}

func TestLoadRejectsBadSources(t *testing.T) {
	cases := []string{
		`{"sources": [{"tag": "", "url": "https://example.com"}]}`,
		`{"sources": [{"tag": "tos", "url": ""}]}`,
		`{"sources": [{"tag": "tos", "url": "https://example.com", "kind": "pdf"}]}`,
	}
	for i, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"sources": [`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestSelectorsFor(t *testing.T) {
	cfg := &Config{IgnoreSelectors: map[string][]string{
		"default":     {".cookie-banner", "aside"},
		"example.com": {"nav.breadcrumbs", ".cookie-banner"},
	}}

	got := cfg.SelectorsFor("https://example.com/help/policy")
	want := []string{".cookie-banner", "aside", "nav.breadcrumbs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SelectorsFor = %v, want %v", got, want)
	}

	// Unknown host gets only the defaults.
	got = cfg.SelectorsFor("https://other.org/page")
	want = []string{".cookie-banner", "aside"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SelectorsFor(unknown host) = %v, want %v", got, want)
	}
}

func TestUseReadability(t *testing.T) {
	cfg := &Config{ReadabilityHosts: []string{"Blog.Example.COM"}}
	if !cfg.UseReadability("https://blog.example.com/post") {
		t.Error("host match should be case-insensitive")
	}
	if cfg.UseReadability("https://example.com/post") {
		t.Error("unlisted host must not use readability")
	}
}

func TestValidKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"sources": [
		{"tag": "tos", "url": "https://example.com/tos"},
		{"tag": "tos", "url": "https://example.com/tos", "region": "eu"}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	keys := cfg.ValidKeys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 distinct keys, got %d", len(keys))
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PW_TEST_STR", "value")
	t.Setenv("PW_TEST_INT", "42")
	t.Setenv("PW_TEST_BOOL", "true")

	if got := GetEnvOrDefault("PW_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnvOrDefault = %q", got)
	}
	if got := GetEnvOrDefault("PW_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnvOrDefault fallback = %q", got)
	}
	if got := GetEnvInt("PW_TEST_INT", 0); got != 42 {
		t.Errorf("GetEnvInt = %d", got)
	}
	if got := GetEnvInt("PW_TEST_STR", 7); got != 7 {
		t.Errorf("GetEnvInt non-numeric = %d", got)
	}
	if !GetEnvBool("PW_TEST_BOOL", false) {
		t.Error("GetEnvBool should parse true")
	}
	if GetEnvBool("PW_TEST_UNSET", false) {
		t.Error("GetEnvBool unset should fall back")
	}
}
