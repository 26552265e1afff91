package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"policywatch/types"
)

func item(tag string, ts time.Time) types.CachedItem {
	return types.CachedItem{
		Tag: tag,
		URL: "https://example.com/" + tag,
		TS:  ts,
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "cache.json")
	store := NewStore(path)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := &Cache{}
	cache.Upsert(item("tos", now))
	cache.Upsert(item("ads", now.Add(time.Hour)))

	if err := store.Save(cache); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := store.Load()
	if len(loaded.Items) != 2 {
		t.Fatalf("loaded %d items, want 2", len(loaded.Items))
	}
	if loaded.Items[0].Tag != "tos" || !loaded.Items[0].TS.Equal(now) {
		t.Errorf("first item = %+v", loaded.Items[0])
	}
	// No temp file may be left behind after a successful save.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind after save")
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"))
	cache := store.Load()
	if cache == nil || len(cache.Items) != 0 {
		t.Fatalf("missing file should load as empty cache, got %+v", cache)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	cache := NewStore(path).Load()
	if len(cache.Items) != 0 {
		t.Fatalf("corrupt file should load as empty cache, got %+v", cache)
	}
}

func TestLoadLegacyBareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	legacy := `[{"tag":"tos","url":"https://example.com/tos","ts":"2025-01-02T03:04:05Z"}]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := NewStore(path).Load()
	if len(cache.Items) != 1 || cache.Items[0].Tag != "tos" {
		t.Fatalf("legacy array not recognized: %+v", cache)
	}
}

func TestUpsertReplacesByKey(t *testing.T) {
	cache := &Cache{}
	first := item("tos", time.Now())
	first.Summary = "old"
	cache.Upsert(first)

	updated := first
	updated.Summary = "new"
	cache.Upsert(updated)

	if len(cache.Items) != 1 {
		t.Fatalf("expected 1 item after upsert of same key, got %d", len(cache.Items))
	}
	if cache.Items[0].Summary != "new" {
		t.Errorf("upsert did not replace: %q", cache.Items[0].Summary)
	}

	// A different region under the same tag/url is a distinct key.
	other := first
	other.Region = "eu"
	cache.Upsert(other)
	if len(cache.Items) != 2 {
		t.Errorf("region must participate in the key, got %d items", len(cache.Items))
	}
}

func TestPrune(t *testing.T) {
	now := time.Now()
	cache := &Cache{}
	cache.Upsert(item("keep", now))
	cache.Upsert(item("drop", now))

	valid := map[types.Key]bool{item("keep", now).Key(): true}
	cache.Prune(valid)

	if len(cache.Items) != 1 || cache.Items[0].Tag != "keep" {
		t.Fatalf("prune result = %+v", cache.Items)
	}
}

func TestRetentionOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cache := &Cache{}
	cache.Upsert(item("old", base))
	cache.Upsert(item("tied-a", base.Add(time.Hour)))
	cache.Upsert(item("tied-b", base.Add(time.Hour)))
	cache.Upsert(item("newest", base.Add(2*time.Hour)))

	cache.SortByRecency()
	cache.EnforceRetention(3)

	if len(cache.Items) != 3 {
		t.Fatalf("retention kept %d items, want 3", len(cache.Items))
	}
	if cache.Items[0].Tag != "newest" {
		t.Errorf("newest item must survive first, got %q", cache.Items[0].Tag)
	}
	// Stable sort: equal timestamps keep insertion order.
	if cache.Items[1].Tag != "tied-a" || cache.Items[2].Tag != "tied-b" {
		t.Errorf("tie order not preserved: %q, %q", cache.Items[1].Tag, cache.Items[2].Tag)
	}
}

func TestRetentionDisabled(t *testing.T) {
	cache := &Cache{}
	for i := 0; i < 5; i++ {
		cache.Upsert(item(string(rune('a'+i)), time.Now()))
	}
	cache.EnforceRetention(0)
	if len(cache.Items) != 5 {
		t.Errorf("bound 0 must disable retention, got %d items", len(cache.Items))
	}
}

func TestStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewStore(path)

	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	cache := &Cache{}
	cache.Upsert(item("tos", ts))
	if err := store.Save(cache); err != nil {
		t.Fatal(err)
	}

	stats := store.Stats(3, 4, 100)
	if stats.SourcesConfigured != 3 || stats.ItemsCached != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.LatestUTC != "2025-03-04T05:06:07Z" {
		t.Errorf("latest = %q", stats.LatestUTC)
	}
}

func TestFileSummaryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trans_cache.json")

	s := NewFileSummaryStore(path)
	if _, ok := s.Get("d1"); ok {
		t.Fatal("empty store should miss")
	}
	s.Put("d1", "summary text")
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reopened := NewFileSummaryStore(path)
	got, ok := reopened.Get("d1")
	if !ok || got != "summary text" {
		t.Fatalf("reopened store: got %q, ok=%v", got, ok)
	}
}

func TestFileSummaryStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trans_cache.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileSummaryStore(path)
	if _, ok := s.Get("anything"); ok {
		t.Fatal("corrupt file should load as empty store")
	}
}
