package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Source kinds. An empty kind means a plain HTML page.
const (
	KindHTML = ""
	KindRSS  = "rss"
)

// Source is one monitored document variant, loaded from config.json.
type Source struct {
	Tag    string `json:"tag"`
	URL    string `json:"url"`
	Region string `json:"region,omitempty"`
	Title  string `json:"title,omitempty"`
	Lang   string `json:"lang,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// Key returns the stable identity of this source.
func (s Source) Key() Key {
	return Key{Tag: s.Tag, URL: s.URL, Region: s.Region}
}

// Key identifies one monitored document variant everywhere:
// in the cache, in pruning, and in run reports.
type Key struct {
	Tag    string
	URL    string
	Region string
}

// Section is a heading-delimited content block within a page,
// the unit of structural diffing.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Sig   string `json:"sig"`
}

// CachedItem is the last-known state of one source. It is created on the
// first successful fetch and replaced wholesale on every detected change,
// never partially mutated.
type CachedItem struct {
	Tag           string    `json:"tag"`
	URL           string    `json:"url"`
	Region        string    `json:"region,omitempty"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	Hash          string    `json:"hash"`
	Sections      []Section `json:"sections"`
	FullText      string    `json:"full_text"`
	TS            time.Time `json:"ts"`
	LastChangedAt time.Time `json:"last_changed_at"`
}

// Key returns the identity this item is cached under.
func (it CachedItem) Key() Key {
	return Key{Tag: it.Tag, URL: it.URL, Region: it.Region}
}

// SentencePair reports one "this became that" change.
type SentencePair struct {
	Was string `json:"was"`
	Now string `json:"now"`
}

// SentenceDiff is the outcome of best-effort sentence pairing
// between two versions of a text.
type SentenceDiff struct {
	Changed []SentencePair `json:"changed"`
	Added   []string       `json:"added"`
	Removed []string       `json:"removed"`
}

// SectionDiff describes what happened inside one section block.
// Type is "added", "removed" or "changed".
type SectionDiff struct {
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Changed       []SentencePair `json:"changed,omitempty"`
	Added         []string       `json:"added,omitempty"`
	Removed       []string       `json:"removed,omitempty"`
	AddedInline   []string       `json:"added_inline,omitempty"`
	RemovedInline []string       `json:"removed_inline,omitempty"`
}

// StructDiff lists section titles by change class, for report formatting.
type StructDiff struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
}

// Detail is the per-source entry of a run report.
type Detail struct {
	Tag          string        `json:"tag"`
	URL          string        `json:"url"`
	Title        string        `json:"title"`
	Diff         StructDiff    `json:"diff"`
	GlobalDiff   SentenceDiff  `json:"global_diff"`
	SectionDiffs []SectionDiff `json:"section_diffs"`
}

// SourceError records a recoverable per-source failure.
type SourceError struct {
	Tag    string `json:"tag"`
	URL    string `json:"url"`
	Region string `json:"region,omitempty"`
	Error  string `json:"error"`
}

// RunReport is the sole output contract of a pipeline run,
// consumed by the notification layer.
type RunReport struct {
	Changed         int           `json:"changed"`
	SectionsChanged int           `json:"sections_total_changed"`
	Errors          []SourceError `json:"errors"`
	Details         []Detail      `json:"details"`
}

// Digest returns the sha256 hex fingerprint of the given text.
// Identical text anywhere always yields the same digest.
func Digest(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
