// Package pipeline drives one detection run end to end: fetch, normalize,
// segment, diff, summarize, persist. Sources are processed strictly in
// order; one bad source never blocks detection on the others.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"policywatch/config"
	"policywatch/fetch"
	"policywatch/htmlclean"
	"policywatch/notify"
	"policywatch/sections"
	"policywatch/storage"
	"policywatch/summarize"
	"policywatch/textdiff"
	"policywatch/types"
)

// CacheBackup mirrors the saved cache document off-host.
type CacheBackup interface {
	PushFile(ctx context.Context, path string) error
}

// Pipeline holds the collaborators for a run. The in-memory cache and the
// summarizer gate are the only shared mutable state; both stay on the
// run's single logical thread of control.
type Pipeline struct {
	cfg        *config.Config
	store      *storage.Store
	summaries  storage.SummaryStore
	fetcher    fetch.Fetcher
	summarizer summarize.Summarizer
	backup     CacheBackup
	publisher  notify.Publisher

	pruneRemoved bool
	now          func() time.Time
}

// Options wires a pipeline. Backup and Publisher are optional.
type Options struct {
	Config     *config.Config
	Store      *storage.Store
	Summaries  storage.SummaryStore
	Fetcher    fetch.Fetcher
	Summarizer summarize.Summarizer
	Backup     CacheBackup
	Publisher  notify.Publisher
	// PruneRemoved removes cache entries whose source left the
	// configuration. Enabled by default.
	PruneRemoved bool
}

// New builds a pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		cfg:          opts.Config,
		store:        opts.Store,
		summaries:    opts.Summaries,
		fetcher:      opts.Fetcher,
		summarizer:   opts.Summarizer,
		backup:       opts.Backup,
		publisher:    opts.Publisher,
		pruneRemoved: opts.PruneRemoved,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if p.summarizer == nil {
		p.summarizer = summarize.Fallback{}
	}
	return p
}

// RunUpdate executes one full run and returns the report consumed by the
// notification layer. Per-source failures are collected into the report;
// only a persistence failure makes the run itself fail.
func (p *Pipeline) RunUpdate(ctx context.Context) (*types.RunReport, error) {
	report := &types.RunReport{
		Errors:  []types.SourceError{},
		Details: []types.Detail{},
	}

	cache := p.store.Load()

	for _, src := range p.cfg.Sources {
		if err := p.processSource(ctx, src, cache, report); err != nil {
			log.Printf("source %s (%s): %v", src.Tag, src.URL, err)
			report.Errors = append(report.Errors, types.SourceError{
				Tag:    src.Tag,
				URL:    src.URL,
				Region: src.Region,
				Error:  err.Error(),
			})
		}
	}

	if p.pruneRemoved {
		cache.Prune(p.cfg.ValidKeys())
	}
	cache.SortByRecency()
	cache.EnforceRetention(p.cfg.MaxItemsTotal)

	if err := p.store.Save(cache); err != nil {
		return report, fmt.Errorf("persisting cache: %w", err)
	}

	if p.summaries != nil {
		if err := p.summaries.Flush(); err != nil {
			log.Printf("flushing summary cache: %v", err)
		}
	}
	if p.backup != nil {
		if err := p.backup.PushFile(ctx, p.store.Path()); err != nil {
			log.Printf("cache backup failed: %v", err)
		}
	}
	if p.publisher != nil {
		if err := p.publisher.PublishReport(report); err != nil {
			log.Printf("publishing run report: %v", err)
		}
	}
	return report, nil
}

// processSource runs detection for one source against the in-memory cache.
// A returned error is recoverable: it is recorded and the run continues.
func (p *Pipeline) processSource(ctx context.Context, src types.Source, cache *storage.Cache, report *types.RunReport) error {
	rawHTML, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		return err
	}

	titleAuto, fullPlain, cleanedHTML := htmlclean.Clean(rawHTML, src.URL, htmlclean.Options{
		RemoveSelectors: p.cfg.SelectorsFor(src.URL),
		Readability:     p.cfg.UseReadability(src.URL),
	})

	pageSig := types.Digest(htmlclean.NormalizeForSignature(fullPlain))

	segSource := cleanedHTML
	if segSource == "" {
		segSource = rawHTML
	}
	newSecs := sections.Extract(segSource)

	var previous *types.CachedItem
	if existing, ok := cache.Get(src.Key()); ok {
		previous = &existing
	}

	var oldSecs []types.Section
	if previous != nil {
		oldSecs = previous.Sections
	}
	addedIDs, removedIDs, modifiedIDs := textdiff.StructuralDiff(oldSecs, newSecs)

	if !textdiff.Changed(previous, pageSig, addedIDs, removedIDs, modifiedIDs) {
		// Unchanged: no sentence diffing, no summarization, no cache write.
		return nil
	}

	summary := p.summarizeChanged(ctx, pageSig, fullPlain, previous)

	title := src.Title
	if title == "" {
		title = titleAuto
	}
	if title == "" {
		title = src.URL
	}

	oldFull := ""
	if previous != nil {
		oldFull = previous.FullText
	}
	globalDiff := textdiff.SentenceDiff(oldFull, fullPlain, p.cfg.PairThreshold)

	now := p.now()
	cache.Upsert(types.CachedItem{
		Tag:           src.Tag,
		URL:           src.URL,
		Region:        src.Region,
		Title:         title,
		Summary:       summary,
		Hash:          pageSig,
		Sections:      newSecs,
		FullText:      fullPlain,
		TS:            now,
		LastChangedAt: now,
	})

	report.Changed++
	report.SectionsChanged += len(addedIDs) + len(modifiedIDs) + len(removedIDs)
	report.Details = append(report.Details, types.Detail{
		Tag:          src.Tag,
		URL:          src.URL,
		Title:        title,
		Diff:         structTitles(addedIDs, modifiedIDs, removedIDs, oldSecs, newSecs),
		GlobalDiff:   globalDiff,
		SectionDiffs: p.sectionDiffs(addedIDs, removedIDs, modifiedIDs, oldSecs, newSecs),
	})
	return nil
}

// summarizeChanged returns the summary for the new page state: the cached
// one when this exact content was summarized before, otherwise a fresh
// summarizer call. Summarizer failure keeps the previous summary.
func (p *Pipeline) summarizeChanged(ctx context.Context, pageSig, fullPlain string, previous *types.CachedItem) string {
	if p.summaries != nil {
		if cached, ok := p.summaries.Get(pageSig); ok {
			return cached
		}
	}

	summary, err := p.summarizer.Summarize(ctx, fullPlain)
	if err != nil {
		log.Printf("summarization failed, keeping previous summary: %v", err)
		if previous != nil {
			return previous.Summary
		}
		return ""
	}

	summary = strings.TrimSpace(summary)
	if p.summaries != nil {
		p.summaries.Put(pageSig, summary)
	}
	return summary
}

func structTitles(addedIDs, modifiedIDs, removedIDs []string, oldSecs, newSecs []types.Section) types.StructDiff {
	newByID := sections.ByID(newSecs)
	oldByID := sections.ByID(oldSecs)

	d := types.StructDiff{Added: []string{}, Modified: []string{}, Removed: []string{}}
	for _, id := range addedIDs {
		d.Added = append(d.Added, titleOrID(newByID, id))
	}
	for _, id := range modifiedIDs {
		d.Modified = append(d.Modified, titleOrID(newByID, id))
	}
	for _, id := range removedIDs {
		d.Removed = append(d.Removed, titleOrID(oldByID, id))
	}
	return d
}

func titleOrID(byID map[string]types.Section, id string) string {
	if s, ok := byID[id]; ok && s.Title != "" {
		return s.Title
	}
	return id
}

// sectionDiffs builds the per-section report blocks: a preview line per
// added section, the titles of removed sections, and a sentence diff per
// modified section.
func (p *Pipeline) sectionDiffs(addedIDs, removedIDs, modifiedIDs []string, oldSecs, newSecs []types.Section) []types.SectionDiff {
	newByID := sections.ByID(newSecs)
	oldByID := sections.ByID(oldSecs)

	var diffs []types.SectionDiff

	if len(addedIDs) > 0 {
		var preview []string
		for _, id := range addedIDs {
			sec := newByID[id]
			line := sec.Title
			if line == "" {
				line = id
			}
			if sents := textdiff.SplitSentences(sec.Text); len(sents) > 0 {
				line = sents[0]
			}
			preview = append(preview, textdiff.ClipLine(line, textdiff.ClipLimit))
		}
		diffs = append(diffs, types.SectionDiff{Type: "added", Title: "Added", Added: preview})
	}

	if len(removedIDs) > 0 {
		var titles []string
		for _, id := range removedIDs {
			titles = append(titles, textdiff.ClipLine(titleOrID(oldByID, id), textdiff.ClipLimit))
		}
		diffs = append(diffs, types.SectionDiff{Type: "removed", Title: "Removed", Removed: titles})
	}

	for _, id := range modifiedIDs {
		oldSec := oldByID[id]
		newSec := newByID[id]
		sd := textdiff.SentenceDiff(oldSec.Text, newSec.Text, p.cfg.PairThreshold)

		block := types.SectionDiff{
			Type:    "changed",
			Title:   titleOrID(newByID, id),
			Changed: sd.Changed,
		}
		block.RemovedInline = sd.Removed
		block.AddedInline = sd.Added
		diffs = append(diffs, block)
	}
	return diffs
}
