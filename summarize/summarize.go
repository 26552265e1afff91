// Package summarize produces the short card-format summary stored with a
// cached item, throttling calls to the metered LLM backend.
package summarize

import (
	"context"
	"regexp"
	"strings"
)

// Card format bounds: one lead line plus up to three "- " bullets.
const (
	LeadLimit    = 150
	BulletLimit  = 120
	MaxBullets   = 3
	MaxInputSize = 6000
)

// Summarizer turns plain text into a short summary. Invoked only when a
// page changed; failure is non-fatal to the run.
type Summarizer interface {
	Summarize(ctx context.Context, plain string) (string, error)
}

var leadSplitRe = regexp.MustCompile(`([.!?])\s+`)

// splitAfterStops splits text after sentence-ending punctuation followed
// by whitespace.
func splitAfterStops(text string) []string {
	marked := leadSplitRe.ReplaceAllString(text, "$1\x00")
	return strings.Split(marked, "\x00")
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRight(string(runes[:n-1]), " ") + "…"
}

// Fallback builds a summary without the LLM: the first informative
// sentence as the lead plus up to three short bullets.
type Fallback struct{}

func (Fallback) Summarize(_ context.Context, plain string) (string, error) {
	return FallbackText(plain), nil
}

// FallbackText is the rule-based card: lead <=150 chars, bullets <=120.
func FallbackText(plain string) string {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return ""
	}
	var parts []string
	for _, p := range splitAfterStops(plain) {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= 15 {
			parts = append(parts, p)
		}
	}
	lead := clip(plain, LeadLimit)
	if len(parts) > 0 {
		lead = clip(parts[0], LeadLimit)
	}
	out := []string{lead}
	for i := 1; i < len(parts) && len(out) <= MaxBullets; i++ {
		out = append(out, "- "+clip(parts[i], BulletLimit))
	}
	return strings.Join(out, "\n")
}

// formatCard normalizes an LLM response into the card format. Responses
// without "- " bullets are re-split into sentences.
func formatCard(resp, source string) string {
	var lines []string
	for _, ln := range strings.Split(resp, "\n") {
		if strings.TrimSpace(ln) != "" {
			lines = append(lines, strings.TrimRight(ln, " \t"))
		}
	}
	if len(lines) == 0 {
		return FallbackText(source)
	}

	lead := clip(lines[0], LeadLimit)
	var bulletsRaw []string
	for _, ln := range lines[1:] {
		if strings.HasPrefix(ln, "-") {
			bulletsRaw = append(bulletsRaw, ln)
		}
	}
	if len(bulletsRaw) == 0 {
		body := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		for _, p := range splitAfterStops(body) {
			p = strings.TrimSpace(p)
			if len([]rune(p)) >= 10 {
				bulletsRaw = append(bulletsRaw, "- "+p)
			}
		}
	}

	out := []string{lead}
	for _, b := range bulletsRaw {
		b = strings.TrimSpace(strings.TrimLeft(b, "-"))
		if b == "" {
			continue
		}
		out = append(out, "- "+clip(b, BulletLimit))
		if len(out) > MaxBullets {
			break
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
