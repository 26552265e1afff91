// Package textdiff computes the two-level diff between a cached item and a
// freshly extracted one: a set-based structural diff over section ids and a
// best-effort sentence pairing over text.
package textdiff

import (
	"regexp"
	"strings"
)

// ClipLimit bounds every reported line so notification payloads stay small.
// Clipping happens after pairing; pairing always sees full sentences.
const ClipLimit = 800

// Punctuation trimmed off sentence fragments before the length check.
const fragmentCutset = " -–—• \t"

var collapseWSRe = regexp.MustCompile(`[\s\x{00a0}]+`)

// SplitSentences splits text on a language-agnostic boundary rule: after
// '.', '!' or '?' (or a newline) followed by whitespace. Fragments shorter
// than 2 characters after trimming list/quote punctuation are dropped.
func SplitSentences(text string) []string {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}
	t = collapseWSRe.ReplaceAllString(t, " ")

	var out []string
	runes := []rune(t)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && runes[i+1] == ' ' {
			appendFragment(&out, string(runes[start:i+1]))
			i++ // consume the separator space
			start = i + 1
		}
	}
	if start < len(runes) {
		appendFragment(&out, string(runes[start:]))
	}
	return out
}

func appendFragment(out *[]string, s string) {
	s = strings.Trim(s, fragmentCutset)
	if len([]rune(s)) >= 2 {
		*out = append(*out, s)
	}
}

// ClipLine bounds a reported line to limit characters, marking the cut
// with an ellipsis.
func ClipLine(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimRight(string(runes[:limit-1]), " ") + "…"
}
