// Package sections partitions cleaned HTML into heading-delimited blocks,
// each carrying its own content signature.
package sections

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"policywatch/htmlclean"
	"policywatch/types"
)

var (
	nonWordRe  = regexp.MustCompile(`[^\p{L}\p{N}_\- ]+`)
	spaceRunRe = regexp.MustCompile(`[\s\x{00a0}]+`)
)

// Slug derives a deterministic section id from a heading title. Collisions
// are not de-duplicated; when sections are rebuilt from HTML, the last one
// with a given heading wins.
func Slug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonWordRe.ReplaceAllString(s, "")
	s = spaceRunRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "section"
	}
	return s
}

// Extract walks heading elements (h2/h3) and the paragraph/list-item
// elements that follow, in document order. A new heading starts a new
// section; a section with no heading text is never emitted. The returned
// order is document order and is authoritative.
func Extract(cleanedHTML string) []types.Section {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleanedHTML))
	if err != nil {
		return nil
	}
	doc.Find("script, style, nav, footer, header, noscript, template, iframe").Remove()

	var out []types.Section
	var title string
	var body []string

	flush := func() {
		if title == "" {
			return
		}
		text := strings.TrimSpace(strings.Join(body, " "))
		norm := htmlclean.NormalizeForSignature(title + "\n" + text)
		out = append(out, types.Section{
			ID:    Slug(title),
			Title: strings.TrimSpace(title),
			Text:  text,
			Sig:   types.Digest(norm),
		})
		title, body = "", nil
	}

	doc.Find("h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "h2", "h3":
			flush()
			if t := strings.TrimSpace(nodeText(s)); t != "" {
				title = t
				body = nil
			}
		default:
			if title == "" {
				return
			}
			if t := strings.TrimSpace(nodeText(s)); len([]rune(t)) >= 2 {
				body = append(body, t)
			}
		}
	})
	flush()
	return out
}

// IDs returns the section ids in order.
func IDs(secs []types.Section) []string {
	ids := make([]string, 0, len(secs))
	for _, s := range secs {
		ids = append(ids, s.ID)
	}
	return ids
}

// ByID indexes sections by id; on duplicate ids the later section wins.
func ByID(secs []types.Section) map[string]types.Section {
	m := make(map[string]types.Section, len(secs))
	for _, s := range secs {
		m[s.ID] = s
	}
	return m
}

// nodeText joins the selection's text nodes with single spaces, so that
// inline markup boundaries never glue words together.
func nodeText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return spaceRunRe.ReplaceAllString(strings.Join(parts, " "), " ")
}
