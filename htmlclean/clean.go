// Package htmlclean strips noise markup from raw HTML and produces the
// stabilized plain text that signatures are computed from.
package htmlclean

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// MaxCleanedHTML bounds the residual HTML kept for diagnostics.
const MaxCleanedHTML = 100000

// stripSelector removes structural noise before any text extraction.
const stripSelector = "script, style, nav, footer, header, noscript, template, iframe"

var (
	horizWSRe = regexp.MustCompile(`[ \t\x{00a0}]+`)
	multiNLRe = regexp.MustCompile(`\n{3,}`)

	// Update-date stamps that churn without changing document meaning.
	updatedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)updated\s+on\s+\w+\s+\d{1,2},\s+\d{4}`),
		regexp.MustCompile(`(?i)послед(?:нее|ний)\s+обновлен(?:ие|о)\s*[:\-]?\s*\d{1,2}\.\d{1,2}\.\d{2,4}`),
		regexp.MustCompile(`(?i)last\s+updated\s*[:\-]?\s*\d{1,2}\s+\w+\s+\d{4}`),
		regexp.MustCompile(`(?i)обновлено[^\n]*\d{4}`),
	}
)

// Options controls host-specific cleaning, resolved once per fetch by the caller.
type Options struct {
	// RemoveSelectors are additional CSS selectors to strip. Selectors that
	// fail to compile or match nothing are ignored.
	RemoveSelectors []string
	// Readability runs a readability extraction pass before cleaning.
	Readability bool
}

// Clean turns raw HTML into (title, plainText, cleanedHTML). plainText is the
// stabilized text used for hashing and summarization. Clean never fails:
// malformed HTML degrades to best-effort output.
func Clean(rawHTML, pageURL string, opts Options) (title, plainText, cleanedHTML string) {
	if opts.Readability {
		if extracted, ok := extractReadable(rawHTML, pageURL); ok {
			rawHTML = extracted
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", "", ""
	}

	doc.Find(stripSelector).Remove()

	for _, sel := range opts.RemoveSelectors {
		matcher, err := cascadia.Compile(sel)
		if err != nil {
			continue
		}
		doc.FindMatcher(matcher).Remove()
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	text := joinTextNodes(doc)
	for _, pat := range updatedPatterns {
		text = pat.ReplaceAllString(text, "")
	}
	text = horizWSRe.ReplaceAllString(text, " ")
	text = multiNLRe.ReplaceAllString(text, "\n\n")
	plainText = strings.TrimSpace(text)

	if h, err := doc.Html(); err == nil {
		cleanedHTML = truncate(h, MaxCleanedHTML)
	}
	return title, plainText, cleanedHTML
}

// extractReadable runs go-readability over the page and returns its article
// HTML. Pages readability cannot handle fall through to plain cleaning.
func extractReadable(rawHTML, pageURL string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return "", false
	}
	return article.Content, true
}

// joinTextNodes concatenates every text node in document order,
// separated by newlines.
func joinTextNodes(doc *goquery.Document) string {
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
	for _, n := range doc.Selection.Nodes {
		walk(n)
	}
	return strings.Join(parts, "\n")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
