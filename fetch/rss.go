package fetch

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/mmcdole/gofeed"
)

// fetchRSS parses a feed and renders it as a heading-structured HTML
// document: one h2 per entry with the entry body as a paragraph. The
// section extractor then treats each entry as a section, so feed sources
// get the same per-section change reporting as pages.
func (c *Client) fetchRSS(ctx context.Context, feedURL string) (string, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return "", fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}
	return RenderFeedHTML(feed), nil
}

// RenderFeedHTML builds the synthetic page for a parsed feed.
func RenderFeedHTML(feed *gofeed.Feed) string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(html.EscapeString(feed.Title))
	b.WriteString("</title></head><body>")
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = item.Link
		}
		b.WriteString("<h2>")
		b.WriteString(html.EscapeString(title))
		b.WriteString("</h2>")

		body := item.Content
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}
		// Entry bodies are already HTML fragments; the normalizer strips
		// whatever markup they carry.
		b.WriteString("<p>")
		b.WriteString(body)
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
