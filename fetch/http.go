package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"policywatch/types"
)

const (
	defaultTimeout = 30 * time.Second
	maxRedirects   = 15
)

// Browser-like headers; several watched hosts serve a degraded or blocked
// page to obvious bots.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Cache-Control":   "max-age=0",
}

// Client fetches pages sequentially with bounded retries and a politeness
// delay between consecutive requests. Upstream hosts are a small fixed set,
// so pacing is deliberate and the caller must not fan out.
type Client struct {
	httpClient *http.Client
	retries    int
	backoff    time.Duration
	delay      time.Duration

	mu      sync.Mutex
	fetched bool
}

// ClientConfig tunes retry and pacing behavior. Zero values select defaults.
type ClientConfig struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration // base backoff, doubled per attempt
	Delay   time.Duration // minimum politeness delay between fetches
}

// NewClient builds the default HTTP fetcher.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1200 * time.Millisecond
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 2 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		retries: cfg.Retries,
		backoff: cfg.Backoff,
		delay:   cfg.Delay,
	}
}

// Fetch retrieves the source content. RSS sources are parsed and rendered
// into a section-structured HTML document so the same detection core
// applies; everything else is fetched as raw HTML.
func (c *Client) Fetch(ctx context.Context, src types.Source) (string, error) {
	c.pace(ctx)

	if src.Kind == types.KindRSS {
		return c.fetchRSS(ctx, src.URL)
	}
	return c.getWithRetries(ctx, src.URL)
}

// pace sleeps the politeness delay (with jitter) before every fetch after
// the first.
func (c *Client) pace(ctx context.Context) {
	c.mu.Lock()
	first := !c.fetched
	c.fetched = true
	c.mu.Unlock()
	if first {
		return
	}
	jitter := time.Duration(rand.Int63n(int64(c.delay) + 1))
	select {
	case <-time.After(c.delay + jitter):
	case <-ctx.Done():
	}
}

func (c *Client) getWithRetries(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		body, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("fetching %s: %w", url, lastErr)
}

func (c *Client) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	body := string(data)
	lower := strings.ToLower(body)
	if strings.Contains(lower, "captcha") || strings.Contains(lower, "security check") {
		return "", fmt.Errorf("captcha challenge served instead of content")
	}
	return body, nil
}
