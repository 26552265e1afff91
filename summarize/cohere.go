package summarize

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

const (
	defaultCohereModel = "command-r7b-12-2024"
	cohereTimeout      = 60 * time.Second
)

// Cohere summarizes via the Cohere Chat API and normalizes the response
// into the card format. If the call fails, callers fall back to the
// rule-based summary.
type Cohere struct {
	client *cohereclient.Client
	model  string
	lang   string
}

// NewCohereFromEnv returns a Cohere summarizer when COHERE_API_KEY is set,
// or nil. LLM_MODEL and LLM_OUTPUT_LANG override the defaults.
func NewCohereFromEnv() *Cohere {
	key := os.Getenv("COHERE_API_KEY")
	if key == "" {
		return nil
	}

	// Force HTTP/1.1; the Cohere endpoint intermittently resets HTTP/2 streams.
	httpClient := &http.Client{
		Timeout: cohereTimeout,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(key),
		cohereclient.WithHTTPClient(httpClient),
	)

	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = defaultCohereModel
	}
	lang := os.Getenv("LLM_OUTPUT_LANG")
	if lang == "" {
		lang = "ru"
	}
	return &Cohere{client: client, model: model, lang: lang}
}

func (c *Cohere) Summarize(ctx context.Context, plain string) (string, error) {
	source := strings.TrimSpace(plain)
	if source == "" {
		return "", nil
	}
	if len([]rune(source)) > MaxInputSize {
		source = string([]rune(source)[:MaxInputSize])
	}

	ctx, cancel := context.WithTimeout(ctx, cohereTimeout)
	defer cancel()

	preamble := "Edit and compress by the rules. Output language: " + c.lang + "."
	temperature := 0.2
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Model:       &c.model,
		Message:     buildPrompt(source, c.lang),
		Preamble:    &preamble,
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	return formatCard(resp.Text, source), nil
}

func buildPrompt(plain, lang string) string {
	return "You are an editor. Compress the following text into a card:\n" +
		"- First line: a short lead (max 150 characters).\n" +
		"- Then up to 3 bullets (max 120 characters each), one per line, each starting with \"- \".\n" +
		"- No headings, no emoji, no markup other than \"- \".\n" +
		"- Write in language \"" + lang + "\", plain and to the point.\n\n" +
		"Text to compress:\n" + plain
}
