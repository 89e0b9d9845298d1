// Package retrieval provides best-effort web search for grounding prompts.
// Failures never reach the caller: the pipeline must stay usable when the
// search provider is unreachable, so every error degrades to an empty context.
package retrieval

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Snippet is one ranked search result.
type Snippet struct {
	Title string
	Body  string
}

// Context is a small ordered sequence of snippets, produced per request and
// discarded after use.
type Context []Snippet

// Empty reports whether retrieval produced nothing usable.
func (c Context) Empty() bool { return len(c) == 0 }

// Render formats the context for prompt embedding, one source per block.
func (c Context) Render() string {
	blocks := make([]string, 0, len(c))
	for _, s := range c {
		blocks = append(blocks, "Source: "+s.Title+"\n"+s.Body)
	}
	return strings.Join(blocks, "\n\n")
}

// Query builds a provider query biased toward actionable content: subject,
// the user's free text, and a task-specific suffix.
func Query(game, text, suffix string) string {
	return strings.TrimSpace(game + " " + text + " " + suffix)
}

const defaultEndpoint = "https://html.duckduckgo.com/html/"

// Client searches the DuckDuckGo HTML endpoint. No API key, no SDK; results
// are scraped from the lite result markup.
type Client struct {
	endpoint string
	http     *http.Client
	log      zerolog.Logger
}

// New builds a Client with the provider-default timeout.
func New(log zerolog.Logger) *Client {
	return &Client{
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// NewWithEndpoint overrides the provider endpoint; used by tests.
func NewWithEndpoint(endpoint string, log zerolog.Logger) *Client {
	c := New(log)
	c.endpoint = endpoint
	return c
}

// Search returns up to k snippets for query. It never returns an error:
// network failures, provider errors and empty result sets all degrade to an
// empty context, with a warn log as the only trace.
func (c *Client) Search(ctx context.Context, query string, k int) Context {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		c.log.Warn().Err(err).Msg("search request build failed")
		return nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; vanguardd)")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("query", query).Msg("search failed")
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("query", query).Msg("search provider error")
		return nil
	}
	// Result pages are small; cap the read at 2 MiB.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		c.log.Warn().Err(err).Msg("search read failed")
		return nil
	}
	results := parseResults(string(body), k)
	c.log.Debug().Str("query", query).Int("results", len(results)).Msg("retrieved search context")
	return results
}

var (
	titleRe   = regexp.MustCompile(`(?s)<a[^>]*class="[^"]*result__a[^"]*"[^>]*>(.*?)</a>`)
	snippetRe = regexp.MustCompile(`(?s)<a[^>]*class="[^"]*result__snippet[^"]*"[^>]*>(.*?)</a>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

// parseResults pairs result titles with their snippets, bounded by k.
func parseResults(page string, k int) Context {
	titles := titleRe.FindAllStringSubmatch(page, k)
	bodies := snippetRe.FindAllStringSubmatch(page, k)
	var out Context
	for i := 0; i < len(titles) && i < k; i++ {
		title := cleanFragment(titles[i][1])
		body := ""
		if i < len(bodies) {
			body = cleanFragment(bodies[i][1])
		}
		if title == "" && body == "" {
			continue
		}
		out = append(out, Snippet{Title: title, Body: body})
	}
	return out
}

func cleanFragment(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}
