package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"curator/internal/resilience"
)

const (
	defaultBaseURL = "https://www.googleapis.com/customsearch/v1"
	defaultTimeout = 15 * time.Second
	maxResults     = 10
)

// Config captures the Google Custom Search settings.
type Config struct {
	APIKey         string
	SearchEngineID string
	NumResults     int
	BaseURL        string
	Timeout        time.Duration
}

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Client queries the Google Custom Search API for context to feed the
// recommendation prompt.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs a search client. An empty API key or engine id yields a
// disabled client; Enabled reports which.
func New(cfg Config, opts ...Option) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Enabled reports whether search credentials are configured.
func (c *Client) Enabled() bool {
	return c != nil && strings.TrimSpace(c.cfg.APIKey) != "" && strings.TrimSpace(c.cfg.SearchEngineID) != ""
}

// Search runs a query and returns up to NumResults hits.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("websearch: api key and search engine id required")
	}
	num := c.cfg.NumResults
	if num <= 0 || num > maxResults {
		num = maxResults
	}

	params := url.Values{
		"key": {c.cfg.APIKey},
		"cx":  {c.cfg.SearchEngineID},
		"q":   {query},
		"num": {strconv.Itoa(num)},
	}
	endpoint := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("websearch: read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &resilience.HTTPStatusError{
			Op:         "websearch",
			StatusCode: resp.StatusCode,
			Body:       string(body[:min(len(body), 512)]),
		}
	}

	var payload struct {
		Items []Result `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("websearch: decode response: %w", err)
	}
	return payload.Items, nil
}

// FormatForPrompt renders results as a compact block suitable for inclusion
// in an LLM prompt. Empty input yields an empty string.
func FormatForPrompt(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, result := range results {
		title := strings.TrimSpace(result.Title)
		snippet := strings.TrimSpace(result.Snippet)
		if title == "" && snippet == "" {
			continue
		}
		fmt.Fprintf(&b, "%d. %s", i+1, title)
		if snippet != "" {
			fmt.Fprintf(&b, ": %s", snippet)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
