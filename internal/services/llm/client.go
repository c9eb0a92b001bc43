package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"curator/internal/resilience"
)

const (
	defaultBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout = 60 * time.Second
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int

	// Referer and Title are optional OpenRouter attribution headers.
	Referer string
	Title   string
}

// Client wraps an OpenAI-compatible chat completion API and asks it for
// media recommendations.
type Client struct {
	cfg        Config
	httpClient *http.Client
	runner     *resilience.Runner
	policy     resilience.Policy
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

// WithPolicy overrides the retry policy used for completion requests.
func WithPolicy(policy resilience.Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, log *slog.Logger, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		runner:     resilience.NewRunner(log),
		policy:     resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// Enabled reports whether the client has an API key and model configured.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.APIKey != "" && c.cfg.Model != ""
}

// Request describes what kind of recommendations to ask for.
type Request struct {
	// Kind is "movie" or "show"; it shapes the prompt wording.
	Kind string
	// Library lists titles the user already has, as taste evidence.
	Library []string
	// Exclude lists titles that must not be suggested again.
	Exclude []string
	// Context carries optional web-search findings to ground the model.
	Context string
	// Limit caps how many titles to request.
	Limit int
}

// Recommendation is a single title suggested by the model.
type Recommendation struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

// Recommend asks the model for titles similar to the user's library. The raw
// payload tolerates code fences and prose around the JSON body.
func (c *Client) Recommend(ctx context.Context, req Request) ([]Recommendation, error) {
	if !c.Enabled() {
		return nil, errors.New("llm recommend: api key and model required")
	}
	if len(req.Library) == 0 {
		return nil, errors.New("llm recommend: library titles required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	content, err := c.completeJSON(ctx, recommendationSystemPrompt(req.Kind), recommendationUserPrompt(req, limit))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("llm recommend: parse payload: %w", err)
	}

	out := make([]Recommendation, 0, len(parsed.Recommendations))
	for _, rec := range parsed.Recommendations {
		rec.Title = strings.TrimSpace(rec.Title)
		if rec.Title == "" {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, errors.New("llm recommend: model returned no titles")
	}
	return out, nil
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return errors.New("llm health: api key and model required")
	}
	content, err := c.completeJSON(ctx,
		"You must respond with JSON only.",
		`Respond with {"ok":true}`,
	)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

func recommendationSystemPrompt(kind string) string {
	noun := "movies"
	if kind == "show" {
		noun = "television series"
	}
	return fmt.Sprintf(
		"You are a film and television curator. Given a list of %s a user owns, "+
			"suggest other %s they would enjoy. Respond with JSON only, in the form "+
			`{"recommendations":[{"title":"...","year":1234}]}. `+
			"Suggest widely released titles, never ones in the provided library or exclusion list.",
		noun, noun,
	)
}

func recommendationUserPrompt(req Request, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest %d titles.\n\nLibrary:\n", limit)
	for _, title := range req.Library {
		fmt.Fprintf(&b, "- %s\n", title)
	}
	if len(req.Exclude) > 0 {
		b.WriteString("\nDo not suggest:\n")
		for _, title := range req.Exclude {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}
	if strings.TrimSpace(req.Context) != "" {
		b.WriteString("\nRecent context you may draw on:\n")
		b.WriteString(strings.TrimSpace(req.Context))
		b.WriteString("\n")
	}
	return b.String()
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completeJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	outcome, err := resilience.Execute(ctx, c.runner, "llm completion", c.policy,
		func(ctx context.Context) (string, error) {
			return c.sendChatRequestOnce(ctx, payload)
		})
	if err != nil {
		return "", err
	}
	return outcome.Result, nil
}

func (c *Client) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &resilience.HTTPStatusError{
			Op:         "llm request",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body[:min(len(body), 512)])),
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	// Empty content usually means a truncated or refused generation; worth
	// another attempt.
	return "", errors.New("llm request: empty completion content")
}

// DecodeJSON decodes JSON from an LLM response, stripping code fences and
// surrounding prose when the model ignores the JSON-only instruction.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return directErr
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return err
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
