package tmdb

import (
	"context"
	"encoding/json"
	"errors"
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
	defaultBaseURL = "https://api.themoviedb.org/3"
	defaultTimeout = 30 * time.Second
)

// Config captures connection settings for the TMDB API.
type Config struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// Title is a movie or series known to TMDB.
type Title struct {
	ID   int64
	Name string
	Year int
	Kind string // "movie" or "show"
}

// Client talks to the TMDB v3 API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
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

// New constructs a TMDB client.
func New(cfg Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("tmdb: api key required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		language:   strings.TrimSpace(cfg.Language),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search finds the closest TMDB match for a title. Absence is expected for
// misspelled or hallucinated titles and returns found=false.
func (c *Client) Search(ctx context.Context, kind, title string) (Title, bool, error) {
	path := "/search/movie"
	if kind == "show" {
		path = "/search/tv"
	}
	query := url.Values{"query": {title}}

	var payload searchResponse
	if err := c.getJSON(ctx, path, query, &payload); err != nil {
		return Title{}, false, err
	}
	if len(payload.Results) == 0 {
		return Title{}, false, nil
	}
	return payload.Results[0].title(kind), true, nil
}

// Recommendations returns TMDB's own suggestions for a known title.
func (c *Client) Recommendations(ctx context.Context, kind string, id int64) ([]Title, error) {
	base := "/movie/"
	if kind == "show" {
		base = "/tv/"
	}
	path := base + strconv.FormatInt(id, 10) + "/recommendations"

	var payload searchResponse
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return nil, err
	}
	titles := make([]Title, 0, len(payload.Results))
	for _, result := range payload.Results {
		titles = append(titles, result.title(kind))
	}
	return titles, nil
}

// TVDBID resolves a TMDB series id to its TVDB id via the external ids
// endpoint. Series without a TVDB mapping return found=false.
func (c *Client) TVDBID(ctx context.Context, tmdbID int64) (int64, bool, error) {
	path := "/tv/" + strconv.FormatInt(tmdbID, 10) + "/external_ids"
	var payload struct {
		TVDBID int64 `json:"tvdb_id"`
	}
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return 0, false, err
	}
	if payload.TVDBID == 0 {
		return 0, false, nil
	}
	return payload.TVDBID, true, nil
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
}

func (r searchResult) title(kind string) Title {
	name := r.Title
	date := r.ReleaseDate
	if kind == "show" {
		name = r.Name
		date = r.FirstAirDate
	}
	year := 0
	if len(date) >= 4 {
		year, _ = strconv.Atoi(date[:4])
	}
	return Title{ID: r.ID, Name: name, Year: year, Kind: kind}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	if c.language != "" {
		query.Set("language", c.language)
	}
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("tmdb %s: new request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("tmdb %s: read body: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return &resilience.HTTPStatusError{
			Op:         "tmdb " + path,
			StatusCode: resp.StatusCode,
			Body:       string(body[:min(len(body), 512)]),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tmdb %s: decode response: %w", path, err)
	}
	return nil
}
