package radarr

import (
	"bytes"
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

const defaultTimeout = 30 * time.Second

// Config captures connection settings for a Radarr instance.
type Config struct {
	URL              string
	APIKey           string
	QualityProfileID int
	RootFolder       string
	TagName          string
	Timeout          time.Duration
}

// Movie is a Radarr catalog entry, either from lookup or the local library.
type Movie struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	TMDBID    int64  `json:"tmdbId"`
	Monitored bool   `json:"monitored"`
	// raw preserves fields we do not model so updates round-trip intact.
	raw map[string]json.RawMessage
}

// Client talks to the Radarr v3 API.
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

// New constructs a Radarr client.
func New(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("radarr: url required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("radarr: api key required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		cfg:        cfg,
		baseURL:    baseURL + "/api/v3",
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Lookup searches Radarr's metadata provider for a title.
func (c *Client) Lookup(ctx context.Context, term string) ([]Movie, error) {
	query := url.Values{"term": {term}}
	body, err := c.do(ctx, http.MethodGet, "/movie/lookup", query, nil)
	if err != nil {
		return nil, err
	}
	return decodeMovies(body)
}

// FindByTMDBID returns the library entry for a TMDB id, if present.
func (c *Client) FindByTMDBID(ctx context.Context, tmdbID int64) (Movie, bool, error) {
	query := url.Values{"tmdbId": {strconv.FormatInt(tmdbID, 10)}}
	body, err := c.do(ctx, http.MethodGet, "/movie", query, nil)
	if err != nil {
		return Movie{}, false, err
	}
	movies, err := decodeMovies(body)
	if err != nil {
		return Movie{}, false, err
	}
	if len(movies) == 0 {
		return Movie{}, false, nil
	}
	return movies[0], true, nil
}

// Add registers a movie for download, monitored, with an immediate search.
func (c *Client) Add(ctx context.Context, candidate Movie) (Movie, error) {
	if candidate.TMDBID == 0 {
		return Movie{}, errors.New("radarr add: tmdb id required")
	}
	tagIDs, err := c.tagIDs(ctx)
	if err != nil {
		return Movie{}, err
	}

	payload := map[string]any{
		"title":            candidate.Title,
		"year":             candidate.Year,
		"tmdbId":           candidate.TMDBID,
		"qualityProfileId": c.cfg.QualityProfileID,
		"rootFolderPath":   c.cfg.RootFolder,
		"monitored":        true,
		"tags":             tagIDs,
		"addOptions": map[string]any{
			"searchForMovie": true,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Movie{}, fmt.Errorf("radarr add: encode body: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/movie", nil, bytes.NewReader(encoded))
	if err != nil {
		return Movie{}, err
	}
	var added Movie
	if err := added.UnmarshalJSON(body); err != nil {
		return Movie{}, fmt.Errorf("radarr add: decode response: %w", err)
	}
	return added, nil
}

// SetMonitored flips the monitored flag on an existing entry. The update sends
// the entry back with every unmodeled field preserved, since Radarr's PUT
// replaces the whole document.
func (c *Client) SetMonitored(ctx context.Context, movie Movie, monitored bool) error {
	if movie.raw == nil {
		return errors.New("radarr monitor: movie was not fetched from the api")
	}
	movie.raw["monitored"] = json.RawMessage(strconv.FormatBool(monitored))
	encoded, err := json.Marshal(movie.raw)
	if err != nil {
		return fmt.Errorf("radarr monitor: encode body: %w", err)
	}
	path := "/movie/" + strconv.FormatInt(movie.ID, 10)
	_, err = c.do(ctx, http.MethodPut, path, nil, bytes.NewReader(encoded))
	return err
}

// EnsureTag creates the configured tag if absent and returns its id. A blank
// tag name means tagging is disabled and returns (0, false).
func (c *Client) EnsureTag(ctx context.Context) (int64, bool, error) {
	name := strings.TrimSpace(c.cfg.TagName)
	if name == "" {
		return 0, false, nil
	}
	body, err := c.do(ctx, http.MethodGet, "/tag", nil, nil)
	if err != nil {
		return 0, false, err
	}
	var tags []struct {
		ID    int64  `json:"id"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(body, &tags); err != nil {
		return 0, false, fmt.Errorf("radarr tag: decode response: %w", err)
	}
	for _, tag := range tags {
		if strings.EqualFold(tag.Label, name) {
			return tag.ID, true, nil
		}
	}

	encoded, _ := json.Marshal(map[string]string{"label": name})
	body, err = c.do(ctx, http.MethodPost, "/tag", nil, bytes.NewReader(encoded))
	if err != nil {
		return 0, false, err
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return 0, false, fmt.Errorf("radarr tag: decode response: %w", err)
	}
	return created.ID, true, nil
}

func (c *Client) tagIDs(ctx context.Context) ([]int64, error) {
	id, ok, err := c.EnsureTag(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []int64{}, nil
	}
	return []int64{id}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("radarr %s: new request: %w", path, err)
	}
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("radarr %s: %w", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("radarr %s: read body: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &resilience.HTTPStatusError{
			Op:         "radarr " + path,
			StatusCode: resp.StatusCode,
			Body:       string(payload[:min(len(payload), 512)]),
		}
	}
	return payload, nil
}

// UnmarshalJSON decodes a movie while keeping every raw field for later
// round-trip updates.
func (m *Movie) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type plain struct {
		ID        int64  `json:"id"`
		Title     string `json:"title"`
		Year      int    `json:"year"`
		TMDBID    int64  `json:"tmdbId"`
		Monitored bool   `json:"monitored"`
	}
	var fields plain
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	m.ID = fields.ID
	m.Title = fields.Title
	m.Year = fields.Year
	m.TMDBID = fields.TMDBID
	m.Monitored = fields.Monitored
	m.raw = raw
	return nil
}

func decodeMovies(body []byte) ([]Movie, error) {
	var movies []Movie
	if err := json.Unmarshal(body, &movies); err != nil {
		return nil, fmt.Errorf("radarr: decode movies: %w", err)
	}
	return movies, nil
}
