package sonarr

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

// Config captures connection settings for a Sonarr instance.
type Config struct {
	URL              string
	APIKey           string
	QualityProfileID int
	RootFolder       string
	TagName          string
	Timeout          time.Duration
}

// Series is a Sonarr catalog entry, either from lookup or the local library.
type Series struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	TVDBID    int64  `json:"tvdbId"`
	TitleSlug string `json:"titleSlug"`
	Monitored bool   `json:"monitored"`
	// raw preserves fields we do not model so updates round-trip intact.
	raw map[string]json.RawMessage
}

// Client talks to the Sonarr v3 API.
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

// New constructs a Sonarr client.
func New(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("sonarr: url required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sonarr: api key required")
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

// Lookup searches Sonarr's metadata provider for a title.
func (c *Client) Lookup(ctx context.Context, term string) ([]Series, error) {
	query := url.Values{"term": {term}}
	body, err := c.do(ctx, http.MethodGet, "/series/lookup", query, nil)
	if err != nil {
		return nil, err
	}
	return decodeSeries(body)
}

// FindByTVDBID returns the library entry for a TVDB id, if present.
func (c *Client) FindByTVDBID(ctx context.Context, tvdbID int64) (Series, bool, error) {
	query := url.Values{"tvdbId": {strconv.FormatInt(tvdbID, 10)}}
	body, err := c.do(ctx, http.MethodGet, "/series", query, nil)
	if err != nil {
		return Series{}, false, err
	}
	all, err := decodeSeries(body)
	if err != nil {
		return Series{}, false, err
	}
	// Older servers ignore the tvdbId filter, so match locally too.
	for _, series := range all {
		if series.TVDBID == tvdbID {
			return series, true, nil
		}
	}
	return Series{}, false, nil
}

// Add registers a series for download, monitored, with a search for missing
// episodes.
func (c *Client) Add(ctx context.Context, candidate Series) (Series, error) {
	if candidate.TVDBID == 0 {
		return Series{}, errors.New("sonarr add: tvdb id required")
	}
	tagIDs, err := c.tagIDs(ctx)
	if err != nil {
		return Series{}, err
	}

	payload := map[string]any{
		"title":            candidate.Title,
		"year":             candidate.Year,
		"tvdbId":           candidate.TVDBID,
		"titleSlug":        candidate.TitleSlug,
		"qualityProfileId": c.cfg.QualityProfileID,
		"rootFolderPath":   c.cfg.RootFolder,
		"monitored":        true,
		"seasonFolder":     true,
		"tags":             tagIDs,
		"addOptions": map[string]any{
			"monitor":                  "all",
			"searchForMissingEpisodes": true,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Series{}, fmt.Errorf("sonarr add: encode body: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/series", nil, bytes.NewReader(encoded))
	if err != nil {
		return Series{}, err
	}
	var added Series
	if err := added.UnmarshalJSON(body); err != nil {
		return Series{}, fmt.Errorf("sonarr add: decode response: %w", err)
	}
	return added, nil
}

// SetMonitored flips the monitored flag on an existing entry, sending the
// full document back since Sonarr's PUT is a replace.
func (c *Client) SetMonitored(ctx context.Context, series Series, monitored bool) error {
	if series.raw == nil {
		return errors.New("sonarr monitor: series was not fetched from the api")
	}
	series.raw["monitored"] = json.RawMessage(strconv.FormatBool(monitored))
	encoded, err := json.Marshal(series.raw)
	if err != nil {
		return fmt.Errorf("sonarr monitor: encode body: %w", err)
	}
	path := "/series/" + strconv.FormatInt(series.ID, 10)
	_, err = c.do(ctx, http.MethodPut, path, nil, bytes.NewReader(encoded))
	return err
}

// SearchSeries triggers a search command for every monitored episode of a
// series already in the library.
func (c *Client) SearchSeries(ctx context.Context, seriesID int64) error {
	payload := map[string]any{
		"name":     "SeriesSearch",
		"seriesId": seriesID,
	}
	encoded, _ := json.Marshal(payload)
	_, err := c.do(ctx, http.MethodPost, "/command", nil, bytes.NewReader(encoded))
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
		return 0, false, fmt.Errorf("sonarr tag: decode response: %w", err)
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
		return 0, false, fmt.Errorf("sonarr tag: decode response: %w", err)
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
		return nil, fmt.Errorf("sonarr %s: new request: %w", path, err)
	}
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sonarr %s: %w", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("sonarr %s: read body: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &resilience.HTTPStatusError{
			Op:         "sonarr " + path,
			StatusCode: resp.StatusCode,
			Body:       string(payload[:min(len(payload), 512)]),
		}
	}
	return payload, nil
}

// UnmarshalJSON decodes a series while keeping every raw field for later
// round-trip updates.
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type plain struct {
		ID        int64  `json:"id"`
		Title     string `json:"title"`
		Year      int    `json:"year"`
		TVDBID    int64  `json:"tvdbId"`
		TitleSlug string `json:"titleSlug"`
		Monitored bool   `json:"monitored"`
	}
	var fields plain
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	s.ID = fields.ID
	s.Title = fields.Title
	s.Year = fields.Year
	s.TVDBID = fields.TVDBID
	s.TitleSlug = fields.TitleSlug
	s.Monitored = fields.Monitored
	s.raw = raw
	return nil
}

func decodeSeries(body []byte) ([]Series, error) {
	var series []Series
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, fmt.Errorf("sonarr: decode series: %w", err)
	}
	return series, nil
}
