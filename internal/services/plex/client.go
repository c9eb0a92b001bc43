package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"curator/internal/resilience"
)

const defaultTimeout = 30 * time.Second

// ItemKind classifies catalog entries. Collections declare a target kind and
// items of any other kind never enter their persisted state.
type ItemKind string

const (
	KindMovie ItemKind = "movie"
	KindShow  ItemKind = "show"
	KindOther ItemKind = "other"
)

// KindFromType maps a Plex metadata type string to an ItemKind.
func KindFromType(value string) ItemKind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie":
		return KindMovie
	case "show":
		return KindShow
	default:
		return KindOther
	}
}

// Item is a catalog entry known to the server.
type Item struct {
	RatingKey string
	Title     string
	Year      int
	Kind      ItemKind
	GUIDs     []string
}

// Collection identifies a server-side collection.
type Collection struct {
	RatingKey string
	Title     string
}

// Identity describes the connected server.
type Identity struct {
	FriendlyName      string
	MachineIdentifier string
}

// Config captures connection settings for a Plex server.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// Client is a minimal Plex HTTP API client covering the library and
// collection operations Curator needs.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu        sync.Mutex
	machineID string
	sections  map[string]string
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

// New constructs a Plex client.
func New(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("plex: url required")
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("plex: token required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Identity fetches the server identity. It doubles as the connection check at
// the start of a run.
func (c *Client) Identity(ctx context.Context) (Identity, error) {
	var payload struct {
		MediaContainer struct {
			FriendlyName      string `json:"friendlyName"`
			MachineIdentifier string `json:"machineIdentifier"`
		} `json:"MediaContainer"`
	}
	if err := c.getJSON(ctx, "/identity", nil, &payload); err != nil {
		return Identity{}, err
	}
	identity := Identity{
		FriendlyName:      payload.MediaContainer.FriendlyName,
		MachineIdentifier: payload.MediaContainer.MachineIdentifier,
	}
	c.mu.Lock()
	c.machineID = identity.MachineIdentifier
	c.mu.Unlock()
	return identity, nil
}

// SectionKey resolves a library section name to its key, caching the section
// directory for the lifetime of the client.
func (c *Client) SectionKey(ctx context.Context, name string) (string, error) {
	sections, err := c.ensureSections(ctx)
	if err != nil {
		return "", err
	}
	key, ok := sections[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("plex library %q not found", name)
	}
	return key, nil
}

func (c *Client) ensureSections(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sections != nil {
		return c.sections, nil
	}

	var payload struct {
		MediaContainer struct {
			Directory []struct {
				Key   string `json:"key"`
				Title string `json:"title"`
			} `json:"Directory"`
		} `json:"MediaContainer"`
	}
	if err := c.getJSON(ctx, "/library/sections", nil, &payload); err != nil {
		return nil, err
	}

	sections := make(map[string]string, len(payload.MediaContainer.Directory))
	for _, dir := range payload.MediaContainer.Directory {
		sections[strings.ToLower(dir.Title)] = dir.Key
	}
	c.sections = sections
	return sections, nil
}

// SectionItems lists every item in a section.
func (c *Client) SectionItems(ctx context.Context, sectionKey string) ([]Item, error) {
	var payload metadataContainer
	if err := c.getJSON(ctx, "/library/sections/"+sectionKey+"/all", nil, &payload); err != nil {
		return nil, err
	}
	return payload.items(), nil
}

// Search finds items in a section by title.
func (c *Client) Search(ctx context.Context, sectionKey, title string) ([]Item, error) {
	query := url.Values{"title": {title}}
	var payload metadataContainer
	if err := c.getJSON(ctx, "/library/sections/"+sectionKey+"/all", query, &payload); err != nil {
		return nil, err
	}
	return payload.items(), nil
}

// FetchItem resolves a rating key to a live item. A missing item returns
// found=false without error; the item may simply not be ingested yet.
func (c *Client) FetchItem(ctx context.Context, ratingKey string) (Item, bool, error) {
	var payload metadataContainer
	err := c.getJSON(ctx, "/library/metadata/"+ratingKey, nil, &payload)
	if err != nil {
		var statusErr *resilience.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return Item{}, false, nil
		}
		return Item{}, false, err
	}
	items := payload.items()
	if len(items) == 0 {
		return Item{}, false, nil
	}
	return items[0], true, nil
}

type metadataContainer struct {
	MediaContainer struct {
		Metadata []struct {
			RatingKey string `json:"ratingKey"`
			Title     string `json:"title"`
			Year      int    `json:"year"`
			Type      string `json:"type"`
			GUID      []struct {
				ID string `json:"id"`
			} `json:"Guid"`
		} `json:"Metadata"`
	} `json:"MediaContainer"`
}

func (mc metadataContainer) items() []Item {
	items := make([]Item, 0, len(mc.MediaContainer.Metadata))
	for _, md := range mc.MediaContainer.Metadata {
		item := Item{
			RatingKey: md.RatingKey,
			Title:     md.Title,
			Year:      md.Year,
			Kind:      KindFromType(md.Type),
		}
		for _, guid := range md.GUID {
			item.GUIDs = append(item.GUIDs, guid.ID)
		}
		items = append(items, item)
	}
	return items
}

func (c *Client) machineIdentifier(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.machineID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	identity, err := c.Identity(ctx)
	if err != nil {
		return "", err
	}
	return identity.MachineIdentifier, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, out any) error {
	body, err := c.do(ctx, method, path, query)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("plex %s: decode response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	return c.doBody(ctx, method, path, query, nil, "")
}

func (c *Client) doBody(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("plex %s: new request: %w", path, err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plex %s: %w", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("plex %s: read body: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &resilience.HTTPStatusError{
			Op:         "plex " + path,
			StatusCode: resp.StatusCode,
			Body:       string(payload[:min(len(payload), 512)]),
		}
	}
	return payload, nil
}
