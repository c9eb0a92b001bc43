package plex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"curator/internal/resilience"
)

// SortMode enumerates the collection sort preferences Plex understands.
type SortMode string

const (
	SortRelease SortMode = "0"
	SortAlpha   SortMode = "1"
	SortCustom  SortMode = "2"
)

// FindCollection looks up a collection by title within a section. Absence is
// an expected condition and returns found=false, never an error.
func (c *Client) FindCollection(ctx context.Context, sectionKey, title string) (Collection, bool, error) {
	var payload struct {
		MediaContainer struct {
			Metadata []struct {
				RatingKey string `json:"ratingKey"`
				Title     string `json:"title"`
			} `json:"Metadata"`
		} `json:"MediaContainer"`
	}
	if err := c.getJSON(ctx, "/library/sections/"+sectionKey+"/collections", nil, &payload); err != nil {
		return Collection{}, false, err
	}
	for _, md := range payload.MediaContainer.Metadata {
		if strings.EqualFold(md.Title, title) {
			return Collection{RatingKey: md.RatingKey, Title: md.Title}, true, nil
		}
	}
	return Collection{}, false, nil
}

// CreateCollection creates a collection seeded with the given items and
// returns its identity.
func (c *Client) CreateCollection(ctx context.Context, sectionKey string, kind ItemKind, title string, ratingKeys []string) (Collection, error) {
	if len(ratingKeys) == 0 {
		return Collection{}, errors.New("plex: cannot create collection without seed items")
	}
	uri, err := c.metadataURI(ctx, ratingKeys)
	if err != nil {
		return Collection{}, err
	}

	query := url.Values{
		"type":      {collectionType(kind)},
		"title":     {title},
		"smart":     {"0"},
		"sectionId": {sectionKey},
		"uri":       {uri},
	}
	var payload struct {
		MediaContainer struct {
			Metadata []struct {
				RatingKey string `json:"ratingKey"`
				Title     string `json:"title"`
			} `json:"Metadata"`
		} `json:"MediaContainer"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/library/collections", query, &payload); err != nil {
		return Collection{}, err
	}
	if len(payload.MediaContainer.Metadata) == 0 {
		// Some server versions return an empty body; fall back to lookup.
		created, found, err := c.FindCollection(ctx, sectionKey, title)
		if err != nil {
			return Collection{}, err
		}
		if !found {
			return Collection{}, fmt.Errorf("plex: collection %q not visible after create", title)
		}
		return created, nil
	}
	md := payload.MediaContainer.Metadata[0]
	return Collection{RatingKey: md.RatingKey, Title: md.Title}, nil
}

// CollectionItems returns the current membership of a collection.
func (c *Client) CollectionItems(ctx context.Context, collectionKey string) ([]Item, error) {
	var payload metadataContainer
	if err := c.getJSON(ctx, "/library/collections/"+collectionKey+"/children", nil, &payload); err != nil {
		return nil, err
	}
	return payload.items(), nil
}

// AddCollectionItems adds items to a collection in one batched request.
func (c *Client) AddCollectionItems(ctx context.Context, collectionKey string, ratingKeys []string) error {
	if len(ratingKeys) == 0 {
		return nil
	}
	uri, err := c.metadataURI(ctx, ratingKeys)
	if err != nil {
		return err
	}
	query := url.Values{"uri": {uri}}
	return c.doJSON(ctx, http.MethodPut, "/library/collections/"+collectionKey+"/items", query, nil)
}

// RemoveCollectionItems removes items from a collection. The server only
// accepts per-item deletes; an item that is already gone counts as removed so
// the batch stays idempotent under retry.
func (c *Client) RemoveCollectionItems(ctx context.Context, collectionKey string, ratingKeys []string) error {
	for _, ratingKey := range ratingKeys {
		err := c.doJSON(ctx, http.MethodDelete, "/library/collections/"+collectionKey+"/children/"+ratingKey, nil, nil)
		if err != nil {
			var statusErr *resilience.HTTPStatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
				continue
			}
			return err
		}
	}
	return nil
}

// SetCollectionSort switches the collection's sort preference. Custom mode is
// the precondition for positional moves.
func (c *Client) SetCollectionSort(ctx context.Context, collectionKey string, mode SortMode) error {
	query := url.Values{"collectionSort": {string(mode)}}
	return c.doJSON(ctx, http.MethodPut, "/library/metadata/"+collectionKey+"/prefs", query, nil)
}

// MoveCollectionItem positions an item immediately after the anchor, or at the
// front when afterKey is empty.
func (c *Client) MoveCollectionItem(ctx context.Context, collectionKey, ratingKey, afterKey string) error {
	var query url.Values
	if afterKey != "" {
		query = url.Values{"after": {afterKey}}
	}
	path := "/library/collections/" + collectionKey + "/items/" + ratingKey + "/move"
	return c.doJSON(ctx, http.MethodPut, path, query, nil)
}

// UploadPoster sets the collection poster from a local file.
func (c *Client) UploadPoster(ctx context.Context, collectionKey, path string) error {
	return c.uploadImage(ctx, collectionKey, "posters", path)
}

// UploadArt sets the collection background art from a local file.
func (c *Client) UploadArt(ctx context.Context, collectionKey, path string) error {
	return c.uploadImage(ctx, collectionKey, "arts", path)
}

func (c *Client) uploadImage(ctx context.Context, collectionKey, kind, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("plex upload %s: %w", kind, err)
	}
	_, err = c.doBody(ctx, http.MethodPost, "/library/metadata/"+collectionKey+"/"+kind, nil, bytes.NewReader(data), "application/octet-stream")
	return err
}

func (c *Client) metadataURI(ctx context.Context, ratingKeys []string) (string, error) {
	machineID, err := c.machineIdentifier(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"server://%s/com.plexapp.plugins.library/library/metadata/%s",
		machineID,
		strings.Join(ratingKeys, ","),
	), nil
}

func collectionType(kind ItemKind) string {
	if kind == KindShow {
		return "2"
	}
	return "1"
}
