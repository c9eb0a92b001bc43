// Package snapshot persists the desired collection state produced by a scoring
// pass so that synchronization can run later, during an off-peak window,
// without recomputing scores.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"curator/internal/points"
)

// Item is one desired collection member with its presentation metadata.
type Item struct {
	RatingKey string `json:"rating_key"`
	Title     string `json:"title"`
	Year      *int   `json:"year"`
	Points    int    `json:"points"`
}

// Snapshot is the exact ordered membership a collection should have,
// decoupled in time from when it is applied.
type Snapshot struct {
	RatingKeys []string `json:"rating_keys"`
	Items      []Item   `json:"items"`
}

// Build assembles a snapshot from the store following orderedKeys. Entries
// without a resolved server rating key are carried with their score key so the
// synchronizer can count them as unresolved rather than silently losing them.
func Build(store *points.Store, orderedKeys []string) Snapshot {
	snap := Snapshot{}
	for _, key := range orderedKeys {
		entry, ok := store.Get(key)
		if !ok {
			continue
		}
		ratingKey := entry.RatingKey
		if ratingKey == "" {
			ratingKey = key
		}
		item := Item{
			RatingKey: ratingKey,
			Title:     entry.Title,
			Points:    entry.Points,
		}
		if entry.Year != 0 {
			year := entry.Year
			item.Year = &year
		}
		snap.RatingKeys = append(snap.RatingKeys, ratingKey)
		snap.Items = append(snap.Items, item)
	}
	return snap
}

// Save writes the snapshot atomically as pretty-printed UTF-8 JSON.
func Save(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	encoded = append(encoded, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

// Load reads a snapshot. A missing file returns found=false without error so
// callers can treat "nothing to apply" as a normal outcome.
func Load(path string) (Snapshot, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, true, nil
}
