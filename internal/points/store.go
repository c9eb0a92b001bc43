package points

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Store is the durable score ledger for one collection domain. It is the sole
// record of what should be in the collection and how much it is wanted; the
// live server collection is a downstream projection of it.
//
// Lifecycle is load, mutate, save — three distinct phases with no concurrent
// mutation. Callers serialize scoring passes per domain.
type Store struct {
	path    string
	entries map[string]*Entry
}

// Load reads the ledger at path. A missing or corrupt file yields an empty
// store, never an error: the ledger rebuilds itself over subsequent runs.
func Load(path string) *Store {
	store := &Store{path: path, entries: map[string]*Entry{}}

	data, err := os.ReadFile(path)
	if err != nil {
		return store
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return store
	}

	for key, value := range raw {
		if entry, ok := decodeEntry(value); ok && entry.Points > 0 {
			entry := entry
			store.entries[key] = &entry
		}
	}
	return store
}

// decodeEntry normalizes the two historical on-disk shapes — a bare integer or
// a nested object — into a single Entry so nothing downstream branches on
// shape.
func decodeEntry(raw json.RawMessage) (Entry, bool) {
	var pts int
	if err := json.Unmarshal(raw, &pts); err == nil {
		return Entry{Points: pts}, true
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err == nil {
		return entry, true
	}
	return Entry{}, false
}

// Save writes the ledger back atomically (temp file + rename) as pretty-printed
// UTF-8 JSON.
func (s *Store) Save() error {
	if s.path == "" {
		return errors.New("points store has no path")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create points directory: %w", err)
	}

	encoded, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode points: %w", err)
	}
	encoded = append(encoded, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".points-*.json")
	if err != nil {
		return fmt.Errorf("create temp points file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write points: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close points file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace points file: %w", err)
	}
	return nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Get returns the entry for key.
func (s *Store) Get(key string) (Entry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Keys returns all score keys in unspecified order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// Migrate moves the entry under fromKey to toKey once an item's stable key is
// known. Points merge by taking the maximum so a resolution never loses score,
// and the stale key is always deleted. Running it twice is a no-op.
func (s *Store) Migrate(fromKey, toKey string) {
	if fromKey == toKey {
		return
	}
	from, ok := s.entries[fromKey]
	if !ok {
		return
	}
	if to, exists := s.entries[toKey]; exists {
		if from.Points > to.Points {
			to.Points = from.Points
		}
		if to.Title == "" {
			to.Title = from.Title
		}
		if to.Year == 0 {
			to.Year = from.Year
		}
		if to.RatingKey == "" {
			to.RatingKey = from.RatingKey
		}
		if to.ExternalID == 0 {
			to.ExternalID = from.ExternalID
		}
		to.Suggested = to.Suggested || from.Suggested
	} else {
		s.entries[toKey] = from
	}
	delete(s.entries, fromKey)
}

// OrderedKeys returns keys sorted by points descending, then title ascending.
// The tie-break is stable and deterministic to avoid visual jitter between
// runs with equal scores.
func (s *Store) OrderedKeys() []string {
	keys := s.Keys()
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.entries[keys[i]], s.entries[keys[j]]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return keys[i] < keys[j]
	})
	return keys
}
