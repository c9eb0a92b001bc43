package points

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Entry is one scored item in the ledger. Points live in [1, MaxPoints] once a
// scoring pass has completed; entries that decay to zero are deleted rather
// than kept.
type Entry struct {
	Title      string `json:"title"`
	Points     int    `json:"points"`
	Year       int    `json:"year,omitempty"`
	RatingKey  string `json:"rating_key,omitempty"`
	ExternalID int64  `json:"external_id,omitempty"`

	// Suggested marks entries boosted by the current scoring pass. It is
	// per-run state and never persisted.
	Suggested bool `json:"-"`
}

// TitleKey builds the normalized-title fallback score key used when an item is
// recommended but not yet resolvable to a stable server key.
func TitleKey(title string) string {
	return "title:" + NormalizeTitle(title)
}

// ExternalKey builds a stable score key from an external database identifier,
// e.g. ExternalKey("tvdb", 12345).
func ExternalKey(source string, id int64) string {
	return fmt.Sprintf("%s:%d", source, id)
}

// IsFallbackKey reports whether key is a normalized-title fallback rather than
// a stable identifier.
func IsFallbackKey(key string) bool {
	return strings.HasPrefix(key, "title:")
}

// NormalizeTitle folds case and collapses punctuation/whitespace so that minor
// formatting differences between recommendation sources map to one key.
func NormalizeTitle(title string) string {
	folded := cases.Fold().String(strings.TrimSpace(title))
	var b strings.Builder
	prevSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == ':' || r == '\'':
			if !prevSpace && b.Len() > 0 {
				b.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
