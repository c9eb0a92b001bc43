package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"curator/internal/points"
	"curator/internal/services/llm"
	"curator/internal/services/tmdb"
	"curator/internal/services/websearch"
)

// Candidate is a recommended title before catalog resolution.
type Candidate struct {
	Title string
	Year  int
}

// languageModel is the slice of llm.Client the engine needs.
type languageModel interface {
	Enabled() bool
	Recommend(ctx context.Context, req llm.Request) ([]llm.Recommendation, error)
}

// contextSearcher is the slice of websearch.Client the engine needs.
type contextSearcher interface {
	Enabled() bool
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// catalog is the slice of tmdb.Client the engine needs.
type catalog interface {
	Search(ctx context.Context, kind, title string) (tmdb.Title, bool, error)
	Recommendations(ctx context.Context, kind string, id int64) ([]tmdb.Title, error)
}

// Engine produces recommendation candidates from whichever sources are
// configured: the LLM first (optionally grounded with web search results),
// falling back to TMDB's recommendation graph when the LLM is unavailable or
// fails.
type Engine struct {
	model    languageModel
	searcher contextSearcher
	catalog  catalog
	log      *slog.Logger
	limit    int
}

// Option customizes the engine.
type Option func(*Engine)

// WithLimit caps how many candidates a single pass produces.
func WithLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.limit = limit
		}
	}
}

// New constructs an engine. The model and searcher may be disabled clients;
// the catalog is required since it is the fallback of last resort.
func New(model *llm.Client, searcher *websearch.Client, cat *tmdb.Client, log *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		model:    model,
		searcher: searcher,
		catalog:  cat,
		log:      log,
		limit:    10,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Recommend returns candidates similar to the library titles, excluding
// anything whose normalized title matches the library or exclusion list.
func (e *Engine) Recommend(ctx context.Context, kind string, library, exclude []string) ([]Candidate, error) {
	if len(library) == 0 {
		return nil, errors.New("recommend: library titles required")
	}

	seen := make(map[string]struct{}, len(library)+len(exclude))
	for _, title := range library {
		seen[points.NormalizeTitle(title)] = struct{}{}
	}
	for _, title := range exclude {
		seen[points.NormalizeTitle(title)] = struct{}{}
	}

	if e.model != nil && e.model.Enabled() {
		candidates, err := e.fromModel(ctx, kind, library, exclude, seen)
		if err == nil && len(candidates) > 0 {
			return candidates, nil
		}
		if err != nil {
			e.log.Warn("llm recommendation failed, falling back to tmdb", "error", err)
		}
	}

	return e.fromCatalog(ctx, kind, library, seen)
}

func (e *Engine) fromModel(ctx context.Context, kind string, library, exclude []string, seen map[string]struct{}) ([]Candidate, error) {
	searchContext := ""
	if e.searcher != nil && e.searcher.Enabled() {
		// Search failures degrade the prompt, never the run.
		results, err := e.searcher.Search(ctx, searchQuery(kind, library))
		if err != nil {
			e.log.Warn("web search unavailable", "error", err)
		} else {
			searchContext = websearch.FormatForPrompt(results)
		}
	}

	recs, err := e.model.Recommend(ctx, llm.Request{
		Kind:    kind,
		Library: library,
		Exclude: exclude,
		Context: searchContext,
		Limit:   e.limit,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(recs))
	for _, rec := range recs {
		key := points.NormalizeTitle(rec.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, Candidate{Title: rec.Title, Year: rec.Year})
		if len(candidates) == e.limit {
			break
		}
	}
	return candidates, nil
}

// fromCatalog walks TMDB's recommendation graph seeded by library titles.
func (e *Engine) fromCatalog(ctx context.Context, kind string, library []string, seen map[string]struct{}) ([]Candidate, error) {
	if e.catalog == nil {
		return nil, errors.New("recommend: no recommendation source available")
	}

	const maxSeeds = 5
	var candidates []Candidate
	seeds := 0
	for _, title := range library {
		if seeds == maxSeeds || len(candidates) >= e.limit {
			break
		}
		match, found, err := e.catalog.Search(ctx, kind, title)
		if err != nil {
			return nil, fmt.Errorf("recommend: resolve seed %q: %w", title, err)
		}
		if !found {
			continue
		}
		seeds++

		related, err := e.catalog.Recommendations(ctx, kind, match.ID)
		if err != nil {
			return nil, fmt.Errorf("recommend: related titles for %q: %w", title, err)
		}
		for _, rec := range related {
			key := points.NormalizeTitle(rec.Name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			candidates = append(candidates, Candidate{Title: rec.Name, Year: rec.Year})
			if len(candidates) >= e.limit {
				break
			}
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("recommend: no candidates from any source")
	}
	return candidates, nil
}

func searchQuery(kind string, library []string) string {
	noun := "movies"
	if kind == "show" {
		noun = "tv shows"
	}
	sample := library
	if len(sample) > 3 {
		sample = sample[:3]
	}
	return fmt.Sprintf("best %s similar to %s", noun, strings.Join(sample, ", "))
}
