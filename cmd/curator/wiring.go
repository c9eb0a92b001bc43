package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"curator/internal/config"
	"curator/internal/pipeline"
	"curator/internal/recommend"
	"curator/internal/services/llm"
	"curator/internal/services/plex"
	"curator/internal/services/radarr"
	"curator/internal/services/sonarr"
	"curator/internal/services/tmdb"
	"curator/internal/services/websearch"
)

func buildPlexClient(cfg *config.Config) (*plex.Client, error) {
	client, err := plex.New(plex.Config{
		URL:     cfg.Plex.URL,
		Token:   cfg.Plex.Token,
		Timeout: time.Duration(cfg.Plex.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("plex client: %w", err)
	}
	return client, nil
}

func buildRecommendEngine(cfg *config.Config, log *slog.Logger) (*recommend.Engine, error) {
	model := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
	}, log)

	searcher := websearch.New(websearch.Config{
		APIKey:         cfg.Search.APIKey,
		SearchEngineID: cfg.Search.SearchEngineID,
		NumResults:     cfg.Search.NumResults,
	})

	catalog, err := tmdb.New(tmdb.Config{
		APIKey:   cfg.TMDB.APIKey,
		BaseURL:  cfg.TMDB.BaseURL,
		Language: cfg.TMDB.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("tmdb client: %w", err)
	}

	return recommend.New(model, searcher, catalog, log,
		recommend.WithLimit(cfg.Scoring.SuggestionLimit)), nil
}

// buildQueuers wires the optional download automation. Either return value
// may be nil when the corresponding service is disabled.
func buildQueuers(cfg *config.Config, log *slog.Logger) (*pipeline.MovieQueuer, *pipeline.ShowQueuer, error) {
	var movie *pipeline.MovieQueuer
	if cfg.Radarr.Enabled {
		client, err := radarr.New(radarr.Config{
			URL:              cfg.Radarr.URL,
			APIKey:           cfg.Radarr.APIKey,
			QualityProfileID: int(cfg.Radarr.QualityProfileID),
			RootFolder:       cfg.Radarr.RootFolder,
			TagName:          cfg.Radarr.TagName,
			Timeout:          time.Duration(cfg.Radarr.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("radarr client: %w", err)
		}
		movie = pipeline.NewMovieQueuer(client, log)
	}

	var show *pipeline.ShowQueuer
	if cfg.Sonarr.Enabled {
		client, err := sonarr.New(sonarr.Config{
			URL:              cfg.Sonarr.URL,
			APIKey:           cfg.Sonarr.APIKey,
			QualityProfileID: int(cfg.Sonarr.QualityProfileID),
			RootFolder:       cfg.Sonarr.RootFolder,
			TagName:          cfg.Sonarr.TagName,
			Timeout:          time.Duration(cfg.Sonarr.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("sonarr client: %w", err)
		}
		show = pipeline.NewShowQueuer(client, log)
	}

	return movie, show, nil
}

// acquireDomainLock takes the per-domain run lock so scoring and sync passes
// for the same library never overlap. The caller must invoke the returned
// release function.
func acquireDomainLock(cfg *config.Config, domain pipeline.Domain) (func(), error) {
	lockPath := filepath.Join(cfg.Paths.DataDir, fmt.Sprintf("curator-%s.lock", domain))
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", domain, err)
	}
	if !ok {
		return nil, fmt.Errorf("another curator run holds the %s lock (%s)", domain, lockPath)
	}
	return func() { _ = lock.Unlock() }, nil
}
