package pipeline

import (
	"context"
	"log/slog"

	"curator/internal/points"
	"curator/internal/services/radarr"
	"curator/internal/services/sonarr"
)

// MovieQueuer registers missing movies with Radarr.
type MovieQueuer struct {
	client *radarr.Client
	log    *slog.Logger
}

// NewMovieQueuer constructs a Radarr-backed queuer.
func NewMovieQueuer(client *radarr.Client, log *slog.Logger) *MovieQueuer {
	return &MovieQueuer{client: client, log: log}
}

// Queue looks the title up and adds it monitored with an immediate search.
// Titles already in the library are re-monitored if a user had unmonitored
// them; that path reports queued=false since nothing new was registered.
func (q *MovieQueuer) Queue(ctx context.Context, title string, year int) (bool, error) {
	results, err := q.client.Lookup(ctx, title)
	if err != nil {
		return false, err
	}
	candidate, ok := matchMovie(results, title, year)
	if !ok {
		q.log.Debug("no radarr match", "title", title)
		return false, nil
	}

	existing, found, err := q.client.FindByTMDBID(ctx, candidate.TMDBID)
	if err != nil {
		return false, err
	}
	if found {
		if !existing.Monitored {
			if err := q.client.SetMonitored(ctx, existing, true); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	if _, err := q.client.Add(ctx, candidate); err != nil {
		return false, err
	}
	return true, nil
}

// ShowQueuer registers missing series with Sonarr.
type ShowQueuer struct {
	client *sonarr.Client
	log    *slog.Logger
}

// NewShowQueuer constructs a Sonarr-backed queuer.
func NewShowQueuer(client *sonarr.Client, log *slog.Logger) *ShowQueuer {
	return &ShowQueuer{client: client, log: log}
}

// Queue looks the title up and adds it monitored with a search for missing
// episodes. Existing unmonitored series are re-monitored and searched.
func (q *ShowQueuer) Queue(ctx context.Context, title string, year int) (bool, error) {
	results, err := q.client.Lookup(ctx, title)
	if err != nil {
		return false, err
	}
	candidate, ok := matchSeries(results, title, year)
	if !ok {
		q.log.Debug("no sonarr match", "title", title)
		return false, nil
	}

	existing, found, err := q.client.FindByTVDBID(ctx, candidate.TVDBID)
	if err != nil {
		return false, err
	}
	if found {
		if !existing.Monitored {
			if err := q.client.SetMonitored(ctx, existing, true); err != nil {
				return false, err
			}
			if err := q.client.SearchSeries(ctx, existing.ID); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	if _, err := q.client.Add(ctx, candidate); err != nil {
		return false, err
	}
	return true, nil
}

func matchMovie(results []radarr.Movie, title string, year int) (radarr.Movie, bool) {
	want := points.NormalizeTitle(title)
	for _, movie := range results {
		if points.NormalizeTitle(movie.Title) != want {
			continue
		}
		if year != 0 && movie.Year != 0 && movie.Year != year {
			continue
		}
		return movie, true
	}
	return radarr.Movie{}, false
}

func matchSeries(results []sonarr.Series, title string, year int) (sonarr.Series, bool) {
	want := points.NormalizeTitle(title)
	for _, series := range results {
		if points.NormalizeTitle(series.Title) != want {
			continue
		}
		if year != 0 && series.Year != 0 && series.Year != year {
			continue
		}
		return series, true
	}
	return sonarr.Series{}, false
}
