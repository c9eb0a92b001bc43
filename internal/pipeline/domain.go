package pipeline

import (
	"fmt"
	"path/filepath"

	"curator/internal/config"
	"curator/internal/services/plex"
)

// Domain selects which curated collection a run operates on. Each domain has
// its own points ledger, snapshot, and server collection.
type Domain string

const (
	DomainMovie Domain = "movie"
	DomainShow  Domain = "show"
)

// ParseDomain validates a user-supplied domain name.
func ParseDomain(value string) (Domain, error) {
	switch Domain(value) {
	case DomainMovie:
		return DomainMovie, nil
	case DomainShow:
		return DomainShow, nil
	}
	return "", fmt.Errorf("unknown domain %q (want movie or show)", value)
}

// Kind maps the domain to the server item kind it curates.
func (d Domain) Kind() plex.ItemKind {
	if d == DomainShow {
		return plex.KindShow
	}
	return plex.KindMovie
}

// PointsPath returns the domain's ledger file.
func (d Domain) PointsPath(cfg *config.Config) string {
	name := "recommendation_points.json"
	if d == DomainShow {
		name = "recommendation_points_tv.json"
	}
	return filepath.Join(cfg.Paths.DataDir, name)
}

// SnapshotPath returns the domain's persisted desired-state file.
func (d Domain) SnapshotPath(cfg *config.Config) string {
	name := "collection_state.json"
	if d == DomainShow {
		name = "collection_state_tv.json"
	}
	return filepath.Join(cfg.Paths.DataDir, name)
}

// PosterPath returns the optional collection poster for the domain.
func (d Domain) PosterPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "artwork", string(d)+"_poster.png")
}

// ArtPath returns the optional collection background art for the domain.
func (d Domain) ArtPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "artwork", string(d)+"_art.png")
}

// Library returns the configured library section name for the domain.
func (d Domain) Library(cfg *config.Config) string {
	if d == DomainShow {
		return cfg.Plex.TVLibrary
	}
	return cfg.Plex.MovieLibrary
}

// CollectionTitle returns the configured collection name for the domain.
func (d Domain) CollectionTitle(cfg *config.Config) string {
	if d == DomainShow {
		return cfg.Collections.TVCollection
	}
	return cfg.Collections.MovieCollection
}
