package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateRadarr(); err != nil {
		return err
	}
	if err := c.validateSonarr(); err != nil {
		return err
	}
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateCollections(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePlex() error {
	if c.Plex.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/curator/config.toml"
		}
		return fmt.Errorf("plex.url is required. Edit %s (create with 'curator config init')", defaultPath)
	}
	if c.Plex.Token == "" {
		return errors.New("plex.token is required (or set PLEX_TOKEN)")
	}
	if c.Plex.MovieLibrary == "" {
		return errors.New("plex.movie_library must be set")
	}
	if c.Plex.TVLibrary == "" {
		return errors.New("plex.tv_library must be set")
	}
	return nil
}

func (c *Config) validateRadarr() error {
	if !c.Radarr.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Radarr.URL) == "" {
		return errors.New("radarr.url must be set when radarr.enabled is true")
	}
	if c.Radarr.APIKey == "" {
		return errors.New("radarr.api_key must be set when radarr.enabled is true")
	}
	if c.Radarr.QualityProfileID <= 0 {
		return errors.New("radarr.quality_profile_id must be set when radarr.enabled is true")
	}
	if strings.TrimSpace(c.Radarr.RootFolder) == "" {
		return errors.New("radarr.root_folder must be set when radarr.enabled is true")
	}
	return nil
}

func (c *Config) validateSonarr() error {
	if !c.Sonarr.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Sonarr.URL) == "" {
		return errors.New("sonarr.url must be set when sonarr.enabled is true")
	}
	if c.Sonarr.APIKey == "" {
		return errors.New("sonarr.api_key must be set when sonarr.enabled is true")
	}
	if c.Sonarr.QualityProfileID <= 0 {
		return errors.New("sonarr.quality_profile_id must be set when sonarr.enabled is true")
	}
	if strings.TrimSpace(c.Sonarr.RootFolder) == "" {
		return errors.New("sonarr.root_folder must be set when sonarr.enabled is true")
	}
	return nil
}

func (c *Config) validateTMDB() error {
	// TMDB is the mandatory fallback recommender; the LLM and search adapters
	// are optional on top of it.
	if c.TMDB.APIKey == "" {
		return errors.New("tmdb.api_key is required (or set TMDB_API_KEY)")
	}
	return nil
}

func (c *Config) validateCollections() error {
	if strings.TrimSpace(c.Collections.MovieCollection) == "" {
		return errors.New("collections.movie_collection must be set")
	}
	if strings.TrimSpace(c.Collections.TVCollection) == "" {
		return errors.New("collections.tv_collection must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
