package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	c.Radarr.URL = strings.TrimRight(strings.TrimSpace(c.Radarr.URL), "/")
	c.Radarr.APIKey = strings.TrimSpace(c.Radarr.APIKey)
	c.Sonarr.URL = strings.TrimRight(strings.TrimSpace(c.Sonarr.URL), "/")
	c.Sonarr.APIKey = strings.TrimSpace(c.Sonarr.APIKey)
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.Search.APIKey = strings.TrimSpace(c.Search.APIKey)
	c.Search.SearchEngineID = strings.TrimSpace(c.Search.SearchEngineID)

	// Secrets left blank in the file fall back to environment variables so
	// the config file can be committed without them.
	c.Plex.Token = envFallback(c.Plex.Token, "PLEX_TOKEN")
	c.TMDB.APIKey = envFallback(c.TMDB.APIKey, "TMDB_API_KEY")
	c.LLM.APIKey = envFallback(c.LLM.APIKey, "OPENROUTER_API_KEY")
	c.Search.APIKey = envFallback(c.Search.APIKey, "GOOGLE_SEARCH_API_KEY")
	c.Radarr.APIKey = envFallback(c.Radarr.APIKey, "RADARR_API_KEY")
	c.Sonarr.APIKey = envFallback(c.Sonarr.APIKey, "SONARR_API_KEY")

	if c.Plex.TimeoutSeconds <= 0 {
		c.Plex.TimeoutSeconds = defaultPlexTimeout
	}
	if c.Radarr.TimeoutSeconds <= 0 {
		c.Radarr.TimeoutSeconds = defaultArrTimeout
	}
	if c.Sonarr.TimeoutSeconds <= 0 {
		c.Sonarr.TimeoutSeconds = defaultArrTimeout
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
	if c.Search.NumResults <= 0 {
		c.Search.NumResults = defaultSearchNumResults
	}
	if c.Scoring.MaxPoints <= 0 {
		c.Scoring.MaxPoints = defaultMaxPoints
	}
	if c.Scoring.SuggestionLimit <= 0 {
		c.Scoring.SuggestionLimit = defaultSuggestionLimit
	}
	if c.Retry.MaxRetries < 0 {
		c.Retry.MaxRetries = defaultMaxRetries
	}
	if c.Retry.BaseDelaySeconds <= 0 {
		c.Retry.BaseDelaySeconds = defaultBaseDelaySeconds
	}
	if c.Retry.BackoffMultiplier <= 0 {
		c.Retry.BackoffMultiplier = defaultBackoffMultiplier
	}

	return nil
}

func envFallback(value, envKey string) string {
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(envKey); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
