package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Plex contains connection settings for the Plex media server.
type Plex struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MovieLibrary   string `toml:"movie_library"`
	TVLibrary      string `toml:"tv_library"`
}

// Radarr contains configuration for movie download automation.
type Radarr struct {
	Enabled          bool   `toml:"enabled"`
	URL              string `toml:"url"`
	APIKey           string `toml:"api_key"`
	QualityProfileID int64  `toml:"quality_profile_id"`
	RootFolder       string `toml:"root_folder"`
	TagName          string `toml:"tag_name"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
}

// Sonarr contains configuration for series download automation.
type Sonarr struct {
	Enabled          bool   `toml:"enabled"`
	URL              string `toml:"url"`
	APIKey           string `toml:"api_key"`
	QualityProfileID int64  `toml:"quality_profile_id"`
	RootFolder       string `toml:"root_folder"`
	TagName          string `toml:"tag_name"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
}

// TMDB contains configuration for The Movie Database API, used as the
// metadata-popularity fallback recommender.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// LLM contains connection settings for the chat-completion recommender.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Search contains Google Custom Search settings used to gather web context
// for LLM prompts.
type Search struct {
	APIKey         string `toml:"api_key"`
	SearchEngineID string `toml:"search_engine_id"`
	NumResults     int    `toml:"num_results"`
}

// Collections names the curated collections per media domain.
type Collections struct {
	MovieCollection string `toml:"movie_collection"`
	TVCollection    string `toml:"tv_collection"`
}

// Scoring contains the points-model parameters.
type Scoring struct {
	MaxPoints       int `toml:"max_points"`
	SuggestionLimit int `toml:"suggestion_limit"`
}

// Retry contains the resilience policy defaults applied to media server calls.
type Retry struct {
	MaxRetries        int     `toml:"max_retries"`
	BaseDelaySeconds  float64 `toml:"base_delay_seconds"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Curator.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Plex        Plex        `toml:"plex"`
	Radarr      Radarr      `toml:"radarr"`
	Sonarr      Sonarr      `toml:"sonarr"`
	TMDB        TMDB        `toml:"tmdb"`
	LLM         LLM         `toml:"llm"`
	Search      Search      `toml:"search"`
	Collections Collections `toml:"collections"`
	Scoring     Scoring     `toml:"scoring"`
	Retry       Retry       `toml:"retry"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/curator/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("curator.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories required for a run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, filepath.Join(c.Paths.DataDir, "artwork")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the sample configuration to path, refusing to overwrite.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}
