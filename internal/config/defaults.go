package config

const (
	defaultDataDir           = "~/.local/share/curator/data"
	defaultLogDir            = "~/.local/share/curator/logs"
	defaultPlexTimeout       = 30
	defaultMovieLibrary      = "Movies"
	defaultTVLibrary         = "TV Shows"
	defaultArrTimeout        = 60
	defaultTMDBBaseURL       = "https://api.themoviedb.org/3"
	defaultTMDBLanguage      = "en-US"
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMTimeout        = 60
	defaultSearchNumResults  = 8
	defaultMovieCollection   = "Inspired by your Immaculate Taste"
	defaultTVCollection      = "Inspired by your Immaculate Taste (TV)"
	defaultMaxPoints         = 50
	defaultSuggestionLimit   = 15
	defaultMaxRetries        = 3
	defaultBaseDelaySeconds  = 2.0
	defaultBackoffMultiplier = 2.0
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Plex: Plex{
			TimeoutSeconds: defaultPlexTimeout,
			MovieLibrary:   defaultMovieLibrary,
			TVLibrary:      defaultTVLibrary,
		},
		Radarr: Radarr{
			TimeoutSeconds: defaultArrTimeout,
			TagName:        "curator",
		},
		Sonarr: Sonarr{
			TimeoutSeconds: defaultArrTimeout,
			TagName:        "curator",
		},
		TMDB: TMDB{
			BaseURL:  defaultTMDBBaseURL,
			Language: defaultTMDBLanguage,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Search: Search{
			NumResults: defaultSearchNumResults,
		},
		Collections: Collections{
			MovieCollection: defaultMovieCollection,
			TVCollection:    defaultTVCollection,
		},
		Scoring: Scoring{
			MaxPoints:       defaultMaxPoints,
			SuggestionLimit: defaultSuggestionLimit,
		},
		Retry: Retry{
			MaxRetries:        defaultMaxRetries,
			BaseDelaySeconds:  defaultBaseDelaySeconds,
			BackoffMultiplier: defaultBackoffMultiplier,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
