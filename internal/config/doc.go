// Package config loads, validates, and defaults Curator's TOML configuration.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Plex: media server connection and library names
//   - Radarr/Sonarr: optional download automation
//   - TMDB: mandatory fallback recommender
//   - LLM/Search: optional chat-completion recommender with web context
//   - Collections: curated collection names per media domain
//   - Scoring: points model parameters
//   - Retry: resilience policy defaults
//   - Logging: log format and level
package config
