// Package tmdb implements the TMDB v3 API client used to verify recommended
// titles, resolve external ids, and supply fallback recommendations when the
// LLM is unavailable.
package tmdb
