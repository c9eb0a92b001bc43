// Package recommend chains the configured recommendation sources into a
// single candidate stream: the LLM first, grounded with web search context
// when available, with TMDB's recommendation graph as the fallback.
package recommend
