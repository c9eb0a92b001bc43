// Package llm provides an OpenRouter-compatible chat client that asks a
// language model for media recommendations.
//
// The client sends the user's library titles with a structured prompt
// requesting JSON output and parses the suggested titles back out, tolerating
// code fences and surrounding prose. Transient failures (HTTP 5xx, timeouts)
// are retried with exponential backoff via the resilience package; callers
// unable to reach the model should fall back to another recommendation
// source.
package llm
