// Package resilience executes operations against rate-sensitive third-party
// APIs under a bounded exponential backoff policy.
//
// Classify splits failures into permanent (4xx, auth, not-found) and retryable
// (5xx, timeouts, connection errors, anything unknown). Execute retries only
// the retryable class and, on exhaustion, either propagates the last error or
// returns an unsuccessful Outcome depending on the policy's FailureMode.
// BestEffort wraps strictly optional side effects and never fails.
package resilience
