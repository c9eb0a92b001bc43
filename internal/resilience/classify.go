package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Class partitions failures into those worth retrying and those that are not.
type Class int

const (
	// Retryable failures may succeed on a later attempt (timeouts, connection
	// errors, 5xx responses).
	Retryable Class = iota
	// Permanent failures will not succeed on retry (4xx responses, auth and
	// not-found conditions, cancelled contexts).
	Permanent
)

// HTTPStatusError carries an HTTP status code so the classifier can
// distinguish client errors from server errors. Service clients return it for
// any non-2xx response.
type HTTPStatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
}

var permanentMarkers = []string{
	"400", "401", "403", "404",
	"bad request", "unauthorized", "forbidden", "not found", "authentication",
}

var retryableMarkers = []string{
	"timeout", "connection", "network", "unreachable", "overloaded",
}

// Classify determines whether an error is worth retrying.
//
// Checks run in order: an explicit HTTP status wins, then network error types,
// then message markers. Anything unclassified defaults to Retryable because
// transient infrastructure errors are far more common in this domain than
// exotic permanent ones.
func Classify(err error) Class {
	if err == nil {
		return Permanent
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Permanent
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode >= 400 && statusErr.StatusCode < 500:
			return Permanent
		case statusErr.StatusCode >= 500 && statusErr.StatusCode < 600:
			return Retryable
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Retryable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return Retryable
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Retryable
	}

	message := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(message, marker) {
			return Retryable
		}
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(message, marker) {
			return Permanent
		}
	}

	return Retryable
}
