package resilience

import (
	"context"
	"errors"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"
)

func noSleep() RunnerOption {
	return WithSleeper(func(context.Context, time.Duration) error { return nil })
}

func TestExecuteSucceedsFirstAttempt(t *testing.T) {
	runner := NewRunner(nil, noSleep())
	calls := 0
	outcome, err := Execute(context.Background(), runner, "test", DefaultPolicy(), func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !outcome.Succeeded || outcome.Result != 42 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestExecuteRetriesTransientThenSucceeds(t *testing.T) {
	runner := NewRunner(nil, noSleep())
	calls := 0
	outcome, err := Execute(context.Background(), runner, "test", DefaultPolicy(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &HTTPStatusError{Op: "plex", StatusCode: 503}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !outcome.Succeeded || outcome.Result != "ok" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestExecuteStopsOnPermanentError(t *testing.T) {
	runner := NewRunner(nil, noSleep())
	calls := 0
	permanent := &HTTPStatusError{Op: "plex", StatusCode: 401}
	_, err := Execute(context.Background(), runner, "test", DefaultPolicy(), func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error to propagate, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("permanent error must not be retried, got %d calls", calls)
	}
}

func TestExecuteExhaustsRetriesAndRaises(t *testing.T) {
	runner := NewRunner(nil, noSleep())
	calls := 0
	pol := Policy{MaxRetries: 2, BaseDelay: time.Millisecond, Multiplier: 2}
	_, err := Execute(context.Background(), runner, "test", pol, func(context.Context) (int, error) {
		calls++
		return 0, &HTTPStatusError{Op: "plex", StatusCode: 500}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("expected max_retries+1 = 3 attempts, got %d", calls)
	}
}

func TestExecuteReturnDefaultSwallowsFailure(t *testing.T) {
	runner := NewRunner(nil, noSleep())
	pol := Policy{MaxRetries: 1, BaseDelay: time.Millisecond, Multiplier: 2, OnFinalFailure: ReturnDefault}
	outcome, err := Execute(context.Background(), runner, "test", pol, func(context.Context) (int, error) {
		return 0, &HTTPStatusError{Op: "plex", StatusCode: 502}
	})
	if err != nil {
		t.Fatalf("ReturnDefault mode must not propagate: %v", err)
	}
	if outcome.Succeeded {
		t.Fatal("expected unsuccessful outcome")
	}
}

func TestExecuteBackoffDelays(t *testing.T) {
	var delays []time.Duration
	runner := NewRunner(nil, WithSleeper(func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))
	pol := Policy{MaxRetries: 3, BaseDelay: 2 * time.Second, Multiplier: 2, OnFinalFailure: ReturnDefault}
	_, _ = Execute(context.Background(), runner, "test", pol, func(context.Context) (int, error) {
		return 0, &HTTPStatusError{Op: "plex", StatusCode: 500}
	})
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestBestEffortSwallowsEverything(t *testing.T) {
	runner := NewRunner(nil)
	got := BestEffort(context.Background(), runner, "poster", func(context.Context) (string, error) {
		return "", errors.New("upload blew up")
	})
	if got != "" {
		t.Fatalf("expected zero value, got %q", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"4xx status", &HTTPStatusError{StatusCode: 404}, Permanent},
		{"400 status", &HTTPStatusError{StatusCode: 400}, Permanent},
		{"5xx status", &HTTPStatusError{StatusCode: 500}, Retryable},
		{"connection refused", syscall.ECONNREFUSED, Retryable},
		{"url error", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("dial tcp")}, Retryable},
		{"unauthorized message", errors.New("plex responded: unauthorized"), Permanent},
		{"not found message", errors.New("collection not found"), Permanent},
		{"timeout wins over markers", errors.New("timeout waiting for 404 page"), Retryable},
		{"context canceled", context.Canceled, Permanent},
		{"unknown", errors.New("mysterious glitch"), Retryable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestExecuteRetryableOSTimeout(t *testing.T) {
	runner := NewRunner(nil, noSleep())
	calls := 0
	pol := Policy{MaxRetries: 1, BaseDelay: time.Millisecond, Multiplier: 2, OnFinalFailure: ReturnDefault}
	_, _ = Execute(context.Background(), runner, "test", pol, func(context.Context) (int, error) {
		calls++
		return 0, os.ErrDeadlineExceeded
	})
	if calls != 2 {
		t.Fatalf("timeout errors must be retried, got %d calls", calls)
	}
}
