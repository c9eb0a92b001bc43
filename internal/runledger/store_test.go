package runledger

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAssignsID(t *testing.T) {
	store := openTestStore(t)

	run, err := store.Record(context.Background(), Run{
		Kind:      "score",
		Domain:    "movie",
		Status:    "succeeded",
		Suggested: 10,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected generated id")
	}
	if run.StartedAt.IsZero() || run.FinishedAt.IsZero() {
		t.Fatal("expected timestamps to be filled")
	}
}

func TestRecentNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, status := range []string{"succeeded", "degraded", "failed"} {
		_, err := store.Record(ctx, Run{
			Kind:       "sync",
			Domain:     "movie",
			Status:     status,
			ExitCode:   i * 10,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
		})
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Status != "failed" || runs[1].Status != "degraded" {
		t.Fatalf("order wrong: %s, %s", runs[0].Status, runs[1].Status)
	}
	if runs[0].ExitCode != 20 {
		t.Fatalf("exit code = %d", runs[0].ExitCode)
	}
}

func TestRecentEmpty(t *testing.T) {
	store := openTestStore(t)
	runs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("runs = %+v", runs)
	}
}
