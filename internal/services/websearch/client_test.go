package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "cse-key" || q.Get("cx") != "engine-1" {
			t.Errorf("credentials = %q / %q", q.Get("key"), q.Get("cx"))
		}
		if q.Get("q") != "best heist movies 2026" {
			t.Errorf("q = %q", q.Get("q"))
		}
		if q.Get("num") != "3" {
			t.Errorf("num = %q", q.Get("num"))
		}
		w.Write([]byte(`{"items":[
			{"title":"Top heist films","snippet":"Thief, Heat and more.","link":"https://example.com/1"},
			{"title":"Heist roundup","snippet":"The genre's best.","link":"https://example.com/2"}
		]}`))
	}))
	defer server.Close()

	client := New(Config{APIKey: "cse-key", SearchEngineID: "engine-1", NumResults: 3, BaseURL: server.URL})
	results, err := client.Search(context.Background(), "best heist movies 2026")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].Title != "Top heist films" {
		t.Fatalf("results = %+v", results)
	}
}

func TestSearchDisabled(t *testing.T) {
	client := New(Config{})
	if client.Enabled() {
		t.Fatal("unconfigured client reports enabled")
	}
	if _, err := client.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error from disabled client")
	}
}

func TestSearchQuotaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(Config{APIKey: "k", SearchEngineID: "e", BaseURL: server.URL})
	if _, err := client.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFormatForPrompt(t *testing.T) {
	formatted := FormatForPrompt([]Result{
		{Title: "Top heist films", Snippet: "Thief, Heat and more."},
		{Title: "", Snippet: ""},
		{Title: "Heist roundup", Snippet: "The genre's best."},
	})
	if !strings.Contains(formatted, "1. Top heist films: Thief, Heat and more.") {
		t.Errorf("formatted = %q", formatted)
	}
	if !strings.Contains(formatted, "3. Heist roundup") {
		t.Errorf("formatted = %q", formatted)
	}
	if FormatForPrompt(nil) != "" {
		t.Error("empty input should format to empty string")
	}
}
