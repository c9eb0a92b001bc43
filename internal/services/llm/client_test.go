package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"curator/internal/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	log := slog.New(slog.DiscardHandler)
	client := NewClient(Config{APIKey: "key", Model: "test-model", BaseURL: server.URL}, log)
	client.runner = resilience.NewRunner(log, resilience.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	return client
}

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}, "finish_reason": "stop"},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func TestRecommendParsesTitles(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("authorization = %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		if !strings.Contains(req.Messages[1].Content, "- Heat") {
			t.Errorf("library missing from prompt: %q", req.Messages[1].Content)
		}
		w.Write([]byte(completionBody(`{"recommendations":[{"title":"Thief","year":1981},{"title":"Collateral","year":2004}]}`)))
	}))

	recs, err := client.Recommend(context.Background(), Request{
		Kind:    "movie",
		Library: []string{"Heat", "Ronin"},
		Limit:   5,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 2 || recs[0].Title != "Thief" || recs[1].Year != 2004 {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestRecommendStripsCodeFences(t *testing.T) {
	fenced := "```json\n{\"recommendations\":[{\"title\":\"Thief\",\"year\":1981}]}\n```"
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(fenced)))
	}))

	recs, err := client.Recommend(context.Background(), Request{Kind: "movie", Library: []string{"Heat"}})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 1 || recs[0].Title != "Thief" {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestRecommendRetriesServerErrors(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completionBody(`{"recommendations":[{"title":"Thief"}]}`)))
	}))

	recs, err := client.Recommend(context.Background(), Request{Kind: "movie", Library: []string{"Heat"}})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(recs) != 1 {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestRecommendEmptyResultIsAnError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(`{"recommendations":[]}`)))
	}))

	if _, err := client.Recommend(context.Background(), Request{Kind: "movie", Library: []string{"Heat"}}); err == nil {
		t.Fatal("expected error for empty recommendations")
	}
}

func TestRecommendRequiresConfiguration(t *testing.T) {
	client := NewClient(Config{}, slog.New(slog.DiscardHandler))
	if client.Enabled() {
		t.Fatal("unconfigured client reports enabled")
	}
	if _, err := client.Recommend(context.Background(), Request{Library: []string{"Heat"}}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestHealthCheck(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(`{"ok":true}`)))
	}))
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"plain object", `{"ok":true}`, false},
		{"fenced", "```json\n{\"ok\":true}\n```", false},
		{"prose wrapped", "Here you go: {\"ok\":true} enjoy!", false},
		{"empty", "", true},
		{"not json", "no structure here", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out struct {
				OK bool `json:"ok"`
			}
			err := DecodeJSON(tc.payload, &out)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if !out.OK {
				t.Fatal("decoded ok=false")
			}
		})
	}
}
