package plex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{URL: server.URL, Token: "test-token"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, server
}

func TestNewRequiresURLAndToken(t *testing.T) {
	if _, err := New(Config{Token: "tok"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := New(Config{URL: "http://plex.local:32400"}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestIdentitySendsToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/identity" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Plex-Token"); got != "test-token" {
			t.Errorf("token header = %q", got)
		}
		w.Write([]byte(`{"MediaContainer":{"friendlyName":"den","machineIdentifier":"abc123"}}`))
	}))

	identity, err := client.Identity(context.Background())
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if identity.MachineIdentifier != "abc123" || identity.FriendlyName != "den" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestSectionKeyResolvesCaseInsensitively(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"MediaContainer":{"Directory":[{"key":"1","title":"Movies"},{"key":"2","title":"TV Shows"}]}}`))
	}))

	key, err := client.SectionKey(context.Background(), "movies")
	if err != nil {
		t.Fatalf("SectionKey: %v", err)
	}
	if key != "1" {
		t.Fatalf("key = %q, want 1", key)
	}
	if _, err := client.SectionKey(context.Background(), "tv shows"); err != nil {
		t.Fatalf("SectionKey tv: %v", err)
	}
	if calls != 1 {
		t.Fatalf("sections fetched %d times, want cached after first", calls)
	}
	if _, err := client.SectionKey(context.Background(), "music"); err == nil {
		t.Fatal("expected error for unknown section")
	}
}

func TestSearchDecodesItems(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/library/sections/1/all" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("title"); got != "Heat" {
			t.Errorf("title query = %q", got)
		}
		w.Write([]byte(`{"MediaContainer":{"Metadata":[
			{"ratingKey":"42","title":"Heat","year":1995,"type":"movie","Guid":[{"id":"tmdb://949"}]}
		]}}`))
	}))

	items, err := client.Search(context.Background(), "1", "Heat")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	item := items[0]
	if item.RatingKey != "42" || item.Year != 1995 || item.Kind != KindMovie {
		t.Fatalf("unexpected item %+v", item)
	}
	if len(item.GUIDs) != 1 || item.GUIDs[0] != "tmdb://949" {
		t.Fatalf("unexpected guids %v", item.GUIDs)
	}
}

func TestFetchItemMissingIsNotAnError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, found, err := client.FetchItem(context.Background(), "999")
	if err != nil {
		t.Fatalf("FetchItem: %v", err)
	}
	if found {
		t.Fatal("expected found=false for missing item")
	}
}

func TestServerErrorSurfacesStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := client.Search(context.Background(), "1", "anything")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestKindFromType(t *testing.T) {
	cases := map[string]ItemKind{
		"movie":   KindMovie,
		"Show":    KindShow,
		"episode": KindOther,
		"":        KindOther,
	}
	for input, want := range cases {
		if got := KindFromType(input); got != want {
			t.Errorf("KindFromType(%q) = %q, want %q", input, got, want)
		}
	}
}
