package sonarr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, tagName string, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{
		URL:              server.URL,
		APIKey:           "sonarr-key",
		QualityProfileID: 6,
		RootFolder:       "/tv",
		TagName:          tagName,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestLookup(t *testing.T) {
	client := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/series/lookup" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("term"); got != "Severance" {
			t.Errorf("term = %q", got)
		}
		w.Write([]byte(`[{"title":"Severance","year":2022,"tvdbId":371980,"titleSlug":"severance"}]`))
	}))

	series, err := client.Lookup(context.Background(), "Severance")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(series) != 1 || series[0].TVDBID != 371980 {
		t.Fatalf("series = %+v", series)
	}
}

func TestFindByTVDBIDFiltersLocally(t *testing.T) {
	client := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulate an older server that ignores the tvdbId query filter.
		w.Write([]byte(`[
			{"id":1,"title":"Other","tvdbId":100},
			{"id":2,"title":"Severance","tvdbId":371980}
		]`))
	}))

	series, found, err := client.FindByTVDBID(context.Background(), 371980)
	if err != nil {
		t.Fatalf("FindByTVDBID: %v", err)
	}
	if !found || series.ID != 2 {
		t.Fatalf("series = %+v found = %v", series, found)
	}

	_, found, err = client.FindByTVDBID(context.Background(), 999)
	if err != nil {
		t.Fatalf("FindByTVDBID miss: %v", err)
	}
	if found {
		t.Fatal("expected found=false for unknown tvdb id")
	}
}

func TestAddMonitorsAllAndSearches(t *testing.T) {
	var added map[string]any
	client := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/series":
			if err := json.NewDecoder(r.Body).Decode(&added); err != nil {
				t.Fatalf("decode add body: %v", err)
			}
			w.Write([]byte(`{"id":3,"title":"Severance","tvdbId":371980}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	series, err := client.Add(context.Background(), Series{Title: "Severance", Year: 2022, TVDBID: 371980, TitleSlug: "severance"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if series.ID != 3 {
		t.Fatalf("id = %d", series.ID)
	}
	if added["qualityProfileId"].(float64) != 6 || added["rootFolderPath"] != "/tv" {
		t.Errorf("profile/root = %v / %v", added["qualityProfileId"], added["rootFolderPath"])
	}
	opts := added["addOptions"].(map[string]any)
	if opts["monitor"] != "all" || opts["searchForMissingEpisodes"] != true {
		t.Errorf("addOptions = %v", opts)
	}
}

func TestSetMonitoredPreservesUnknownFields(t *testing.T) {
	var updated map[string]any
	client := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`[{"id":3,"title":"Severance","tvdbId":371980,"monitored":false,"seasons":[{"seasonNumber":1}]}]`))
		case http.MethodPut:
			if r.URL.Path != "/api/v3/series/3" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
				t.Fatalf("decode update body: %v", err)
			}
		}
	}))

	series, found, err := client.FindByTVDBID(context.Background(), 371980)
	if err != nil || !found {
		t.Fatalf("FindByTVDBID: %v found=%v", err, found)
	}
	if err := client.SetMonitored(context.Background(), series, true); err != nil {
		t.Fatalf("SetMonitored: %v", err)
	}
	if updated["monitored"] != true {
		t.Errorf("monitored = %v", updated["monitored"])
	}
	if _, ok := updated["seasons"]; !ok {
		t.Errorf("seasons field lost: %v", updated)
	}
}

func TestSearchSeries(t *testing.T) {
	var command map[string]any
	client := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/command" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&command); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		w.Write([]byte(`{"id":1}`))
	}))

	if err := client.SearchSeries(context.Background(), 3); err != nil {
		t.Fatalf("SearchSeries: %v", err)
	}
	if command["name"] != "SeriesSearch" || command["seriesId"].(float64) != 3 {
		t.Fatalf("command = %v", command)
	}
}
