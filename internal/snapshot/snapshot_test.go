package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"curator/internal/points"
)

func TestBuildPrefersRatingKeys(t *testing.T) {
	store := points.Load(filepath.Join(t.TempDir(), "points.json"))
	store.ApplyScoringPass([]points.Suggestion{
		{Title: "Heat", Year: 1995, RatingKey: "101"},
		{Title: "Unreleased Thing"},
	}, 50)

	snap := Build(store, store.OrderedKeys())
	if len(snap.RatingKeys) != 2 || len(snap.Items) != 2 {
		t.Fatalf("expected 2 entries, got %+v", snap)
	}
	keys := strings.Join(snap.RatingKeys, ",")
	if !strings.Contains(keys, "101") {
		t.Fatalf("resolved rating key missing: %v", snap.RatingKeys)
	}
	if !strings.Contains(keys, points.TitleKey("Unreleased Thing")) {
		t.Fatalf("unresolved entries must carry their score key: %v", snap.RatingKeys)
	}
	for _, item := range snap.Items {
		switch item.RatingKey {
		case "101":
			if item.Year == nil || *item.Year != 1995 {
				t.Fatalf("resolved item must carry its year, got %+v", item)
			}
		default:
			if item.Year != nil {
				t.Fatalf("unknown year must stay null, got %+v", item)
			}
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	year := 1995
	want := Snapshot{
		RatingKeys: []string{"1", "2"},
		Items: []Item{
			{RatingKey: "1", Title: "Heat", Year: &year, Points: 10},
			{RatingKey: "2", Title: "Ronin", Points: 3},
		},
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, found, err := Load(path)
	if err != nil || !found {
		t.Fatalf("Load: found=%v err=%v", found, err)
	}
	if len(got.Items) != 2 || got.Items[0].Title != "Heat" || *got.Items[0].Year != 1995 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Items[1].Year != nil {
		t.Fatalf("missing year must stay null, got %v", *got.Items[1].Year)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, found, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing snapshot must not error: %v", err)
	}
	if found {
		t.Fatal("expected found=false")
	}
}

func TestLoadCorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(path); err == nil {
		t.Fatal("corrupt snapshot must surface an error")
	}
}
