package collections

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"curator/internal/resilience"
	"curator/internal/services/plex"
)

type fakeServer struct {
	collection plex.Collection
	exists     bool
	items      []plex.Item

	created   []string
	added     []string
	removed   []string
	moves     [][2]string // {ratingKey, after}
	sortModes []plex.SortMode
	posters   []string

	findErr   error
	addErr    error
	removeErr error
	sortErr   error
	moveFails map[string]error
}

func (f *fakeServer) FindCollection(context.Context, string, string) (plex.Collection, bool, error) {
	return f.collection, f.exists, f.findErr
}

func (f *fakeServer) CreateCollection(_ context.Context, _ string, _ plex.ItemKind, title string, ratingKeys []string) (plex.Collection, error) {
	f.created = append([]string(nil), ratingKeys...)
	f.collection = plex.Collection{RatingKey: "900", Title: title}
	f.exists = true
	return f.collection, nil
}

func (f *fakeServer) CollectionItems(context.Context, string) ([]plex.Item, error) {
	return f.items, nil
}

func (f *fakeServer) AddCollectionItems(_ context.Context, _ string, ratingKeys []string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, ratingKeys...)
	return nil
}

func (f *fakeServer) RemoveCollectionItems(_ context.Context, _ string, ratingKeys []string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, ratingKeys...)
	return nil
}

func (f *fakeServer) SetCollectionSort(_ context.Context, _ string, mode plex.SortMode) error {
	if f.sortErr != nil {
		return f.sortErr
	}
	f.sortModes = append(f.sortModes, mode)
	return nil
}

func (f *fakeServer) MoveCollectionItem(_ context.Context, _ string, ratingKey, afterKey string) error {
	if err, failed := f.moveFails[ratingKey]; failed {
		return err
	}
	f.moves = append(f.moves, [2]string{ratingKey, afterKey})
	return nil
}

func (f *fakeServer) UploadPoster(_ context.Context, _ string, path string) error {
	f.posters = append(f.posters, path)
	return nil
}

func (f *fakeServer) UploadArt(context.Context, string, string) error { return nil }

func newTestReconciler(srv server) *Reconciler {
	log := slog.New(slog.DiscardHandler)
	runner := resilience.NewRunner(log, resilience.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	return &Reconciler{server: srv, runner: runner, policy: resilience.DefaultPolicy(), log: log}
}

func members(keys ...string) []Member {
	out := make([]Member, 0, len(keys))
	for _, key := range keys {
		out = append(out, Member{RatingKey: key, Kind: plex.KindMovie})
	}
	return out
}

func memberSet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

// permanentErr fails immediately under the retry classifier.
func permanentErr(status int, msg string) error {
	return &resilience.HTTPStatusError{Op: "test", StatusCode: status, Body: msg}
}

func TestReconcileCreatesMissingCollection(t *testing.T) {
	srv := &fakeServer{}
	r := newTestReconciler(srv)

	result, err := r.Reconcile(context.Background(), "1", plex.KindMovie, "Watchlist", members("1", "2", "3"), Options{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Plan.Create {
		t.Fatal("expected create plan")
	}
	if len(srv.created) != 3 {
		t.Fatalf("created with %v", srv.created)
	}
	if len(srv.sortModes) != 1 || srv.sortModes[0] != plex.SortCustom {
		t.Fatalf("sort modes = %v", srv.sortModes)
	}
	if result.Ordering.Succeeded != 3 {
		t.Fatalf("ordering = %+v", result.Ordering)
	}
	if result.Degraded() {
		t.Fatal("clean create should not be degraded")
	}
}

func TestReconcileMinimalDiff(t *testing.T) {
	srv := &fakeServer{
		exists:     true,
		collection: plex.Collection{RatingKey: "900", Title: "Watchlist"},
		items: []plex.Item{
			{RatingKey: "1", Kind: plex.KindMovie},
			{RatingKey: "stale", Kind: plex.KindMovie},
		},
	}
	r := newTestReconciler(srv)

	result, err := r.Reconcile(context.Background(), "1", plex.KindMovie, "Watchlist", members("1", "2"), Options{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Plan.Kept != 1 {
		t.Fatalf("kept = %d", result.Plan.Kept)
	}
	if len(srv.added) != 1 || srv.added[0] != "2" {
		t.Fatalf("added = %v", srv.added)
	}
	if len(srv.removed) != 1 || srv.removed[0] != "stale" {
		t.Fatalf("removed = %v", srv.removed)
	}
}

func TestReconcileDryRunPlansWithoutMutating(t *testing.T) {
	srv := &fakeServer{
		exists:     true,
		collection: plex.Collection{RatingKey: "900"},
		items:      []plex.Item{{RatingKey: "stale", Kind: plex.KindMovie}},
	}
	r := newTestReconciler(srv)

	result, err := r.Reconcile(context.Background(), "1", plex.KindMovie, "Watchlist", members("1"), Options{DryRun: true})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.DryRun {
		t.Fatal("result not marked dry-run")
	}
	if len(result.Plan.Add) != 1 || len(result.Plan.Remove) != 1 {
		t.Fatalf("plan = %+v", result.Plan)
	}
	if len(srv.added) != 0 || len(srv.removed) != 0 || len(srv.moves) != 0 || len(srv.sortModes) != 0 {
		t.Fatal("dry-run mutated the server")
	}
}

func TestReconcileDropsUnresolvedAndWrongKind(t *testing.T) {
	srv := &fakeServer{exists: true, collection: plex.Collection{RatingKey: "900"}}
	r := newTestReconciler(srv)

	desired := []Member{
		{RatingKey: "1", Kind: plex.KindMovie},
		{RatingKey: "", Title: "Unresolved", Kind: plex.KindMovie},
		{RatingKey: "77", Title: "A Show", Kind: plex.KindShow},
	}
	result, err := r.Reconcile(context.Background(), "1", plex.KindMovie, "Watchlist", desired, Options{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Plan.Unresolved != 1 {
		t.Fatalf("unresolved = %d", result.Plan.Unresolved)
	}
	if result.Plan.SkippedKind != 1 {
		t.Fatalf("skipped kind = %d", result.Plan.SkippedKind)
	}
	if len(srv.added) != 1 || srv.added[0] != "1" {
		t.Fatalf("added = %v", srv.added)
	}
	if !result.Degraded() {
		t.Fatal("unresolved entries should degrade the result")
	}
}

func TestReconcileFailedRemoveDoesNotBlockAdd(t *testing.T) {
	srv := &fakeServer{
		exists:     true,
		collection: plex.Collection{RatingKey: "900"},
		items:      []plex.Item{{RatingKey: "stale", Kind: plex.KindMovie}},
		removeErr:  permanentErr(400, "bad request"),
	}
	r := newTestReconciler(srv)

	result, err := r.Reconcile(context.Background(), "1", plex.KindMovie, "Watchlist", members("1"), Options{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.RemoveFailed {
		t.Fatal("expected remove failure to be recorded")
	}
	if len(srv.added) != 1 || srv.added[0] != "1" {
		t.Fatalf("add should still run, added = %v", srv.added)
	}
	if !result.Degraded() {
		t.Fatal("failed remove should degrade the result")
	}
}

func TestApplyOrderAnchorAdvancesOnlyOnSuccess(t *testing.T) {
	srv := &fakeServer{moveFails: map[string]error{"2": permanentErr(400, "refused")}}
	r := newTestReconciler(srv)

	result := r.applyOrder(context.Background(), "900", []string{"1", "2", "3"}, memberSet("1", "2", "3"))
	if result.Succeeded != 2 {
		t.Fatalf("succeeded = %d", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].RatingKey != "2" {
		t.Fatalf("failed = %+v", result.Failed)
	}
	// Item 1 moves to the front; item 3 anchors to 1, not to the failed 2.
	want := [][2]string{{"1", ""}, {"3", "1"}}
	if len(srv.moves) != len(want) {
		t.Fatalf("moves = %v", srv.moves)
	}
	for i, move := range want {
		if srv.moves[i] != move {
			t.Fatalf("move %d = %v, want %v", i, srv.moves[i], move)
		}
	}
}

func TestApplyOrderSkipsNonMembers(t *testing.T) {
	srv := &fakeServer{}
	r := newTestReconciler(srv)

	result := r.applyOrder(context.Background(), "900", []string{"1", "ghost", "2"}, memberSet("1", "2"))
	if result.Succeeded != 2 {
		t.Fatalf("succeeded = %d", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].RatingKey != "ghost" {
		t.Fatalf("failed = %+v", result.Failed)
	}
	if len(srv.moves) != 2 {
		t.Fatalf("moves = %v, non-member should not reach the server", srv.moves)
	}
}

func TestApplyOrderAbortsWhenSortModeFails(t *testing.T) {
	srv := &fakeServer{sortErr: permanentErr(403, "forbidden")}
	r := newTestReconciler(srv)

	result := r.applyOrder(context.Background(), "900", []string{"1", "2"}, memberSet("1", "2"))
	if !result.Aborted {
		t.Fatal("expected ordering aborted")
	}
	if len(srv.moves) != 0 {
		t.Fatalf("moves = %v, none expected after sort failure", srv.moves)
	}
}

func TestReconcileUploadsArtworkBestEffort(t *testing.T) {
	srv := &fakeServer{exists: true, collection: plex.Collection{RatingKey: "900"}}
	r := newTestReconciler(srv)

	_, err := r.Reconcile(context.Background(), "1", plex.KindMovie, "Watchlist", members("1"), Options{PosterPath: "/art/poster.png"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(srv.posters) != 1 || srv.posters[0] != "/art/poster.png" {
		t.Fatalf("posters = %v", srv.posters)
	}
}
