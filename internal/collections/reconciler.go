package collections

import (
	"context"
	"fmt"
	"log/slog"

	"curator/internal/resilience"
	"curator/internal/services/plex"
)

// Member is a desired collection entry. An empty RatingKey marks an entry
// that never resolved to a server item; it is dropped from the plan and
// counted, since membership is keyed strictly by rating key.
type Member struct {
	RatingKey string
	Title     string
	Kind      plex.ItemKind
}

// Plan is the minimal set of mutations that brings the server collection in
// line with the desired membership.
type Plan struct {
	Create      bool
	Add         []string
	Remove      []string
	Kept        int
	Unresolved  int
	SkippedKind int
}

// Result reports what a reconciliation pass did (or, in dry-run, would do).
// AddFailed and RemoveFailed record batch calls that exhausted their retries;
// they degrade the run but never abort it.
type Result struct {
	Collection   plex.Collection
	Plan         Plan
	Ordering     OrderResult
	AddFailed    bool
	RemoveFailed bool
	DryRun       bool
}

// Degraded reports whether anything in the pass fell short of the plan.
func (r Result) Degraded() bool {
	return r.AddFailed || r.RemoveFailed || r.Plan.Unresolved > 0 ||
		r.Ordering.Aborted || len(r.Ordering.Failed) > 0
}

// Options tune a reconciliation pass.
type Options struct {
	DryRun     bool
	PosterPath string
	ArtPath    string
}

// server is the slice of plex.Client the reconciler needs.
type server interface {
	FindCollection(ctx context.Context, sectionKey, title string) (plex.Collection, bool, error)
	CreateCollection(ctx context.Context, sectionKey string, kind plex.ItemKind, title string, ratingKeys []string) (plex.Collection, error)
	CollectionItems(ctx context.Context, collectionKey string) ([]plex.Item, error)
	AddCollectionItems(ctx context.Context, collectionKey string, ratingKeys []string) error
	RemoveCollectionItems(ctx context.Context, collectionKey string, ratingKeys []string) error
	SetCollectionSort(ctx context.Context, collectionKey string, mode plex.SortMode) error
	MoveCollectionItem(ctx context.Context, collectionKey, ratingKey, afterKey string) error
	UploadPoster(ctx context.Context, collectionKey, path string) error
	UploadArt(ctx context.Context, collectionKey, path string) error
}

// Reconciler drives a server collection toward a desired ordered membership
// with the minimal set of adds and removals, then applies custom ordering.
// Membership reads and the create call are load-bearing and return errors;
// add, remove, ordering, and artwork degrade the result instead of failing
// it.
type Reconciler struct {
	server server
	runner *resilience.Runner
	policy resilience.Policy
	log    *slog.Logger
}

// NewReconciler constructs a reconciler around a Plex client.
func NewReconciler(client *plex.Client, runner *resilience.Runner, policy resilience.Policy, log *slog.Logger) *Reconciler {
	return &Reconciler{server: client, runner: runner, policy: policy, log: log}
}

// Reconcile brings the named collection in line with the desired members.
// Items already present are never churned; only the difference is touched.
func (r *Reconciler) Reconcile(ctx context.Context, sectionKey string, kind plex.ItemKind, title string, desired []Member, opts Options) (Result, error) {
	ordered, unresolved, skipped := filterMembers(kind, desired)
	result := Result{DryRun: opts.DryRun}
	result.Plan.Unresolved = unresolved
	result.Plan.SkippedKind = skipped

	outcome, err := resilience.Execute(ctx, r.runner, "find collection", r.policy,
		func(ctx context.Context) (findResult, error) {
			col, found, err := r.server.FindCollection(ctx, sectionKey, title)
			return findResult{col: col, found: found}, err
		})
	if err != nil {
		return result, err
	}

	if !outcome.Result.found {
		return r.reconcileMissing(ctx, sectionKey, kind, title, ordered, opts, result)
	}
	return r.reconcileExisting(ctx, outcome.Result.col, ordered, opts, result)
}

type findResult struct {
	col   plex.Collection
	found bool
}

func (r *Reconciler) reconcileMissing(ctx context.Context, sectionKey string, kind plex.ItemKind, title string, ordered []string, opts Options, result Result) (Result, error) {
	result.Plan.Create = true
	result.Plan.Add = ordered
	if len(ordered) == 0 {
		return result, fmt.Errorf("collection %q: no resolvable members to create with", title)
	}
	if opts.DryRun {
		return result, nil
	}

	outcome, err := resilience.Execute(ctx, r.runner, "create collection", r.policy,
		func(ctx context.Context) (plex.Collection, error) {
			return r.server.CreateCollection(ctx, sectionKey, kind, title, ordered)
		})
	if err != nil {
		return result, err
	}
	result.Collection = outcome.Result

	members := make(map[string]struct{}, len(ordered))
	for _, key := range ordered {
		members[key] = struct{}{}
	}
	return r.finish(ctx, result, ordered, members, opts), nil
}

func (r *Reconciler) reconcileExisting(ctx context.Context, col plex.Collection, ordered []string, opts Options, result Result) (Result, error) {
	result.Collection = col

	itemsOutcome, err := resilience.Execute(ctx, r.runner, "list collection items", r.policy,
		func(ctx context.Context) ([]plex.Item, error) {
			return r.server.CollectionItems(ctx, col.RatingKey)
		})
	if err != nil {
		return result, err
	}

	members := make(map[string]struct{}, len(itemsOutcome.Result))
	for _, item := range itemsOutcome.Result {
		members[item.RatingKey] = struct{}{}
	}
	desired := make(map[string]struct{}, len(ordered))
	for _, key := range ordered {
		desired[key] = struct{}{}
	}

	for _, key := range ordered {
		if _, present := members[key]; present {
			result.Plan.Kept++
		} else {
			result.Plan.Add = append(result.Plan.Add, key)
		}
	}
	for _, item := range itemsOutcome.Result {
		if _, wanted := desired[item.RatingKey]; !wanted {
			result.Plan.Remove = append(result.Plan.Remove, item.RatingKey)
		}
	}

	if opts.DryRun {
		return result, nil
	}

	// Removals first, then additions, each batched and each best-effort so a
	// failed removal never blocks the adds.
	if len(result.Plan.Remove) > 0 {
		removePolicy := r.policy
		removePolicy.OnFinalFailure = resilience.ReturnDefault
		outcome, _ := resilience.Execute(ctx, r.runner, "remove collection items", removePolicy,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, r.server.RemoveCollectionItems(ctx, col.RatingKey, result.Plan.Remove)
			})
		result.RemoveFailed = !outcome.Succeeded
	}
	if len(result.Plan.Add) > 0 {
		addPolicy := r.policy
		addPolicy.OnFinalFailure = resilience.ReturnDefault
		outcome, _ := resilience.Execute(ctx, r.runner, "add collection items", addPolicy,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, r.server.AddCollectionItems(ctx, col.RatingKey, result.Plan.Add)
			})
		result.AddFailed = !outcome.Succeeded
		if outcome.Succeeded {
			for _, key := range result.Plan.Add {
				members[key] = struct{}{}
			}
		}
	}

	return r.finish(ctx, result, ordered, members, opts), nil
}

// finish applies sort mode, ordering, and artwork after membership settles.
func (r *Reconciler) finish(ctx context.Context, result Result, ordered []string, members map[string]struct{}, opts Options) Result {
	result.Ordering = r.applyOrder(ctx, result.Collection.RatingKey, ordered, members)
	r.uploadArtwork(ctx, result.Collection.RatingKey, opts)
	return result
}

// uploadArtwork is best-effort: a bad poster never fails a sync.
func (r *Reconciler) uploadArtwork(ctx context.Context, collectionKey string, opts Options) {
	if opts.PosterPath != "" {
		resilience.BestEffort(ctx, r.runner, "upload poster", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.server.UploadPoster(ctx, collectionKey, opts.PosterPath)
		})
	}
	if opts.ArtPath != "" {
		resilience.BestEffort(ctx, r.runner, "upload art", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.server.UploadArt(ctx, collectionKey, opts.ArtPath)
		})
	}
}

// filterMembers keeps resolvable members of the target kind, in order.
func filterMembers(kind plex.ItemKind, desired []Member) (ordered []string, unresolved, skipped int) {
	seen := make(map[string]struct{}, len(desired))
	for _, member := range desired {
		if member.RatingKey == "" {
			unresolved++
			continue
		}
		if member.Kind != kind {
			skipped++
			continue
		}
		if _, dup := seen[member.RatingKey]; dup {
			continue
		}
		seen[member.RatingKey] = struct{}{}
		ordered = append(ordered, member.RatingKey)
	}
	return ordered, unresolved, skipped
}
