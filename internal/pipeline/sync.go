package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"curator/internal/collections"
	"curator/internal/config"
	"curator/internal/resilience"
	"curator/internal/services/plex"
	"curator/internal/snapshot"
)

// SyncSummary reports one synchronization pass.
type SyncSummary struct {
	Domain Domain
	Result collections.Result
	Status Status
}

// syncReconciler is the slice of collections.Reconciler the sync pass needs.
type syncReconciler interface {
	Reconcile(ctx context.Context, sectionKey string, kind plex.ItemKind, title string, desired []collections.Member, opts collections.Options) (collections.Result, error)
}

// SyncRunner applies the latest snapshot to the live server collection.
type SyncRunner struct {
	cfg        *config.Config
	server     mediaServer
	reconciler syncReconciler
	runner     *resilience.Runner
	policy     resilience.Policy
	log        *slog.Logger
}

// NewSyncRunner constructs a sync pass runner.
func NewSyncRunner(cfg *config.Config, server *plex.Client, rec *collections.Reconciler, runner *resilience.Runner, log *slog.Logger) *SyncRunner {
	return &SyncRunner{
		cfg:        cfg,
		server:     server,
		reconciler: rec,
		runner:     runner,
		policy:     PolicyFromConfig(cfg),
		log:        log,
	}
}

// Run loads the domain's snapshot, resolves its keys against the live
// server, and reconciles the collection. With dryRun set it reports the plan
// without mutating anything.
func (r *SyncRunner) Run(ctx context.Context, domain Domain, dryRun bool) (SyncSummary, error) {
	summary := SyncSummary{Domain: domain}

	snap, found, err := snapshot.Load(domain.SnapshotPath(r.cfg))
	if err != nil {
		summary.Status = StatusFailed
		return summary, err
	}
	if !found || len(snap.Items) == 0 {
		summary.Status = StatusFailed
		return summary, fmt.Errorf("no snapshot for domain %s, run a scoring pass first", domain)
	}

	if _, err := resilience.Execute(ctx, r.runner, "plex identity", r.policy,
		func(ctx context.Context) (plex.Identity, error) {
			return r.server.Identity(ctx)
		}); err != nil {
		summary.Status = statusForAbort(ctx, err)
		return summary, fmt.Errorf("media server unreachable: %w", err)
	}

	sectionOutcome, err := resilience.Execute(ctx, r.runner, "resolve library section", r.policy,
		func(ctx context.Context) (string, error) {
			return r.server.SectionKey(ctx, domain.Library(r.cfg))
		})
	if err != nil {
		summary.Status = statusForAbort(ctx, err)
		return summary, err
	}

	desired := r.resolveSnapshot(ctx, snap)

	opts := collections.Options{DryRun: dryRun}
	if path := domain.PosterPath(r.cfg); fileExists(path) {
		opts.PosterPath = path
	}
	if path := domain.ArtPath(r.cfg); fileExists(path) {
		opts.ArtPath = path
	}

	result, err := r.reconciler.Reconcile(ctx, sectionOutcome.Result, domain.Kind(), domain.CollectionTitle(r.cfg), desired, opts)
	summary.Result = result
	if err != nil {
		summary.Status = statusForAbort(ctx, err)
		return summary, err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		summary.Status = StatusInterrupted
		return summary, ctx.Err()
	}

	summary.Status = StatusSuccess
	if result.Degraded() {
		summary.Status = StatusPartial
	}
	r.log.Info("sync pass complete",
		"domain", domain,
		"collection", result.Collection.Title,
		"kept", result.Plan.Kept,
		"added", len(result.Plan.Add),
		"removed", len(result.Plan.Remove),
		"unresolved", result.Plan.Unresolved,
		"moves_failed", len(result.Ordering.Failed),
		"dry_run", dryRun)
	return summary, nil
}

// resolveSnapshot turns snapshot items into reconcilable members. Only
// stable rating keys are looked up; fallback score keys stay unresolved —
// the item may simply not be downloaded yet.
func (r *SyncRunner) resolveSnapshot(ctx context.Context, snap snapshot.Snapshot) []collections.Member {
	members := make([]collections.Member, 0, len(snap.Items))
	lookupPolicy := r.policy
	lookupPolicy.OnFinalFailure = resilience.ReturnDefault

	for _, item := range snap.Items {
		member := collections.Member{Title: item.Title}
		if isRatingKey(item.RatingKey) {
			key := item.RatingKey
			outcome, _ := resilience.Execute(ctx, r.runner, "fetch item", lookupPolicy,
				func(ctx context.Context) (fetchResult, error) {
					live, found, err := r.server.FetchItem(ctx, key)
					return fetchResult{item: live, found: found}, err
				})
			if outcome.Succeeded && outcome.Result.found {
				member.RatingKey = outcome.Result.item.RatingKey
				member.Kind = outcome.Result.item.Kind
			}
		}
		members = append(members, member)
	}
	return members
}

type fetchResult struct {
	item  plex.Item
	found bool
}

// isRatingKey distinguishes stable server keys from fallback score keys
// (title:…, tvdb:…) that leak into the snapshot for unresolved items.
func isRatingKey(key string) bool {
	if key == "" {
		return false
	}
	_, err := strconv.ParseInt(key, 10, 64)
	return err == nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
