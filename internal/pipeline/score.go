package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"curator/internal/config"
	"curator/internal/points"
	"curator/internal/recommend"
	"curator/internal/resilience"
	"curator/internal/services/plex"
	"curator/internal/snapshot"
)

// librarySampleSize caps how many library titles seed the recommendation
// prompt.
const librarySampleSize = 25

// mediaServer is the slice of plex.Client the scoring pass needs.
type mediaServer interface {
	Identity(ctx context.Context) (plex.Identity, error)
	SectionKey(ctx context.Context, name string) (string, error)
	SectionItems(ctx context.Context, sectionKey string) ([]plex.Item, error)
	Search(ctx context.Context, sectionKey, title string) ([]plex.Item, error)
	FetchItem(ctx context.Context, ratingKey string) (plex.Item, bool, error)
}

// recommender produces candidate titles for the current run.
type recommender interface {
	Recommend(ctx context.Context, kind string, library, exclude []string) ([]recommend.Candidate, error)
}

// queuer hands missing titles to the domain's download automation. It is an
// optional collaborator; a nil queuer disables the feature.
type queuer interface {
	// Queue returns true when the title was newly registered for download.
	Queue(ctx context.Context, title string, year int) (bool, error)
}

// ScoreSummary reports one scoring pass.
type ScoreSummary struct {
	Domain       Domain
	Stats        points.Stats
	Resolved     int
	Unresolved   int
	Queued       int
	QueueFailed  int
	SnapshotPath string
	Status       Status
}

// ScoreRunner drives one scoring pass: recommend, resolve, boost/decay the
// ledger, and write the desired-state snapshot for a later sync.
type ScoreRunner struct {
	cfg        *config.Config
	server     mediaServer
	engine     recommender
	movieQueue queuer
	showQueue  queuer
	runner     *resilience.Runner
	policy     resilience.Policy
	log        *slog.Logger
	rng        *rand.Rand
}

// ScoreOption customizes a runner.
type ScoreOption func(*ScoreRunner)

// WithRand fixes the randomization source (useful for tests).
func WithRand(rng *rand.Rand) ScoreOption {
	return func(r *ScoreRunner) {
		if rng != nil {
			r.rng = rng
		}
	}
}

// WithQueuers wires the per-domain download automation. Either may be nil.
func WithQueuers(movie, show queuer) ScoreOption {
	return func(r *ScoreRunner) {
		r.movieQueue = movie
		r.showQueue = show
	}
}

// NewScoreRunner constructs a scoring pass runner.
func NewScoreRunner(cfg *config.Config, server *plex.Client, engine *recommend.Engine, runner *resilience.Runner, log *slog.Logger, opts ...ScoreOption) *ScoreRunner {
	r := &ScoreRunner{
		cfg:    cfg,
		server: server,
		engine: engine,
		runner: runner,
		policy: PolicyFromConfig(cfg),
		log:    log,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PolicyFromConfig builds the retry policy from configuration.
func PolicyFromConfig(cfg *config.Config) resilience.Policy {
	pol := resilience.DefaultPolicy()
	if cfg.Retry.MaxRetries > 0 {
		pol.MaxRetries = cfg.Retry.MaxRetries
	}
	if cfg.Retry.BaseDelaySeconds > 0 {
		pol.BaseDelay = time.Duration(cfg.Retry.BaseDelaySeconds * float64(time.Second))
	}
	if cfg.Retry.BackoffMultiplier > 0 {
		pol.Multiplier = cfg.Retry.BackoffMultiplier
	}
	return pol
}

// Run executes one scoring pass for the domain. Seeds are extra titles (for
// example a just-watched item) folded into the taste sample ahead of the
// library listing.
func (r *ScoreRunner) Run(ctx context.Context, domain Domain, seeds []string) (ScoreSummary, error) {
	summary := ScoreSummary{Domain: domain, SnapshotPath: domain.SnapshotPath(r.cfg)}

	// Server connectivity is load-bearing for the whole run.
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
	sectionKey := sectionOutcome.Result

	store := points.Load(domain.PointsPath(r.cfg))

	library, err := r.librarySample(ctx, sectionKey, seeds)
	if err != nil {
		summary.Status = statusForAbort(ctx, err)
		return summary, err
	}
	if len(library) == 0 {
		summary.Status = StatusFailed
		return summary, errors.New("library is empty, nothing to recommend from")
	}

	exclude := make([]string, 0, store.Len())
	for _, key := range store.Keys() {
		if entry, ok := store.Get(key); ok {
			exclude = append(exclude, entry.Title)
		}
	}

	candidates, err := r.engine.Recommend(ctx, string(domain.Kind()), library, exclude)
	if err != nil {
		summary.Status = statusForAbort(ctx, err)
		return summary, fmt.Errorf("recommendation sources unavailable: %w", err)
	}

	suggestions := r.resolveCandidates(ctx, domain, sectionKey, store, candidates, &summary)

	summary.Stats = store.ApplyScoringPass(suggestions, r.cfg.Scoring.MaxPoints)

	ordered := store.TieredOrder(r.rng, r.cfg.Scoring.MaxPoints)
	snap := snapshot.Build(store, ordered)
	if err := snapshot.Save(summary.SnapshotPath, snap); err != nil {
		summary.Status = StatusFailed
		return summary, err
	}
	if err := store.Save(); err != nil {
		summary.Status = StatusFailed
		return summary, err
	}

	summary.Status = StatusSuccess
	if summary.Unresolved > 0 || summary.QueueFailed > 0 {
		summary.Status = StatusPartial
	}
	r.log.Info("scoring pass complete",
		"domain", domain,
		"suggested", summary.Stats.SuggestedNow,
		"added", summary.Stats.Added,
		"removed", summary.Stats.Removed,
		"unresolved", summary.Unresolved,
		"queued", summary.Queued,
		"total", summary.Stats.Total)
	return summary, nil
}

// resolveCandidates maps recommended titles to stable score keys. Titles
// found on the server get their rating key (movies) or external id (shows);
// anything else keeps a normalized-title fallback key and is optionally
// queued for download.
func (r *ScoreRunner) resolveCandidates(ctx context.Context, domain Domain, sectionKey string, store *points.Store, candidates []recommend.Candidate, summary *ScoreSummary) []points.Suggestion {
	suggestions := make([]points.Suggestion, 0, len(candidates))
	for _, candidate := range candidates {
		item, found := r.findOnServer(ctx, domain, sectionKey, candidate)
		if !found {
			summary.Unresolved++
			suggestions = append(suggestions, points.Suggestion{Title: candidate.Title, Year: candidate.Year})
			r.queueMissing(ctx, domain, candidate, summary)
			continue
		}
		summary.Resolved++

		suggestion := points.Suggestion{
			Title:     item.Title,
			Year:      item.Year,
			RatingKey: item.RatingKey,
			Key:       item.RatingKey,
		}
		if domain == DomainShow {
			if tvdbID, ok := tvdbIDFromGUIDs(item.GUIDs); ok {
				suggestion.Key = points.ExternalKey("tvdb", tvdbID)
				suggestion.ExternalID = tvdbID
			}
		}

		// A previous run may have tracked this item under its fallback title
		// key; fold that history into the stable key.
		store.Migrate(points.TitleKey(candidate.Title), suggestion.Key)

		suggestions = append(suggestions, suggestion)
	}
	return suggestions
}

func (r *ScoreRunner) findOnServer(ctx context.Context, domain Domain, sectionKey string, candidate recommend.Candidate) (plex.Item, bool) {
	searchPolicy := r.policy
	searchPolicy.OnFinalFailure = resilience.ReturnDefault
	outcome, _ := resilience.Execute(ctx, r.runner, "search library", searchPolicy,
		func(ctx context.Context) ([]plex.Item, error) {
			return r.server.Search(ctx, sectionKey, candidate.Title)
		})
	if !outcome.Succeeded {
		return plex.Item{}, false
	}

	want := points.NormalizeTitle(candidate.Title)
	for _, item := range outcome.Result {
		if item.Kind != domain.Kind() {
			continue
		}
		if points.NormalizeTitle(item.Title) != want {
			continue
		}
		if candidate.Year != 0 && item.Year != 0 && candidate.Year != item.Year {
			continue
		}
		return item, true
	}
	return plex.Item{}, false
}

// queueMissing hands an unresolved title to the domain's download automation.
// Automation is never load-bearing; failures only mark the run degraded.
func (r *ScoreRunner) queueMissing(ctx context.Context, domain Domain, candidate recommend.Candidate, summary *ScoreSummary) {
	queue := r.movieQueue
	if domain == DomainShow {
		queue = r.showQueue
	}
	if queue == nil {
		return
	}
	queued, err := queue.Queue(ctx, candidate.Title, candidate.Year)
	if err != nil {
		r.log.Warn("download queue failed", "domain", domain, "title", candidate.Title, "error", err)
		summary.QueueFailed++
		return
	}
	if queued {
		summary.Queued++
	}
}

func (r *ScoreRunner) librarySample(ctx context.Context, sectionKey string, seeds []string) ([]string, error) {
	outcome, err := resilience.Execute(ctx, r.runner, "list library", r.policy,
		func(ctx context.Context) ([]plex.Item, error) {
			return r.server.SectionItems(ctx, sectionKey)
		})
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}

	seen := make(map[string]struct{}, librarySampleSize)
	sample := make([]string, 0, librarySampleSize)
	add := func(title string) {
		title = strings.TrimSpace(title)
		if title == "" || len(sample) >= librarySampleSize {
			return
		}
		key := points.NormalizeTitle(title)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		sample = append(sample, title)
	}

	for _, seed := range seeds {
		add(seed)
	}
	items := outcome.Result
	// Sample across the whole section rather than its alphabetical head.
	for len(sample) < librarySampleSize && len(items) > 0 {
		idx := r.rng.Intn(len(items))
		add(items[idx].Title)
		items = append(items[:idx], items[idx+1:]...)
	}
	return sample, nil
}

// statusForAbort classifies an aborted run: interrupts beat everything, then
// unreachable dependencies.
func statusForAbort(ctx context.Context, err error) Status {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return StatusInterrupted
	}
	return StatusDependencyFailed
}

// tvdbIDFromGUIDs extracts the TVDB id from Plex guid strings such as
// "tvdb://371980".
func tvdbIDFromGUIDs(guids []string) (int64, bool) {
	for _, guid := range guids {
		raw, ok := strings.CutPrefix(guid, "tvdb://")
		if !ok {
			continue
		}
		if idx := strings.IndexAny(raw, "?/"); idx >= 0 {
			raw = raw[:idx]
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		return id, true
	}
	return 0, false
}
