package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/pipeline"
	"curator/internal/resilience"
	"curator/internal/runledger"
)

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var domainFlag string
	var seeds []string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Run a scoring pass and write the desired-state snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := pipeline.ParseDomain(domainFlag)
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			release, err := acquireDomainLock(cfg, domain)
			if err != nil {
				return err
			}
			defer release()

			server, err := buildPlexClient(cfg)
			if err != nil {
				return err
			}
			engine, err := buildRecommendEngine(cfg, log)
			if err != nil {
				return err
			}
			movieQueue, showQueue, err := buildQueuers(cfg, log)
			if err != nil {
				return err
			}

			opts := []pipeline.ScoreOption{}
			switch {
			case movieQueue != nil && showQueue != nil:
				opts = append(opts, pipeline.WithQueuers(movieQueue, showQueue))
			case movieQueue != nil:
				opts = append(opts, pipeline.WithQueuers(movieQueue, nil))
			case showQueue != nil:
				opts = append(opts, pipeline.WithQueuers(nil, showQueue))
			}

			runner := pipeline.NewScoreRunner(cfg, server, engine,
				resilience.NewRunner(log), log, opts...)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			started := time.Now().UTC()
			summary, runErr := runner.Run(runCtx, domain, seeds)

			recordRun(cfg.Paths.DataDir, log, runledger.Run{
				Kind:       "score",
				Domain:     string(domain),
				Status:     summary.Status.String(),
				ExitCode:   summary.Status.ExitCode(),
				Suggested:  summary.Stats.SuggestedNow,
				Added:      summary.Stats.Added,
				Removed:    summary.Stats.Removed,
				Unresolved: summary.Unresolved,
				Error:      errorText(runErr),
				StartedAt:  started,
				FinishedAt: time.Now().UTC(),
			})

			if runErr == nil {
				printScoreSummary(cmd, summary)
			}
			return statusExit(summary.Status, runErr)
		},
	}

	cmd.Flags().StringVarP(&domainFlag, "domain", "d", "movie", "Library domain to score (movie or show)")
	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "Extra title folded into the taste sample (repeatable)")
	return cmd
}

func printScoreSummary(cmd *cobra.Command, summary pipeline.ScoreSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scored %s library: %d suggested (%d new, %d at cap), %d decayed, %d evicted\n",
		summary.Domain, summary.Stats.SuggestedNow, summary.Stats.Added,
		summary.Stats.ResetToMax, summary.Stats.Decayed, summary.Stats.Removed)
	fmt.Fprintf(out, "Resolved %d of %d candidates against the server\n",
		summary.Resolved, summary.Resolved+summary.Unresolved)
	if summary.Queued > 0 || summary.QueueFailed > 0 {
		fmt.Fprintf(out, "Queued %d missing titles for download (%d failures)\n",
			summary.Queued, summary.QueueFailed)
	}
	fmt.Fprintf(out, "Snapshot written to %s\n", summary.SnapshotPath)
	if summary.Status != pipeline.StatusSuccess {
		fmt.Fprintf(out, "Run finished %s\n", summary.Status)
	}
}

// recordRun appends one row to the run ledger. Ledger problems never alter
// the command outcome.
func recordRun(dataDir string, log *slog.Logger, run runledger.Run) {
	store, err := runledger.Open(dataDir)
	if err != nil {
		log.Warn("open run ledger", "error", err)
		return
	}
	defer store.Close()
	if _, err := store.Record(context.Background(), run); err != nil {
		log.Warn("record run", "error", err)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
