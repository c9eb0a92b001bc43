package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/collections"
	"curator/internal/pipeline"
	"curator/internal/resilience"
	"curator/internal/runledger"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var domainFlag string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Apply the latest snapshot to the server collection",
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
			retryRunner := resilience.NewRunner(log)
			reconciler := collections.NewReconciler(server, retryRunner,
				pipeline.PolicyFromConfig(cfg), log)
			runner := pipeline.NewSyncRunner(cfg, server, reconciler, retryRunner, log)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			started := time.Now().UTC()
			summary, runErr := runner.Run(runCtx, domain, dryRun)

			if !dryRun {
				recordRun(cfg.Paths.DataDir, log, runledger.Run{
					Kind:       "sync",
					Domain:     string(domain),
					Status:     summary.Status.String(),
					ExitCode:   summary.Status.ExitCode(),
					Added:      len(summary.Result.Plan.Add),
					Removed:    len(summary.Result.Plan.Remove),
					Unresolved: summary.Result.Plan.Unresolved,
					Error:      errorText(runErr),
					StartedAt:  started,
					FinishedAt: time.Now().UTC(),
				})
			}

			if runErr == nil {
				printSyncSummary(cmd, summary)
			}
			return statusExit(summary.Status, runErr)
		},
	}

	cmd.Flags().StringVarP(&domainFlag, "domain", "d", "movie", "Library domain to sync (movie or show)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the plan without changing the server")
	return cmd
}

func printSyncSummary(cmd *cobra.Command, summary pipeline.SyncSummary) {
	out := cmd.OutOrStdout()
	result := summary.Result
	verb := "Synced"
	if result.DryRun {
		verb = "Would sync"
	}

	fmt.Fprintf(out, "%s collection %q (%s)\n", verb, result.Collection.Title, summary.Domain)
	if result.Plan.Create {
		fmt.Fprintln(out, "Collection did not exist and was created")
	}
	fmt.Fprintf(out, "Plan: %d added, %d removed, %d kept\n",
		len(result.Plan.Add), len(result.Plan.Remove), result.Plan.Kept)
	if result.Plan.Unresolved > 0 {
		fmt.Fprintf(out, "Dropped %d unresolved entries\n", result.Plan.Unresolved)
	}
	if result.Plan.SkippedKind > 0 {
		fmt.Fprintf(out, "Skipped %d items of the wrong kind\n", result.Plan.SkippedKind)
	}
	if result.AddFailed || result.RemoveFailed {
		fmt.Fprintln(out, "Some membership changes failed and will be retried next run")
	}
	if result.Ordering.Aborted {
		fmt.Fprintln(out, "Custom ordering was skipped")
	} else if !result.DryRun {
		fmt.Fprintf(out, "Ordering: %d moves applied, %d failed\n",
			result.Ordering.Succeeded, len(result.Ordering.Failed))
	}
	if summary.Status != pipeline.StatusSuccess {
		fmt.Fprintf(out, "Run finished %s\n", summary.Status)
	}
}
