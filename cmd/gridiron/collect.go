package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/gridiron/collector"
	"github.com/pevans/gridiron/config"
	"github.com/pevans/gridiron/journal"
	"github.com/spf13/cobra"
)

var collectAll bool

var collectCmd = &cobra.Command{
	Use:   "collect [job...]",
	Short: "Runs one or more collection jobs, resuming from their checkpoints.",
	RunE:  runCollect,
}

func init() {
	collectCmd.Flags().BoolVar(&collectAll, "all", false, "Run every configured job")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	names := args
	if collectAll {
		names = nil
		for _, job := range cfg.Jobs {
			names = append(names, job.Name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("name a job to collect or pass --all")
	}

	j, err := journal.Open(journal.Options{Level: cfg.Log.Level, Path: cfg.Log.Path})
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := cmd.Context()
	var errs []error
	for _, name := range names {
		job, err := cfg.Job(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		res, failures, err := collectJob(ctx, job, j.Logger())
		if res != nil {
			printResult(cmd.OutOrStdout(), res, failures)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		if ctx.Err() != nil {
			break
		}
	}

	return errors.Join(errs...)
}

// collectJob runs job once and returns its result and the number of failed
// enrichments.
func collectJob(ctx context.Context, job *config.Job, logger *log.Logger) (*collector.Result, int, error) {
	logger = logger.With("job", job.Name)

	parts, err := buildJob(job, logger)
	if err != nil {
		return nil, 0, err
	}
	defer parts.store.Close()

	window, err := job.Bounds()
	if err != nil {
		return nil, 0, err
	}

	opts := collector.Options{
		Job:       job.Name,
		Window:    window,
		BatchSize: job.BatchSize,
		Logger:    logger,
	}
	if parts.enricher != nil {
		opts.Enricher = parts.enricher
	}

	res, err := collector.New(parts.walker, parts.store, opts).Run(ctx)

	failures := 0
	if parts.enricher != nil {
		failures = parts.enricher.Failures()
	}
	return res, failures, err
}

func printResult(w io.Writer, res *collector.Result, failures int) {
	fmt.Fprintf(w, "Finished run of %s. Total seen: %d\n", res.Job, res.TotalSeen)

	t := newTable(w)
	t.AppendHeader(table.Row{"Run", "Pages", "Accepted", "Saved", "Flushes", "Stop", "Duration"})
	t.AppendRow(table.Row{
		res.RunID.String(),
		res.Pages,
		res.Accepted,
		res.Saved,
		res.Flushes,
		res.StopReason,
		res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond).String(),
	})
	t.Render()

	if len(res.Skipped) > 0 {
		reasons := make([]string, 0, len(res.Skipped))
		for reason := range res.Skipped {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)

		skipped := newTable(w)
		skipped.AppendHeader(table.Row{"Skipped", "Count"})
		for _, reason := range reasons {
			skipped.AppendRow(table.Row{reason, res.Skipped[collector.Reason(reason)]})
		}
		skipped.Render()
	}

	if failures > 0 {
		fmt.Fprintf(w, "Enrichment failed for %d records (stored with empty content)\n", failures)
	}
	if !res.CheckpointFound {
		fmt.Fprintln(w, "Warning: the stored checkpoint was not found in the listing")
	}
}
