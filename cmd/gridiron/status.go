package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/gridiron/record"
	"github.com/pevans/gridiron/store"
	"github.com/spf13/cobra"
)

var statusRuns int

var statusCmd = &cobra.Command{
	Use:   "status <job>",
	Short: "Shows what a job has stored, its checkpoint and recent runs.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		job, err := cfg.Job(args[0])
		if err != nil {
			return err
		}

		s, err := store.Open(job.Store)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		return printStatus(cmd.OutOrStdout(), job.Name, s, statusRuns)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 10, "Number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}

// storeSummary describes the records held by a store.
type storeSummary struct {
	Count      int
	Earliest   time.Time
	Latest     time.Time
	Checkpoint string
}

func summarize(s store.Store) (*storeSummary, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}

	sum := &storeSummary{Count: len(records)}
	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			continue
		}
		if sum.Earliest.IsZero() || rec.Timestamp.Before(sum.Earliest) {
			sum.Earliest = rec.Timestamp
		}
		if rec.Timestamp.After(sum.Latest) {
			sum.Latest = rec.Timestamp
		}
	}

	token, ok, err := s.LoadCheckpoint()
	if err != nil {
		return nil, err
	}
	if ok {
		sum.Checkpoint = token
	}

	return sum, nil
}

func printStatus(w io.Writer, name string, s store.Store, runs int) error {
	sum, err := summarize(s)
	if err != nil {
		return err
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Job", "Records", "Earliest", "Latest", "Checkpoint"})
	t.AppendRow(table.Row{
		name,
		sum.Count,
		formatDate(sum.Earliest),
		formatDate(sum.Latest),
		orDash(sum.Checkpoint),
	})
	t.Render()

	runLog, ok := s.(store.RunLog)
	if !ok || runs <= 0 {
		return nil
	}

	history, err := runLog.Runs(name, runs)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	rt := newTable(w)
	rt.AppendHeader(table.Row{"Run", "Started", "Duration", "Accepted", "Flushes", "Stop", "Error"})
	for _, run := range history {
		rt.AppendRow(table.Row{
			run.RunID.String(),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
			run.Accepted,
			run.Flushes,
			run.StopReason,
			orDash(run.Error),
		})
	}
	rt.Render()
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(record.DateLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
