package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/gridiron/config"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Lists the configured collection jobs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Job", "Source", "Window", "Store", "Enrich"})
		for _, job := range cfg.Jobs {
			window, _ := job.Bounds()
			t.AppendRow(table.Row{
				job.Name,
				sourceLabel(job.Source),
				window.String(),
				storeLabel(job),
				enrichLabel(job.Enrich),
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func sourceLabel(src config.SourceConfig) string {
	switch src.Type {
	case config.SourceReddit:
		return "reddit r/" + src.Subreddit
	case config.SourcePaged:
		if len(src.Listings) > 0 {
			return "paged " + src.Listings[0].URL
		}
	}
	return src.Type + " " + src.URL
}

func storeLabel(job config.Job) string {
	kind := job.Store.Type
	if kind == "" {
		kind = "json"
	}
	return kind + " " + job.Store.DSN
}

func enrichLabel(e *config.EnrichConfig) string {
	if e == nil {
		return "-"
	}
	field := e.Field
	if field == "" {
		field = "content"
	}
	return e.Type + " -> " + field
}
