package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/gridiron/config"
	"github.com/pevans/gridiron/enrich"
	"github.com/pevans/gridiron/fetch"
	"github.com/pevans/gridiron/reddit"
	"github.com/pevans/gridiron/store"
	"github.com/pevans/gridiron/walker"
)

// loadConfig resolves the config path and loads it. A missing file is an
// error here since every command needs jobs.
func loadConfig() (*config.FileConfig, error) {
	path, err := config.ConfigFilePath(configFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config file at %s (run 'gridiron init')", path)
	}

	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	return cfg, nil
}

// jobParts holds everything a collection run of one job needs.
type jobParts struct {
	walker   walker.Walker
	store    store.Store
	enricher *enrich.Enricher // nil when the job has no enrichment
}

// buildJob wires the walker, store and enricher described by job. The
// caller closes the store.
func buildJob(job *config.Job, logger *log.Logger) (*jobParts, error) {
	client := fetch.New(fetch.Options{
		UserAgent:    job.UserAgent,
		RateInterval: job.RateInterval,
	})

	var lister reddit.Lister
	if job.Source.Type == config.SourceReddit {
		creds := reddit.CredentialsFromEnv()
		if creds.UserAgent == "" {
			creds.UserAgent = job.UserAgent
		}

		var err error
		lister, err = reddit.NewLister(job.Source.Mode, creds, job.RateInterval)
		if err != nil {
			return nil, err
		}
	}

	w, err := buildWalker(job, client, lister)
	if err != nil {
		return nil, fmt.Errorf("failed to build walker: %w", err)
	}

	parts := &jobParts{walker: w}

	if job.Enrich != nil {
		var fetcher enrich.BodyFetcher
		switch job.Enrich.Type {
		case config.EnrichComments:
			fetcher = &reddit.CommentsFetcher{Lister: lister, Limit: job.Enrich.Comments}
		default:
			fetcher = &enrich.ArticleFetcher{Fetcher: client, Config: job.Enrich.Article}
		}
		parts.enricher = enrich.New(fetcher, job.Enrich.Field, job.Retry.Policy(), logger)
	}

	s, err := store.Open(job.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	parts.store = s

	return parts, nil
}

func buildWalker(job *config.Job, client *fetch.Client, lister reddit.Lister) (walker.Walker, error) {
	src := job.Source

	switch src.Type {
	case config.SourcePaged:
		listings := make([]walker.Listing, 0, len(src.Listings))
		for _, l := range src.Listings {
			date, err := config.ListingDate(l)
			if err != nil {
				return nil, err
			}
			listings = append(listings, walker.Listing{
				URLTemplate: l.URL,
				FirstPage:   l.FirstPage,
				LastPage:    l.LastPage,
				Date:        date,
			})
		}
		return walker.NewPagedWalker(client, src.List, listings...)
	case config.SourceScroll:
		return walker.NewScrollWalker(client, src.List, src.URL, job.Settle)
	case config.SourceFeed:
		return walker.NewFeedWalker(client, src.URL)
	case config.SourceReddit:
		return reddit.NewWalker(lister, src.Subreddit, src.Limit, src.List.MaxPages)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownSourceType, src.Type)
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}
