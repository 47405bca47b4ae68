// Package collector runs incremental collection jobs: it walks a listing,
// filters items by checkpoint, seen set and date window, and flushes
// accepted records to a store in batches.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pevans/gridiron/record"
	"github.com/pevans/gridiron/store"
	"github.com/pevans/gridiron/walker"
)

// Stop reasons reported in Result.
const (
	StopWindow  = "window_exhausted"
	StopEnd     = "end_of_listing"
	StopBlocked = "advance_blocked"
	StopError   = "error"
)

// Enricher adds fetched content to an accepted record. Only errors that
// should halt the run are returned.
type Enricher interface {
	Enrich(ctx context.Context, rec *record.Record) error
}

// Options configures a Collector.
type Options struct {
	Job       string
	Window    record.Window
	BatchSize int
	Enricher  Enricher // Optional
	Logger    *log.Logger
}

// Result summarizes a run.
type Result struct {
	RunID      uuid.UUID
	Job        string
	StartedAt  time.Time
	FinishedAt time.Time
	Pages      int
	Accepted   int
	Saved      int
	Flushes    int
	Skipped    map[Reason]int
	TotalSeen  int
	StopReason string

	// CheckpointFound is false when a checkpoint was loaded but never
	// matched during the walk.
	CheckpointFound bool
}

// Collector owns all state of one run.
type Collector struct {
	walker walker.Walker
	store  store.Store
	opts   Options
	logger *log.Logger
}

// New creates a collector reading from w and writing to s.
func New(w walker.Walker, s store.Store, opts Options) *Collector {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Collector{
		walker: w,
		store:  s,
		opts:   opts,
		logger: logger,
	}
}

// Run performs one collection run. Buffered records are flushed on every
// exit path. The returned Result is never nil.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:           uuid.New(),
		Job:             c.opts.Job,
		StartedAt:       time.Now(),
		Skipped:         map[Reason]int{},
		CheckpointFound: true,
	}
	logger := c.logger.With("run", res.RunID.String())

	existing, err := c.store.Load()
	if err != nil {
		res.StopReason = StopError
		res.FinishedAt = time.Now()
		return res, fmt.Errorf("failed to load records: %w", err)
	}
	seen := NewSeenSet(existing)

	token, hasCheckpoint, err := c.store.LoadCheckpoint()
	if err != nil {
		res.StopReason = StopError
		res.FinishedAt = time.Now()
		return res, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	extractor := NewExtractor(seen, c.opts.Window, token, hasCheckpoint)
	batcher := NewBatcher(c.store, c.opts.BatchSize, logger)

	logger.Info("run started",
		"job", c.opts.Job,
		"window", c.opts.Window.String(),
		"stored", len(existing),
		"checkpoint", token,
	)

	walkErr := c.walk(ctx, logger, extractor, seen, batcher, res)
	finalizeErr := batcher.Finalize()

	res.Saved = batcher.Saved()
	res.Flushes = batcher.Flushes()
	res.TotalSeen = seen.Len()
	res.FinishedAt = time.Now()
	if hasCheckpoint && extractor.State() == Seeking {
		res.CheckpointFound = false
		logger.Warn("checkpoint never matched", "checkpoint", token)
	}

	err = errors.Join(walkErr, finalizeErr)
	if err != nil {
		res.StopReason = StopError
		logger.Error("run failed", "err", err, "unsaved", batcher.Pending())
	}

	logger.Info("finished run",
		"total_seen", res.TotalSeen,
		"accepted", res.Accepted,
		"saved", res.Saved,
		"stop", res.StopReason,
	)

	c.recordRun(logger, res, err)
	return res, err
}

func (c *Collector) walk(
	ctx context.Context,
	logger *log.Logger,
	extractor *Extractor,
	seen *SeenSet,
	batcher *Batcher,
	res *Result,
) error {
	// Load-more listings keep earlier items visible after advancing
	walked := map[string]bool{}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		items, err := c.walker.CurrentItems(ctx)
		if err != nil {
			return fmt.Errorf("failed to read listing: %w", err)
		}
		res.Pages++
		logger.Debug("page loaded", "page", res.Pages, "items", len(items))

		for _, raw := range items {
			if raw.Key != "" {
				if walked[raw.Key] {
					continue
				}
				walked[raw.Key] = true
			}

			decision := extractor.Extract(raw)
			if !decision.Accepted() {
				res.Skipped[decision.Reason]++

				if decision.Reason == OutsideWindowPast {
					logger.Info("reached end of window", "date", raw.Timestamp.Format(record.DateLayout), "url", raw.ID)
					res.StopReason = StopWindow
					return nil
				}
				continue
			}

			rec := decision.Record
			if c.opts.Enricher != nil {
				if err := c.opts.Enricher.Enrich(ctx, &rec); err != nil {
					return err
				}
			}

			seen.Add(rec.ID)
			res.Accepted++
			logger.Info("accepted", "date", rec.Timestamp.Format(record.DateLayout), "url", rec.ID)

			if err := batcher.Accept(rec, raw.Key); err != nil {
				return err
			}
		}

		more, err := c.walker.Advance(ctx)
		if errors.Is(err, walker.ErrAdvanceBlocked) {
			logger.Info("listing ended", "reason", err)
			res.StopReason = StopBlocked
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to advance listing: %w", err)
		}
		if !more {
			res.StopReason = StopEnd
			return nil
		}
	}
}

// recordRun stores the run summary when the store keeps a run history.
func (c *Collector) recordRun(logger *log.Logger, res *Result, runErr error) {
	runLog, ok := c.store.(store.RunLog)
	if !ok {
		return
	}

	run := store.Run{
		RunID:      res.RunID,
		Job:        res.Job,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Accepted:   res.Accepted,
		Flushes:    res.Flushes,
		StopReason: res.StopReason,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := runLog.RecordRun(run); err != nil {
		logger.Warn("failed to record run", "err", err)
	}
}
