// Package walker turns listing sources into successive batches of raw
// candidate items. A Walker knows nothing about windows, checkpoints or
// storage; it only reports what the source currently shows and reveals more
// on request.
package walker

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrAdvanceBlocked means the listing has no usable control for revealing
// more items. Callers treat it as the normal end of the listing.
var ErrAdvanceBlocked = errors.New("advance control unavailable")

// RawItem is one listing entry before extraction.
type RawItem struct {
	// Key is the entry's positional key as it appears in the source, such
	// as a relative link. Checkpoints store keys.
	Key string

	// ID is the canonical identifier the entry would be stored under.
	ID string

	Timestamp time.Time
	Payload   map[string]any
}

// Malformed reports whether the item lacks a field the collector needs.
func (r RawItem) Malformed() bool {
	return r.Key == "" || r.ID == "" || r.Timestamp.IsZero()
}

// Walker drives a listing source.
type Walker interface {
	// CurrentItems returns the items currently materialized, in source order
	// (newest first).
	CurrentItems(ctx context.Context) ([]RawItem, error)

	// Advance reveals the next page. It returns false at the end of the
	// listing, or ErrAdvanceBlocked when the control for revealing more is
	// missing.
	Advance(ctx context.Context) (bool, error)
}

// DocumentFetcher fetches and parses HTML pages.
type DocumentFetcher interface {
	Document(ctx context.Context, url string) (*goquery.Document, error)
}

// Getter fetches raw response bodies.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
