package walker

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pevans/gridiron/scraper"
)

// ScrollWalker walks an infinite "load more" listing. Each Advance follows
// the load-more control and appends the revealed items to the visible list,
// so CurrentItems keeps returning earlier items too.
type ScrollWalker struct {
	fetcher DocumentFetcher
	cfg     scraper.ListConfig
	start   string
	settle  time.Duration

	loaded  bool
	visited int
	next    string
	items   []RawItem
}

// NewScrollWalker creates a walker starting at startURL. settle is waited
// after each successful advance.
func NewScrollWalker(fetcher DocumentFetcher, cfg scraper.ListConfig, startURL string, settle time.Duration) (*ScrollWalker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if startURL == "" {
		return nil, fmt.Errorf("scroll walker requires a start url")
	}

	return &ScrollWalker{
		fetcher: fetcher,
		cfg:     cfg,
		start:   startURL,
		settle:  settle,
	}, nil
}

// CurrentItems returns every item revealed so far.
func (w *ScrollWalker) CurrentItems(ctx context.Context) ([]RawItem, error) {
	if !w.loaded {
		if err := w.load(ctx, w.start); err != nil {
			return nil, err
		}
	}
	return w.items, nil
}

// Advance follows the load-more control. A missing control returns
// ErrAdvanceBlocked.
func (w *ScrollWalker) Advance(ctx context.Context) (bool, error) {
	if !w.loaded {
		if err := w.load(ctx, w.start); err != nil {
			return false, err
		}
	}

	if w.cfg.MaxPages > 0 && w.visited >= w.cfg.MaxPages {
		return false, nil
	}
	if w.next == "" {
		return false, ErrAdvanceBlocked
	}

	if err := w.load(ctx, w.next); err != nil {
		return false, err
	}

	if err := sleep(ctx, w.settle); err != nil {
		return false, err
	}
	return true, nil
}

func (w *ScrollWalker) load(ctx context.Context, pageURL string) error {
	base, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("invalid listing url %s: %w", pageURL, err)
	}

	doc, err := w.fetcher.Document(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	w.loaded = true
	w.visited++
	w.items = append(w.items, ParseListing(doc, base, w.cfg, time.Time{})...)

	next := FindLoadMore(doc, base, w.cfg.LoadMoreSelector)
	if next == pageURL {
		next = ""
	}
	w.next = next

	return nil
}
