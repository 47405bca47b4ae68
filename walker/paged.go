package walker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pevans/gridiron/fetch"
	"github.com/pevans/gridiron/scraper"
)

// PagePlaceholder is replaced by the page number in listing URL templates.
const PagePlaceholder = "{page}"

// Listing is one numbered-page listing, such as a draft class.
type Listing struct {
	URLTemplate string
	FirstPage   int       // Default: 1
	LastPage    int       // 0 means until an empty page
	Date        time.Time // Stamped on every item when set
}

func (l Listing) first() int {
	if l.FirstPage <= 0 {
		return 1
	}
	return l.FirstPage
}

// URL returns the address of page.
func (l Listing) URL(page int) string {
	return strings.ReplaceAll(l.URLTemplate, PagePlaceholder, strconv.Itoa(page))
}

// PagedWalker walks numbered pages of one or more listings in order. Each
// page replaces the previous page's items.
type PagedWalker struct {
	fetcher  DocumentFetcher
	cfg      scraper.ListConfig
	listings []Listing

	idx     int
	page    int
	loaded  bool
	visited int
	items   []RawItem
}

// NewPagedWalker creates a walker over listings.
func NewPagedWalker(fetcher DocumentFetcher, cfg scraper.ListConfig, listings ...Listing) (*PagedWalker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, fmt.Errorf("paged walker requires at least one listing")
	}
	for _, l := range listings {
		if l.URLTemplate == "" {
			return nil, fmt.Errorf("listing has no url")
		}
		if l.LastPage > 0 && l.LastPage < l.first() {
			return nil, fmt.Errorf("listing %s: last_page %d is before first page %d", l.URLTemplate, l.LastPage, l.first())
		}
	}

	return &PagedWalker{
		fetcher:  fetcher,
		cfg:      cfg,
		listings: listings,
		page:     listings[0].first(),
	}, nil
}

// Position returns the URL of the current page.
func (w *PagedWalker) Position() string {
	return w.listings[w.idx].URL(w.page)
}

// CurrentItems returns the items of the current page, fetching it on first
// use.
func (w *PagedWalker) CurrentItems(ctx context.Context) ([]RawItem, error) {
	if !w.loaded {
		if err := w.load(ctx); err != nil {
			return nil, err
		}
	}
	return w.items, nil
}

// Advance moves to the next page, crossing into the next listing when the
// current one is exhausted.
func (w *PagedWalker) Advance(ctx context.Context) (bool, error) {
	if !w.loaded {
		if err := w.load(ctx); err != nil {
			return false, err
		}
	}

	for {
		if w.cfg.MaxPages > 0 && w.visited >= w.cfg.MaxPages {
			return false, nil
		}

		listing := w.listings[w.idx]
		exhausted := (listing.LastPage > 0 && w.page >= listing.LastPage) ||
			(listing.LastPage == 0 && len(w.items) == 0)

		if exhausted {
			if w.idx+1 >= len(w.listings) {
				return false, nil
			}
			w.idx++
			w.page = w.listings[w.idx].first()
		} else {
			w.page++
		}

		if err := w.load(ctx); err != nil {
			return false, err
		}

		// An empty page ends an open-ended listing; move on to the next one
		if len(w.items) > 0 || w.listings[w.idx].LastPage > 0 {
			return true, nil
		}
	}
}

func (w *PagedWalker) load(ctx context.Context) error {
	listing := w.listings[w.idx]
	pageURL := listing.URL(w.page)

	base, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("invalid listing url %s: %w", pageURL, err)
	}

	w.loaded = true
	w.visited++

	doc, err := w.fetcher.Document(ctx, pageURL)
	if err != nil {
		// A page past the end of an open-ended listing is an empty page
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound && listing.LastPage == 0 {
			w.items = nil
			return nil
		}
		return fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	w.items = ParseListing(doc, base, w.cfg, listing.Date)
	return nil
}
