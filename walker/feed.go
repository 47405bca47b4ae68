package walker

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// FeedWalker reads an RSS or Atom feed. A feed is a single page.
type FeedWalker struct {
	getter Getter
	url    string

	loaded bool
	items  []RawItem
}

// NewFeedWalker creates a walker over the feed at feedURL.
func NewFeedWalker(getter Getter, feedURL string) (*FeedWalker, error) {
	if feedURL == "" {
		return nil, fmt.Errorf("feed walker requires a url")
	}
	return &FeedWalker{getter: getter, url: feedURL}, nil
}

// CurrentItems returns the feed's entries.
func (w *FeedWalker) CurrentItems(ctx context.Context) ([]RawItem, error) {
	if w.loaded {
		return w.items, nil
	}

	body, err := w.getter.Get(ctx, w.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	// gofeed detects RSS or Atom from the content
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	w.items = FeedItems(feed)
	w.loaded = true
	return w.items, nil
}

// Advance always reports the end of the listing.
func (w *FeedWalker) Advance(ctx context.Context) (bool, error) {
	return false, nil
}

// FeedItems converts feed entries to raw items. The link is both key and
// identifier; the published date falls back to the updated date.
func FeedItems(feed *gofeed.Feed) []RawItem {
	items := make([]RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item := RawItem{
			Key:     entry.Link,
			ID:      entry.Link,
			Payload: map[string]any{},
		}

		if entry.PublishedParsed != nil {
			item.Timestamp = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			item.Timestamp = entry.UpdatedParsed.UTC()
		}

		if entry.Title != "" {
			item.Payload["title"] = entry.Title
		}
		if entry.Description != "" {
			item.Payload["summary"] = entry.Description
		}
		if entry.Author != nil && entry.Author.Name != "" {
			item.Payload["author"] = entry.Author.Name
		}

		items = append(items, item)
	}
	return items
}
