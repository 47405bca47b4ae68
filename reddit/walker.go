package reddit

import (
	"context"
	"fmt"
	"strings"

	"github.com/pevans/gridiron/walker"
)

// DefaultPageSize is the number of posts requested per listing page.
const DefaultPageSize = 100

// Walker pages through a subreddit's new listing with the after cursor.
// Posts are keyed by ID and identified by their permalink.
type Walker struct {
	lister    Lister
	subreddit string
	limit     int
	maxPages  int

	loaded  bool
	visited int
	page    Page
}

// NewWalker creates a walker over subreddit. maxPages of 0 means no limit.
func NewWalker(lister Lister, subreddit string, limit, maxPages int) (*Walker, error) {
	subreddit = strings.TrimPrefix(strings.TrimSpace(subreddit), "r/")
	if subreddit == "" {
		return nil, fmt.Errorf("reddit walker requires a subreddit")
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	return &Walker{
		lister:    lister,
		subreddit: subreddit,
		limit:     limit,
		maxPages:  maxPages,
	}, nil
}

// CurrentItems returns the posts of the current page.
func (w *Walker) CurrentItems(ctx context.Context) ([]walker.RawItem, error) {
	if !w.loaded {
		if err := w.load(ctx, ""); err != nil {
			return nil, err
		}
	}

	items := make([]walker.RawItem, 0, len(w.page.Posts))
	for _, p := range w.page.Posts {
		items = append(items, PostItem(p))
	}
	return items, nil
}

// Advance loads the page after the current one.
func (w *Walker) Advance(ctx context.Context) (bool, error) {
	if !w.loaded {
		if err := w.load(ctx, ""); err != nil {
			return false, err
		}
	}

	if w.page.After == "" {
		return false, nil
	}
	if w.maxPages > 0 && w.visited >= w.maxPages {
		return false, nil
	}

	if err := w.load(ctx, w.page.After); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Walker) load(ctx context.Context, after string) error {
	page, err := w.lister.NewPosts(ctx, w.subreddit, w.limit, after)
	if err != nil {
		return err
	}

	w.loaded = true
	w.visited++
	w.page = page
	return nil
}

// PostItem converts a post to a raw item.
func PostItem(p Post) walker.RawItem {
	return walker.RawItem{
		Key:       p.ID,
		ID:        p.Permalink,
		Timestamp: p.Created,
		Payload: map[string]any{
			"id":           p.ID,
			"title":        p.Title,
			"subreddit":    p.Subreddit,
			"author":       p.Author,
			"link":         p.URL,
			"score":        p.Score,
			"num_comments": p.CommentCount,
			"created_utc":  p.Created.Unix(),
		},
	}
}

// CommentsFetcher returns a post's top comments as one text, comments
// separated by blank lines. It is used to enrich post records.
type CommentsFetcher struct {
	Lister Lister
	Limit  int // Default: 5
}

// FetchBody fetches the top comments of the post at permalink.
func (f *CommentsFetcher) FetchBody(ctx context.Context, permalink string) (string, error) {
	postID, err := PostIDFromPermalink(permalink)
	if err != nil {
		return "", err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 5
	}

	comments, err := f.Lister.TopComments(ctx, postID, limit)
	if err != nil {
		return "", err
	}
	return strings.Join(comments, "\n\n"), nil
}
