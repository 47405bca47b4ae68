package reddit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// JSONFetcher fetches and decodes JSON documents.
type JSONFetcher interface {
	JSON(ctx context.Context, url string, out any) error
}

// PublicLister reads the unauthenticated .json endpoints.
type PublicLister struct {
	fetcher JSONFetcher
	base    string
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string    `json:"kind"`
			Data thingData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type thingData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Subreddit   string  `json:"subreddit_name_prefixed"`
	Author      string  `json:"author"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Body        string  `json:"body"`
}

// NewPublicLister creates a lister reading from base, normally BaseURL.
func NewPublicLister(fetcher JSONFetcher, base string) *PublicLister {
	return &PublicLister{
		fetcher: fetcher,
		base:    strings.TrimRight(base, "/"),
	}
}

// NewPosts returns one page of the subreddit's new listing.
func (l *PublicLister) NewPosts(ctx context.Context, subreddit string, limit int, after string) (Page, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	if after != "" {
		q.Set("after", after)
	}
	u := fmt.Sprintf("%s/r/%s/new.json?%s", l.base, url.PathEscape(subreddit), q.Encode())

	var resp listing
	if err := l.fetcher.JSON(ctx, u, &resp); err != nil {
		return Page{}, fmt.Errorf("reddit public access: %w", err)
	}

	page := Page{After: resp.Data.After}
	for _, child := range resp.Data.Children {
		d := child.Data
		page.Posts = append(page.Posts, Post{
			ID:           d.ID,
			Title:        d.Title,
			Subreddit:    d.Subreddit,
			Author:       d.Author,
			URL:          d.URL,
			Permalink:    l.permalink(d.Permalink),
			Score:        d.Score,
			CommentCount: d.NumComments,
			Created:      time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}

	return page, nil
}

// TopComments returns the bodies of the first n top-level comments.
func (l *PublicLister) TopComments(ctx context.Context, postID string, n int) ([]string, error) {
	u := fmt.Sprintf("%s/comments/%s.json?limit=%d", l.base, url.PathEscape(postID), n)

	// The response is the post listing followed by the comment listing
	var resp []listing
	if err := l.fetcher.JSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("reddit public access: %w", err)
	}
	if len(resp) < 2 {
		return nil, fmt.Errorf("reddit public access: unexpected comments response for %s", postID)
	}

	bodies := []string{}
	for _, child := range resp[1].Data.Children {
		if len(bodies) >= n {
			break
		}
		// "more" placeholders carry no body
		if child.Kind != "t1" {
			continue
		}
		bodies = append(bodies, child.Data.Body)
	}
	return bodies, nil
}

func (l *PublicLister) permalink(p string) string {
	if strings.HasPrefix(p, "/") {
		return l.base + p
	}
	return p
}
