package reddit

import (
	"context"
	"fmt"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"golang.org/x/time/rate"
)

// APILister uses the authenticated Reddit API.
type APILister struct {
	client  *reddit.Client
	limiter *rate.Limiter
}

// NewAPILister creates an authenticated lister. rateInterval defaults to
// one request per second.
func NewAPILister(creds Credentials, rateInterval time.Duration) (*APILister, error) {
	if rateInterval <= 0 {
		rateInterval = time.Second
	}

	client, err := reddit.NewClient(
		reddit.Credentials{
			ID:       creds.ClientID,
			Secret:   creds.ClientSecret,
			Username: creds.Username,
			Password: creds.Password,
		},
		reddit.WithUserAgent(creds.UserAgent),
	)
	if err != nil {
		return nil, err
	}

	return &APILister{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(rateInterval), 1),
	}, nil
}

// NewPosts returns one page of the subreddit's new listing.
func (l *APILister) NewPosts(ctx context.Context, subreddit string, limit int, after string) (Page, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Page{}, err
	}

	posts, resp, err := l.client.Subreddit.NewPosts(ctx, subreddit, &reddit.ListOptions{
		Limit: limit,
		After: after,
	})
	if err != nil {
		return Page{}, fmt.Errorf("authenticated api error: %w", err)
	}

	page := Page{}
	if resp != nil {
		page.After = resp.After
	}

	for _, p := range posts {
		post := Post{
			ID:           p.ID,
			Title:        p.Title,
			Subreddit:    p.SubredditNamePrefixed,
			Author:       p.Author,
			URL:          p.URL,
			Permalink:    absolutePermalink(p.Permalink),
			Score:        p.Score,
			CommentCount: p.NumberOfComments,
		}
		if p.Created != nil {
			post.Created = p.Created.Time.UTC()
		}
		page.Posts = append(page.Posts, post)
	}

	return page, nil
}

// TopComments returns the bodies of the first n top-level comments.
func (l *APILister) TopComments(ctx context.Context, postID string, n int) ([]string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	thread, _, err := l.client.Post.Get(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("authenticated api error: %w", err)
	}

	bodies := []string{}
	for _, c := range thread.Comments {
		if len(bodies) >= n {
			break
		}
		bodies = append(bodies, c.Body)
	}
	return bodies, nil
}
