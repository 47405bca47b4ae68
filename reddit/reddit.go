// Package reddit collects subreddit posts through either the authenticated
// API or the public JSON endpoints.
package reddit

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pevans/gridiron/fetch"
)

// BaseURL is the public Reddit site.
const BaseURL = "https://www.reddit.com"

// Post is a submission as stored by the collector.
type Post struct {
	ID           string
	Title        string
	Subreddit    string
	Author       string
	URL          string // Link target; the post itself for self posts
	Permalink    string // Absolute URL of the comments page
	Score        int
	CommentCount int
	Created      time.Time
}

// Page is one chunk of a listing. After is the cursor of the next chunk and
// empty at the end.
type Page struct {
	Posts []Post
	After string
}

// Lister reads subreddit listings and comment threads.
type Lister interface {
	NewPosts(ctx context.Context, subreddit string, limit int, after string) (Page, error)
	TopComments(ctx context.Context, postID string, n int) ([]string, error)
}

// Credentials authenticate against the Reddit API.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// CredentialsFromEnv reads REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET,
// REDDIT_USERNAME, REDDIT_PASSWORD and REDDIT_USER_AGENT.
func CredentialsFromEnv() Credentials {
	return Credentials{
		ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		Username:     os.Getenv("REDDIT_USERNAME"),
		Password:     os.Getenv("REDDIT_PASSWORD"),
		UserAgent:    os.Getenv("REDDIT_USER_AGENT"),
	}
}

// NewLister selects the lister implementation for mode.
func NewLister(mode string, creds Credentials, rateInterval time.Duration) (Lister, error) {
	switch mode {
	case "api":
		if creds.ClientID == "" || creds.ClientSecret == "" {
			return nil, fmt.Errorf("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required for api mode")
		}
		return NewAPILister(creds, rateInterval)
	case "public", "":
		if creds.UserAgent == "" {
			return nil, fmt.Errorf("REDDIT_USER_AGENT is required for public mode")
		}
		client := fetch.New(fetch.Options{
			UserAgent:    creds.UserAgent,
			RateInterval: rateInterval,
		})
		return NewPublicLister(client, BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown reddit mode: %s (use 'api' or 'public')", mode)
	}
}

// PostIDFromPermalink extracts the post ID from a comments URL such as
// https://www.reddit.com/r/nfl/comments/abc123/title/.
func PostIDFromPermalink(permalink string) (string, error) {
	parts := strings.Split(strings.Trim(permalink, "/"), "/")
	for i, part := range parts {
		if part == "comments" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("no post id in %q", permalink)
}

// absolutePermalink prefixes relative permalinks with the site.
func absolutePermalink(permalink string) string {
	if strings.HasPrefix(permalink, "/") {
		return BaseURL + permalink
	}
	return permalink
}
