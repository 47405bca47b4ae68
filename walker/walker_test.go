package walker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/gridiron/fetch"
	"github.com/pevans/gridiron/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: a listing config matching newsBlock
func newsConfig() scraper.ListConfig {
	return scraper.ListConfig{
		ItemSelector:     "div.d3-l-col__col-12",
		LinkSelector:     "a",
		DateSelector:     "p.d3-o-media-object__date",
		LoadMoreSelector: "a.load-more",
	}
}

// Test helper: one news listing entry
func newsBlock(href, date, title string) string {
	return fmt.Sprintf(`<div class="d3-l-col__col-12"><a href="%s">%s</a><p class="d3-o-media-object__date">%s</p></div>`, href, title, date)
}

func page(body string) string {
	return "<html><body>" + body + "</body></html>"
}

func keys(items []RawItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Key
	}
	return out
}

// TestParseListing verifies links, dates and titles are extracted
func TestParseListing(t *testing.T) {
	html := page(
		newsBlock("/news/a", "Sep 8, 2024", "  Chiefs   win ") +
			newsBlock("/news/b#comments", "Jan 2, 2019", "B") +
			`<div class="d3-l-col__col-12"><p class="d3-o-media-object__date">Jan 1, 2019</p></div>` +
			newsBlock("/news/c", "yesterday", "C"),
	)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	base, _ := url.Parse("https://www.nfl.com/news/all-news")

	items := ParseListing(doc, base, newsConfig(), time.Time{})
	require.Len(t, items, 4)

	assert.Equal(t, "/news/a", items[0].Key)
	assert.Equal(t, "https://www.nfl.com/news/a", items[0].ID)
	assert.Equal(t, time.Date(2024, 9, 8, 0, 0, 0, 0, time.UTC), items[0].Timestamp)
	assert.Equal(t, "Chiefs win", items[0].Payload["title"])
	assert.False(t, items[0].Malformed())

	assert.Equal(t, "https://www.nfl.com/news/b", items[1].ID)

	// No link
	assert.True(t, items[2].Malformed())
	// Unparseable date
	assert.True(t, items[3].Malformed())
}

// TestParseListing_FixedDate verifies a listing date overrides item dates
func TestParseListing_FixedDate(t *testing.T) {
	html := page(`<a class="css-1mchkr3" href="/prospects/caleb-williams">Caleb Williams</a>`)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	base, _ := url.Parse("https://www.nfl.com/draft/tracker/prospects/2024?page=1")

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := ParseListing(doc, base, scraper.ListConfig{ItemSelector: "a.css-1mchkr3"}, fixed)
	require.Len(t, items, 1)

	assert.Equal(t, "https://www.nfl.com/prospects/caleb-williams", items[0].ID)
	assert.Equal(t, fixed, items[0].Timestamp)
	assert.Equal(t, "Caleb Williams", items[0].Payload["title"])
}

// TestParseListing_DateAttr verifies dates read from an attribute
func TestParseListing_DateAttr(t *testing.T) {
	html := page(`<li><a href="/x">X</a><time datetime="2023-04-01">April 1</time></li>`)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	base, _ := url.Parse("https://example.com/")

	cfg := scraper.ListConfig{
		ItemSelector: "li",
		LinkSelector: "a",
		DateSelector: "time",
		DateAttr:     "datetime",
		DateFormat:   "2006-01-02",
	}
	items := ParseListing(doc, base, cfg, time.Time{})
	require.Len(t, items, 1)
	assert.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), items[0].Timestamp)
}

// TestFindLoadMore verifies href and data-href targets
func TestFindLoadMore(t *testing.T) {
	base, _ := url.Parse("https://www.nfl.com/news/all-news")

	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(page(`<button class="more" data-href="?offset=20">Load More</button>`)))
	assert.Equal(t, "https://www.nfl.com/news/all-news?offset=20", FindLoadMore(doc, base, "button.more"))

	doc, _ = goquery.NewDocumentFromReader(strings.NewReader(page(`<button class="more">Load More</button>`)))
	assert.Equal(t, "", FindLoadMore(doc, base, "button.more"))
	assert.Equal(t, "", FindLoadMore(doc, base, ""))
}

// Test helper: serve a draft tracker with pages per class year
func draftServer(t *testing.T, pagesPerYear map[string]int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		year := strings.TrimPrefix(r.URL.Path, "/draft/")
		n, ok := pagesPerYear[year]
		var p int
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &p)
		if !ok || p > n {
			w.Write([]byte(page("")))
			return
		}
		w.Write([]byte(page(fmt.Sprintf(`<a class="p" href="/prospects/%s-%d">Player %s %d</a>`, year, p, year, p))))
	}))
}

// TestPagedWalker_OpenEnded verifies listings run until an empty page
func TestPagedWalker_OpenEnded(t *testing.T) {
	server := draftServer(t, map[string]int{"2025": 2, "2024": 1})
	defer server.Close()

	w, err := NewPagedWalker(fetch.New(fetch.Options{}), scraper.ListConfig{ItemSelector: "a.p"},
		Listing{URLTemplate: server.URL + "/draft/2025?page={page}", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		Listing{URLTemplate: server.URL + "/draft/2024?page={page}", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	)
	require.NoError(t, err)

	ctx := context.Background()
	var seen []string
	for {
		items, err := w.CurrentItems(ctx)
		require.NoError(t, err)
		seen = append(seen, keys(items)...)

		more, err := w.Advance(ctx)
		require.NoError(t, err)
		if !more {
			break
		}
	}

	assert.Equal(t, []string{"/prospects/2025-1", "/prospects/2025-2", "/prospects/2024-1"}, seen)
}

// TestPagedWalker_LastPage verifies a fixed page range
func TestPagedWalker_LastPage(t *testing.T) {
	server := draftServer(t, map[string]int{"2023": 25})
	defer server.Close()

	w, err := NewPagedWalker(fetch.New(fetch.Options{}), scraper.ListConfig{ItemSelector: "a.p"},
		Listing{URLTemplate: server.URL + "/draft/2023?page={page}", FirstPage: 2, LastPage: 3},
	)
	require.NoError(t, err)

	ctx := context.Background()
	items, err := w.CurrentItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/prospects/2023-2"}, keys(items))

	more, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Contains(t, w.Position(), "page=3")

	more, err = w.Advance(ctx)
	require.NoError(t, err)
	assert.False(t, more)
}

// TestPagedWalker_MaxPages verifies the page cap
func TestPagedWalker_MaxPages(t *testing.T) {
	server := draftServer(t, map[string]int{"2023": 25})
	defer server.Close()

	w, err := NewPagedWalker(fetch.New(fetch.Options{}), scraper.ListConfig{ItemSelector: "a.p", MaxPages: 2},
		Listing{URLTemplate: server.URL + "/draft/2023?page={page}"},
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = w.CurrentItems(ctx)
	require.NoError(t, err)

	more, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.True(t, more)

	more, err = w.Advance(ctx)
	require.NoError(t, err)
	assert.False(t, more)
}

// TestPagedWalker_NotFoundEndsListing verifies a 404 past the end is an empty page
func TestPagedWalker_NotFoundEndsListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(page(`<a class="p" href="/one">One</a>`)))
	}))
	defer server.Close()

	w, err := NewPagedWalker(fetch.New(fetch.Options{}), scraper.ListConfig{ItemSelector: "a.p"},
		Listing{URLTemplate: server.URL + "/list?page={page}"},
	)
	require.NoError(t, err)

	ctx := context.Background()
	items, err := w.CurrentItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	more, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.False(t, more)
}

// TestPagedWalker_ServerError verifies fetch failures surface
func TestPagedWalker_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w, err := NewPagedWalker(fetch.New(fetch.Options{}), scraper.ListConfig{ItemSelector: "a"},
		Listing{URLTemplate: server.URL + "/list?page={page}"},
	)
	require.NoError(t, err)

	_, err = w.CurrentItems(context.Background())
	assert.Error(t, err)
}

// TestNewPagedWalker_Invalid verifies configuration checks
func TestNewPagedWalker_Invalid(t *testing.T) {
	f := fetch.New(fetch.Options{})

	_, err := NewPagedWalker(f, scraper.ListConfig{}, Listing{URLTemplate: "http://x/{page}"})
	assert.ErrorIs(t, err, scraper.ErrNoItemSelector)

	_, err = NewPagedWalker(f, scraper.ListConfig{ItemSelector: "a"})
	assert.Error(t, err)

	_, err = NewPagedWalker(f, scraper.ListConfig{ItemSelector: "a"}, Listing{URLTemplate: "http://x/{page}", FirstPage: 5, LastPage: 2})
	assert.Error(t, err)
}

// Test helper: serve a load-more listing with chunks of news blocks
func scrollServer(chunks [][]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(r.URL.Query().Get("chunk"), "%d", &n)
		if n >= len(chunks) {
			http.NotFound(w, r)
			return
		}

		body := strings.Join(chunks[n], "")
		if n+1 < len(chunks) {
			body += fmt.Sprintf(`<a class="load-more" href="/news?chunk=%d">Load More</a>`, n+1)
		}
		w.Write([]byte(page(body)))
	}))
}

// TestScrollWalker verifies items accumulate until the control disappears
func TestScrollWalker(t *testing.T) {
	server := scrollServer([][]string{
		{newsBlock("/news/a", "Sep 8, 2024", "A"), newsBlock("/news/b", "Sep 7, 2024", "B")},
		{newsBlock("/news/c", "Sep 6, 2024", "C")},
	})
	defer server.Close()

	w, err := NewScrollWalker(fetch.New(fetch.Options{}), newsConfig(), server.URL+"/news?chunk=0", 0)
	require.NoError(t, err)

	ctx := context.Background()
	items, err := w.CurrentItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/news/a", "/news/b"}, keys(items))

	more, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.True(t, more)

	items, err = w.CurrentItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/news/a", "/news/b", "/news/c"}, keys(items))

	more, err = w.Advance(ctx)
	assert.False(t, more)
	assert.True(t, errors.Is(err, ErrAdvanceBlocked))
}

// TestScrollWalker_Settle verifies the settle delay after advancing
func TestScrollWalker_Settle(t *testing.T) {
	server := scrollServer([][]string{
		{newsBlock("/news/a", "Sep 8, 2024", "A")},
		{newsBlock("/news/b", "Sep 7, 2024", "B")},
	})
	defer server.Close()

	w, err := NewScrollWalker(fetch.New(fetch.Options{}), newsConfig(), server.URL+"/news?chunk=0", 50*time.Millisecond)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = w.CurrentItems(ctx)
	require.NoError(t, err)

	start := time.Now()
	more, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.True(t, more)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>NFL News</title>
	<item>
		<title>Week 1 recap</title>
		<link>https://www.nfl.com/news/week-1</link>
		<description>All the action</description>
		<pubDate>Mon, 09 Sep 2024 12:00:00 GMT</pubDate>
	</item>
	<item>
		<title>No date</title>
		<link>https://www.nfl.com/news/undated</link>
	</item>
</channel>
</rss>`

// TestFeedWalker verifies feed entries become raw items
func TestFeedWalker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFeed))
	}))
	defer server.Close()

	w, err := NewFeedWalker(fetch.New(fetch.Options{}), server.URL)
	require.NoError(t, err)

	ctx := context.Background()
	items, err := w.CurrentItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://www.nfl.com/news/week-1", items[0].ID)
	assert.Equal(t, time.Date(2024, 9, 9, 12, 0, 0, 0, time.UTC), items[0].Timestamp)
	assert.Equal(t, "Week 1 recap", items[0].Payload["title"])
	assert.Equal(t, "All the action", items[0].Payload["summary"])
	assert.True(t, items[1].Malformed())

	more, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.False(t, more)
}
