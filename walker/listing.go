package walker

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/gridiron/scraper"
)

// ParseListing extracts one RawItem per element matching cfg.ItemSelector.
// Links are resolved against base. If fixedDate is set it is used as every
// item's timestamp. Items missing a link or a parseable date are still
// returned so the caller can count them as malformed.
func ParseListing(doc *goquery.Document, base *url.URL, cfg scraper.ListConfig, fixedDate time.Time) []RawItem {
	items := []RawItem{}

	doc.Find(cfg.ItemSelector).Each(func(i int, s *goquery.Selection) {
		link := s
		if cfg.LinkSelector != "" {
			link = s.Find(cfg.LinkSelector).First()
		}

		item := RawItem{Payload: map[string]any{}}

		if href, ok := link.Attr("href"); ok {
			item.Key = strings.TrimSpace(href)
			item.ID = resolve(base, item.Key)
		}

		if !fixedDate.IsZero() {
			item.Timestamp = fixedDate
		} else if cfg.DateSelector != "" {
			item.Timestamp = parseDate(s.Find(cfg.DateSelector).First(), cfg)
		}

		// Title: configured selector first, then the link text
		title := ""
		if cfg.TitleSelector != "" {
			title = normalize(s.Find(cfg.TitleSelector).First().Text())
		}
		if title == "" {
			title = normalize(link.Text())
		}
		if title != "" {
			item.Payload["title"] = title
		}

		items = append(items, item)
	})

	return items
}

// FindLoadMore returns the resolved target of the load-more control, or ""
// if the control is missing or has no target.
func FindLoadMore(doc *goquery.Document, base *url.URL, selector string) string {
	if selector == "" {
		return ""
	}

	control := doc.Find(selector).First()
	if control.Length() == 0 {
		return ""
	}

	for _, attr := range []string{"href", "data-href"} {
		if href, ok := control.Attr(attr); ok && strings.TrimSpace(href) != "" {
			return resolve(base, strings.TrimSpace(href))
		}
	}
	return ""
}

func parseDate(s *goquery.Selection, cfg scraper.ListConfig) time.Time {
	if s.Length() == 0 {
		return time.Time{}
	}

	text := s.Text()
	if cfg.DateAttr != "" {
		text = s.AttrOr(cfg.DateAttr, "")
	}

	t, err := time.Parse(cfg.Layout(), normalize(text))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// resolve makes href absolute against base and drops any fragment.
func resolve(base *url.URL, href string) string {
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	ref.Fragment = ""

	if !ref.IsAbs() {
		return ""
	}
	return ref.String()
}

// normalize collapses runs of whitespace into single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
