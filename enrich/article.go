package enrich

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/gridiron/scraper"
)

// DocumentFetcher fetches and parses HTML pages.
type DocumentFetcher interface {
	Document(ctx context.Context, url string) (*goquery.Document, error)
}

// ArticleFetcher extracts the text of an article page.
type ArticleFetcher struct {
	Fetcher DocumentFetcher
	Config  scraper.ArticleConfig
}

// FetchBody fetches url and returns its text.
func (f *ArticleFetcher) FetchBody(ctx context.Context, url string) (string, error) {
	doc, err := f.Fetcher.Document(ctx, url)
	if err != nil {
		return "", err
	}
	return ExtractText(doc, f.Config), nil
}

// ExtractText collects the non-empty paragraphs inside every element
// matching ContentSelector and joins them with blank lines. Without a
// ParagraphSelector each matching element is one paragraph.
func ExtractText(doc *goquery.Document, cfg scraper.ArticleConfig) string {
	var paragraphs []string

	doc.Find(cfg.ContentSelector).Each(func(i int, section *goquery.Selection) {
		if cfg.ParagraphSelector == "" {
			if text := strings.TrimSpace(section.Text()); text != "" {
				paragraphs = append(paragraphs, normalize(text))
			}
			return
		}

		section.Find(cfg.ParagraphSelector).Each(func(j int, p *goquery.Selection) {
			if text := strings.TrimSpace(p.Text()); text != "" {
				paragraphs = append(paragraphs, normalize(text))
			}
		})
	})

	return strings.Join(paragraphs, "\n\n")
}

// normalize collapses runs of whitespace into single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
