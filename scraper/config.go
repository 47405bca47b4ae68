package scraper

import (
	"errors"
	"strings"
)

// DefaultDateFormat matches listing dates such as "Sep 8, 2024".
const DefaultDateFormat = "Jan 2, 2006"

var (
	ErrNoItemSelector    = errors.New("list config requires an item_selector")
	ErrNoContentSelector = errors.New("article config requires a content_selector")
)

// ListConfig defines how to find items on a listing page.
type ListConfig struct {
	// ItemSelector matches one element per listing entry.
	ItemSelector string `json:"item_selector" yaml:"item_selector"`

	// LinkSelector finds the entry's link inside the item. Empty means the
	// item element itself carries the href.
	LinkSelector string `json:"link_selector,omitempty" yaml:"link_selector,omitempty"`

	// DateSelector finds the entry's date inside the item. Empty means items
	// are undated and the listing must supply a fixed date.
	DateSelector string `json:"date_selector,omitempty" yaml:"date_selector,omitempty"`
	DateAttr     string `json:"date_attr,omitempty" yaml:"date_attr,omitempty"`     // Read the date from an attribute instead of text
	DateFormat   string `json:"date_format,omitempty" yaml:"date_format,omitempty"` // Go time format string

	TitleSelector string `json:"title_selector,omitempty" yaml:"title_selector,omitempty"`

	// LoadMoreSelector finds the control that reveals the next chunk of an
	// infinite listing. Its href or data-href is followed.
	LoadMoreSelector string `json:"load_more_selector,omitempty" yaml:"load_more_selector,omitempty"`

	MaxPages int `json:"max_pages,omitempty" yaml:"max_pages,omitempty"` // 0 means no limit
}

// ArticleConfig defines how to extract text from an individual page.
type ArticleConfig struct {
	ContentSelector   string `json:"content_selector" yaml:"content_selector"`
	ParagraphSelector string `json:"paragraph_selector,omitempty" yaml:"paragraph_selector,omitempty"`
}

// NewListConfig creates a new list configuration with default values.
func NewListConfig(itemSelector string) *ListConfig {
	return &ListConfig{
		ItemSelector: itemSelector,
		DateFormat:   DefaultDateFormat,
	}
}

// Layout returns the date format, falling back to DefaultDateFormat.
func (c ListConfig) Layout() string {
	if c.DateFormat == "" {
		return DefaultDateFormat
	}
	return c.DateFormat
}

// Validate checks the selectors required to parse a listing.
func (c ListConfig) Validate() error {
	if strings.TrimSpace(c.ItemSelector) == "" {
		return ErrNoItemSelector
	}
	return nil
}

// Validate checks the selectors required to extract text.
func (c ArticleConfig) Validate() error {
	if strings.TrimSpace(c.ContentSelector) == "" {
		return ErrNoContentSelector
	}
	return nil
}
