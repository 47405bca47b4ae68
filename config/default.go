package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigYAML is written by WriteDefaultConfigFile.
const DefaultConfigYAML = `defaults:
  batch_size: 100
  rate_interval: 1s
  settle: 1s
  retry:
    max_attempts: 3
    delay: 2s

log:
  level: info
  path: dat/gridiron.log

jobs:
  - name: nfl-news-links
    source:
      type: scroll
      url: https://www.nfl.com/news/all-news
      list:
        item_selector: div.d3-l-col__col-12
        link_selector: a
        date_selector: p.d3-o-media-object__date
        date_format: "Jan 2, 2006"
        load_more_selector: a.nfl-o-cta--load-more
    window:
      from: "2018"
      to: "2025"
    store:
      type: json
      dsn: dat/nfl_news_links.json
      checkpoint: dat/checkpoint.txt

  - name: nfl-news-articles
    source:
      type: scroll
      url: https://www.nfl.com/news/all-news
      list:
        item_selector: div.d3-l-col__col-12
        link_selector: a
        date_selector: p.d3-o-media-object__date
        load_more_selector: a.nfl-o-cta--load-more
    window:
      from: "2018"
      to: "2025"
    store:
      type: partitioned
      dsn: dat
      pattern: nfl_news_%d.json
      checkpoint: dat/article_checkpoint.txt
    enrich:
      type: article
      field: content
      content_selector: div.d3-l-col__col-8
      paragraph_selector: p

  - name: draft-prospects
    rate_interval: 3s
    source:
      type: paged
      list:
        item_selector: a.css-1mchkr3
      listings:
        - url: https://www.nfl.com/draft/tracker/prospects/all-positions/all-colleges/all-statuses/2025?page={page}
          last_page: 25
          date: "2025"
        - url: https://www.nfl.com/draft/tracker/prospects/all-positions/all-colleges/all-statuses/2024?page={page}
          last_page: 25
          date: "2024"
        - url: https://www.nfl.com/draft/tracker/prospects/all-positions/all-colleges/all-statuses/2023?page={page}
          last_page: 25
          date: "2023"
    window:
      from: "2023"
      to: "2025"
    store:
      type: sqlite
      dsn: dat/draft.db
    enrich:
      type: article
      field: bio
      content_selector: div.player-bio

  - name: reddit-nfl
    source:
      type: reddit
      subreddit: nfl
      mode: public
    window:
      from: "2023"
    store:
      type: json
      dsn: dat/reddit_nfl.json
      checkpoint: dat/reddit_checkpoint.txt
    enrich:
      type: comments
      field: top_comments
      comments: 5
`

// WriteDefaultConfigFile writes DefaultConfigYAML to path, creating its
// directory. An existing file is left alone unless force is set. Returns
// whether the file was written.
func WriteDefaultConfigFile(path string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(DefaultConfigYAML), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}

	return true, nil
}
