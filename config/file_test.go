package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/gridiron/fetch"
	"github.com/pevans/gridiron/scraper"
	"github.com/pevans/gridiron/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalJob = `jobs:
  - name: news
    source:
      type: feed
      url: https://example.com/rss
    store:
      dsn: /tmp/news.json
`

func clearEnv(t *testing.T) {
	t.Setenv("GRIDIRON_CONFIG", "")
	t.Setenv("GRIDIRON_LOG_LEVEL", "")
	t.Setenv("GRIDIRON_LOG_PATH", "")
}

// TestLoadConfigFile_NoFile verifies that a missing file is not an error.
func TestLoadConfigFile_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Nil(t, cfg, "Should return nil when config file doesn't exist")
}

// TestLoadConfigFile_ValidConfig verifies that a config file is parsed and
// its jobs are available by name.
func TestLoadConfigFile_ValidConfig(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `log:
  level: debug
  path: /var/log/gridiron.log
jobs:
  - name: links
    batch_size: 25
    source:
      type: scroll
      url: https://example.com/news
      list:
        item_selector: div.item
        date_selector: p.date
        load_more_selector: a.more
    window:
      from: "2018"
      to: "2025"
    store:
      type: json
      dsn: /data/links.json
      checkpoint: /data/checkpoint.txt
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	cfg, err := LoadConfigFile(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/log/gridiron.log", cfg.Log.Path)

	job, err := cfg.Job("links")
	require.NoError(t, err)
	assert.Equal(t, SourceScroll, job.Source.Type)
	assert.Equal(t, "div.item", job.Source.List.ItemSelector)
	assert.Equal(t, "a.more", job.Source.List.LoadMoreSelector)
	assert.Equal(t, 25, job.BatchSize)
	assert.Equal(t, store.Config{
		Type:       "json",
		DSN:        "/data/links.json",
		Checkpoint: "/data/checkpoint.txt",
	}, job.Store)

	window, err := job.Bounds()
	require.NoError(t, err)
	assert.Equal(t, "[2018-01-01, 2026-01-01)", window.String())
}

// TestLoadConfigFile_InvalidYAML verifies that malformed YAML returns an
// error.
func TestLoadConfigFile_InvalidYAML(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("jobs: [\n  - name: x\n    bad"), 0o600))

	cfg, err := LoadConfigFile(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// TestParse_Defaults verifies that job settings left empty inherit the
// defaults section and that the defaults section inherits built-in values.
func TestParse_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(`defaults:
  batch_size: 50
  retry:
    delay: 5s
jobs:
  - name: a
    source: {type: feed, url: "https://example.com/rss"}
    store: {dsn: a.json}
  - name: b
    batch_size: 10
    rate_interval: 3s
    retry:
      max_attempts: 7
    source: {type: feed, url: "https://example.com/rss"}
    store: {dsn: b.json}
`))
	require.NoError(t, err)

	a, err := cfg.Job("a")
	require.NoError(t, err)
	assert.Equal(t, 50, a.BatchSize)
	assert.Equal(t, time.Second, a.RateInterval)
	assert.Equal(t, fetch.DefaultUserAgent, a.UserAgent)
	assert.Equal(t, 3, a.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, a.Retry.Delay)

	b, err := cfg.Job("b")
	require.NoError(t, err)
	assert.Equal(t, 10, b.BatchSize)
	assert.Equal(t, 3*time.Second, b.RateInterval)
	assert.Equal(t, 7, b.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, b.Retry.Delay)

	assert.Equal(t, "info", cfg.Log.Level)
}

// TestParse_EnvOverridesLogLevel verifies that GRIDIRON_LOG_LEVEL wins over
// the file.
func TestParse_EnvOverridesLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRIDIRON_LOG_LEVEL", "warn")

	cfg, err := Parse([]byte("log:\n  level: debug\n" + minimalJob))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

// TestParse_EnrichDefaultsToArticle verifies that an enrich section without
// a type is treated as article enrichment.
func TestParse_EnrichDefaultsToArticle(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(`jobs:
  - name: articles
    source: {type: feed, url: "https://example.com/rss"}
    store: {dsn: a.json}
    enrich:
      field: body
      content_selector: div.article
      paragraph_selector: p
`))
	require.NoError(t, err)

	job, err := cfg.Job("articles")
	require.NoError(t, err)
	require.NotNil(t, job.Enrich)
	assert.Equal(t, EnrichArticle, job.Enrich.Type)
	assert.Equal(t, "body", job.Enrich.Field)
	assert.Equal(t, scraper.ArticleConfig{
		ContentSelector:   "div.article",
		ParagraphSelector: "p",
	}, job.Enrich.Article)
}

// TestParse_ValidationErrors verifies that invalid jobs are rejected with
// the matching sentinel error.
func TestParse_ValidationErrors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "no jobs",
			yaml: "jobs: []\n",
			want: ErrNoJobs,
		},
		{
			name: "no name",
			yaml: "jobs:\n  - source: {type: feed, url: x}\n    store: {dsn: a.json}\n",
			want: ErrNoJobName,
		},
		{
			name: "unknown source",
			yaml: "jobs:\n  - name: a\n    source: {type: ftp}\n    store: {dsn: a.json}\n",
			want: ErrUnknownSourceType,
		},
		{
			name: "scroll without url",
			yaml: "jobs:\n  - name: a\n    source: {type: scroll, list: {item_selector: li}}\n    store: {dsn: a.json}\n",
			want: ErrNoSourceURL,
		},
		{
			name: "scroll without item selector",
			yaml: "jobs:\n  - name: a\n    source: {type: scroll, url: x}\n    store: {dsn: a.json}\n",
			want: scraper.ErrNoItemSelector,
		},
		{
			name: "paged without listings",
			yaml: "jobs:\n  - name: a\n    source: {type: paged, list: {item_selector: li}}\n    store: {dsn: a.json}\n",
			want: ErrNoListings,
		},
		{
			name: "reddit without subreddit",
			yaml: "jobs:\n  - name: a\n    source: {type: reddit}\n    store: {dsn: a.json}\n",
			want: ErrNoSubreddit,
		},
		{
			name: "no store dsn",
			yaml: "jobs:\n  - name: a\n    source: {type: feed, url: x}\n",
			want: ErrNoStoreDSN,
		},
		{
			name: "unknown store",
			yaml: "jobs:\n  - name: a\n    source: {type: feed, url: x}\n    store: {type: redis, dsn: x}\n",
			want: store.ErrUnknownStoreType,
		},
		{
			name: "negative batch size",
			yaml: "jobs:\n  - name: a\n    batch_size: -1\n    source: {type: feed, url: x}\n    store: {dsn: a.json}\n",
			want: ErrInvalidBatchSize,
		},
		{
			name: "negative attempts",
			yaml: "jobs:\n  - name: a\n    retry: {max_attempts: -2}\n    source: {type: feed, url: x}\n    store: {dsn: a.json}\n",
			want: ErrInvalidMaxAttempts,
		},
		{
			name: "unknown enrich",
			yaml: "jobs:\n  - name: a\n    source: {type: feed, url: x}\n    store: {dsn: a.json}\n    enrich: {type: video}\n",
			want: ErrUnknownEnrichType,
		},
		{
			name: "article without selector",
			yaml: "jobs:\n  - name: a\n    source: {type: feed, url: x}\n    store: {dsn: a.json}\n    enrich: {field: body}\n",
			want: scraper.ErrNoContentSelector,
		},
		{
			name: "duplicate name",
			yaml: minimalJob + "  - name: news\n    source: {type: feed, url: x}\n    store: {dsn: b.json}\n",
			want: ErrDuplicateJob,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestParse_ErrorNamesJobIndex verifies that validation errors carry the
// index of the offending job.
func TestParse_ErrorNamesJobIndex(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte(minimalJob + "  - name: broken\n    source: {type: ftp}\n    store: {dsn: b.json}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs[1]")
}

// TestParse_InvalidWindow verifies that a window whose start is not before
// its end is rejected.
func TestParse_InvalidWindow(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte(`jobs:
  - name: a
    source: {type: feed, url: x}
    store: {dsn: a.json}
    window: {from: "2025", to: "2018"}
`))
	assert.Error(t, err)
}

// TestJob_NotFound verifies that looking up an unknown job returns
// ErrJobNotFound.
func TestJob_NotFound(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(minimalJob))
	require.NoError(t, err)

	_, err = cfg.Job("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

// TestListingDate verifies that listing dates accept years and days.
func TestListingDate(t *testing.T) {
	d, err := ListingDate(ListingConfig{Date: "2024"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ListingDate(ListingConfig{Date: "2024-04-25"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.April, 25, 0, 0, 0, 0, time.UTC), d)

	d, err = ListingDate(ListingConfig{})
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ListingDate(ListingConfig{Date: "spring"})
	assert.Error(t, err)
}

// TestConfigFilePath verifies the precedence of the environment, the flag
// and the home directory.
func TestConfigFilePath(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	path, err := ConfigFilePath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, ".gridiron", "config.yaml"), path)

	path, err = ConfigFilePath("/etc/gridiron.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/gridiron.yaml", path)

	t.Setenv("GRIDIRON_CONFIG", "/opt/gridiron.yaml")
	path, err = ConfigFilePath("/etc/gridiron.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/opt/gridiron.yaml", path)
}

// TestWriteDefaultConfigFile verifies that the default file is written,
// parses cleanly, and is only replaced when forced.
func TestWriteDefaultConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".gridiron", "config.yaml")

	written, err := WriteDefaultConfigFile(path, false)
	require.NoError(t, err)
	assert.True(t, written)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Len(t, cfg.Jobs, 4)

	draft, err := cfg.Job("draft-prospects")
	require.NoError(t, err)
	assert.Equal(t, SourcePaged, draft.Source.Type)
	assert.Len(t, draft.Source.Listings, 3)
	assert.Equal(t, 3*time.Second, draft.RateInterval)

	require.NoError(t, os.WriteFile(path, []byte("custom"), 0o644))

	written, err = WriteDefaultConfigFile(path, false)
	require.NoError(t, err)
	assert.False(t, written)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data))

	written, err = WriteDefaultConfigFile(path, true)
	require.NoError(t, err)
	assert.True(t, written)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigYAML, string(data))
}
