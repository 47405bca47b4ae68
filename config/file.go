package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/pevans/gridiron/enrich"
	"github.com/pevans/gridiron/fetch"
	"github.com/pevans/gridiron/record"
	"github.com/pevans/gridiron/scraper"
	"github.com/pevans/gridiron/store"
	"gopkg.in/yaml.v3"
)

// Source types
const (
	SourcePaged  = "paged"
	SourceScroll = "scroll"
	SourceFeed   = "feed"
	SourceReddit = "reddit"
)

// Enrichment types
const (
	EnrichArticle  = "article"
	EnrichComments = "comments"
)

// Validation errors
var (
	ErrNoJobs             = errors.New("config defines no jobs")
	ErrNoJobName          = errors.New("job requires a name")
	ErrDuplicateJob       = errors.New("job name is used more than once")
	ErrJobNotFound        = errors.New("job not found")
	ErrUnknownSourceType  = errors.New("source.type must be paged, scroll, feed, or reddit")
	ErrNoSourceURL        = errors.New("source requires a url")
	ErrNoListings         = errors.New("paged source requires at least one listing")
	ErrNoSubreddit        = errors.New("reddit source requires a subreddit")
	ErrInvalidBatchSize   = errors.New("batch_size must be at least 1")
	ErrInvalidMaxAttempts = errors.New("retry.max_attempts must be at least 1")
	ErrNoStoreDSN         = errors.New("store requires a dsn")
	ErrUnknownEnrichType  = errors.New("enrich.type must be article or comments")
)

// Settings can be given once under defaults and overridden per job.
type Settings struct {
	BatchSize    int           `yaml:"batch_size,omitempty"`
	RateInterval time.Duration `yaml:"rate_interval,omitempty"`
	UserAgent    string        `yaml:"user_agent,omitempty"`
	Settle       time.Duration `yaml:"settle,omitempty"` // Wait after each load-more
	Retry        RetryConfig   `yaml:"retry,omitempty"`
}

// RetryConfig controls enrichment fetch retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	Delay       time.Duration `yaml:"delay,omitempty"`
}

// Policy converts the retry settings for the enricher.
func (r RetryConfig) Policy() enrich.Policy {
	return enrich.Policy{MaxAttempts: r.MaxAttempts, Delay: r.Delay}
}

// ListingConfig is one numbered-page listing of a paged source.
type ListingConfig struct {
	URL       string `yaml:"url"`
	FirstPage int    `yaml:"first_page,omitempty"`
	LastPage  int    `yaml:"last_page,omitempty"`
	Date      string `yaml:"date,omitempty"` // Year or YYYY-MM-DD stamped on every item
}

// SourceConfig describes where a job reads from.
type SourceConfig struct {
	Type     string             `yaml:"type"`
	URL      string             `yaml:"url,omitempty"` // scroll start page or feed URL
	List     scraper.ListConfig `yaml:"list,omitempty"`
	Listings []ListingConfig    `yaml:"listings,omitempty"`

	Subreddit string `yaml:"subreddit,omitempty"`
	Mode      string `yaml:"mode,omitempty"`  // api or public
	Limit     int    `yaml:"limit,omitempty"` // Posts per page
}

// WindowConfig bounds record dates. Each bound is a year or a date.
type WindowConfig struct {
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`
}

// EnrichConfig describes per-record enrichment.
type EnrichConfig struct {
	Type     string `yaml:"type"`
	Field    string `yaml:"field,omitempty"`
	Comments int    `yaml:"comments,omitempty"` // Number of top comments

	Article scraper.ArticleConfig `yaml:",inline"`
}

// Job is one named collection job.
type Job struct {
	Name     string `yaml:"name"`
	Settings `yaml:",inline"`

	Source SourceConfig  `yaml:"source"`
	Window WindowConfig  `yaml:"window,omitempty"`
	Store  store.Config  `yaml:"store"`
	Enrich *EnrichConfig `yaml:"enrich,omitempty"`
}

// Bounds parses the job's window.
func (j Job) Bounds() (record.Window, error) {
	return record.ParseWindow(j.Window.From, j.Window.To)
}

// LogConfig configures the event log.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	Path  string `yaml:"path,omitempty"`
}

// FileConfig represents the structure of ~/.gridiron/config.yaml.
type FileConfig struct {
	Defaults Settings  `yaml:"defaults,omitempty"`
	Log      LogConfig `yaml:"log,omitempty"`
	Jobs     []Job     `yaml:"jobs"`
}

// BuiltinSettings returns the values that fill anything left empty in
// defaults.
func BuiltinSettings() Settings {
	return Settings{
		BatchSize:    100,
		RateInterval: time.Second,
		UserAgent:    fetch.DefaultUserAgent,
		Settle:       time.Second,
		Retry: RetryConfig{
			MaxAttempts: enrich.DefaultPolicy.MaxAttempts,
			Delay:       enrich.DefaultPolicy.Delay,
		},
	}
}

// ConfigFilePath returns the config file location. GRIDIRON_CONFIG wins
// over flagPath, which wins over ~/.gridiron/config.yaml.
func ConfigFilePath(flagPath string) (string, error) {
	if val := os.Getenv("GRIDIRON_CONFIG"); val != "" {
		return val, nil
	}
	if flagPath != "" {
		return flagPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".gridiron", "config.yaml"), nil
}

// LoadConfigFile loads and validates the config at path. Returns nil if the
// file doesn't exist (not an error). Returns error if the file exists but
// cannot be parsed or is invalid.
func LoadConfigFile(path string) (*FileConfig, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes a config, applies defaults and environment overrides, and
// validates the result.
func Parse(data []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills empty defaults from BuiltinSettings and empty job
// settings from defaults.
func (c *FileConfig) applyDefaults() error {
	if err := mergo.Merge(&c.Defaults, BuiltinSettings()); err != nil {
		return fmt.Errorf("failed to merge defaults: %w", err)
	}

	for i := range c.Jobs {
		if err := mergo.Merge(&c.Jobs[i].Settings, c.Defaults); err != nil {
			return fmt.Errorf("jobs[%d]: failed to merge defaults: %w", i, err)
		}
		if c.Jobs[i].Enrich != nil && c.Jobs[i].Enrich.Type == "" {
			c.Jobs[i].Enrich.Type = EnrichArticle
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

// applyEnv applies environment variables (highest priority).
func (c *FileConfig) applyEnv() {
	if val := os.Getenv("GRIDIRON_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("GRIDIRON_LOG_PATH"); val != "" {
		c.Log.Path = val
	}
}

// Validate checks every job. Errors name the offending job index.
func (c *FileConfig) Validate() error {
	if len(c.Jobs) == 0 {
		return ErrNoJobs
	}

	names := map[string]bool{}
	for i, job := range c.Jobs {
		if err := job.Validate(); err != nil {
			return fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if names[job.Name] {
			return fmt.Errorf("jobs[%d]: %w: %s", i, ErrDuplicateJob, job.Name)
		}
		names[job.Name] = true
	}

	return nil
}

// Validate checks a single job.
func (j Job) Validate() error {
	if j.Name == "" {
		return ErrNoJobName
	}
	if j.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if j.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if _, err := j.Bounds(); err != nil {
		return err
	}

	switch j.Source.Type {
	case SourcePaged:
		if len(j.Source.Listings) == 0 {
			return ErrNoListings
		}
		for _, l := range j.Source.Listings {
			if l.URL == "" {
				return ErrNoSourceURL
			}
		}
		if err := j.Source.List.Validate(); err != nil {
			return err
		}
	case SourceScroll:
		if j.Source.URL == "" {
			return ErrNoSourceURL
		}
		if err := j.Source.List.Validate(); err != nil {
			return err
		}
	case SourceFeed:
		if j.Source.URL == "" {
			return ErrNoSourceURL
		}
	case SourceReddit:
		if j.Source.Subreddit == "" {
			return ErrNoSubreddit
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSourceType, j.Source.Type)
	}

	if j.Store.DSN == "" {
		return ErrNoStoreDSN
	}
	switch j.Store.Type {
	case "", "json", "partitioned", "sqlite":
	default:
		return fmt.Errorf("%w: %q", store.ErrUnknownStoreType, j.Store.Type)
	}

	if j.Enrich != nil {
		switch j.Enrich.Type {
		case EnrichArticle:
			if err := j.Enrich.Article.Validate(); err != nil {
				return err
			}
		case EnrichComments:
			if j.Source.Type != SourceReddit {
				return fmt.Errorf("comments enrichment requires a reddit source")
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnknownEnrichType, j.Enrich.Type)
		}
	}

	return nil
}

// Job returns the job called name.
func (c *FileConfig) Job(name string) (*Job, error) {
	for i := range c.Jobs {
		if c.Jobs[i].Name == name {
			return &c.Jobs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
}

// ListingDate parses a listing's fixed date. An empty date returns the zero
// time.
func ListingDate(l ListingConfig) (time.Time, error) {
	if l.Date == "" {
		return time.Time{}, nil
	}
	w, err := record.ParseWindow(l.Date, "")
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid listing date: %w", err)
	}
	return w.From, nil
}
