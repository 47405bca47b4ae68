// Package journal sets up the console logger and the append-only event log
// that collection runs write to.
package journal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures Open.
type Options struct {
	Level   string
	Path    string    // Event log file; empty logs to the console only
	Console io.Writer // Defaults to os.Stderr
}

// Journal is a logger plus the file it appends to.
type Journal struct {
	logger *log.Logger
	file   *os.File
}

// Open creates the logger described by opts. The event log file and its
// directory are created if needed and always appended to.
func Open(opts Options) (*Journal, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	j := &Journal{}
	out := console

	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		j.file = f
		out = io.MultiWriter(console, f)
	}

	j.logger = log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})

	return j, nil
}

// Logger returns the journal's logger.
func (j *Journal) Logger() *log.Logger {
	return j.logger
}

// Close closes the event log file.
func (j *Journal) Close() error {
	if j.file == nil {
		return nil
	}
	return j.file.Close()
}

// ParseLevel parses a level name. An empty name means info.
func ParseLevel(s string) (log.Level, error) {
	if strings.TrimSpace(s) == "" {
		return log.InfoLevel, nil
	}

	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
