// Package enrich adds fetched content to accepted records. Fetches are
// retried with a fixed delay; a fetch that never succeeds leaves the field
// empty instead of failing the run.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/pevans/gridiron/fetch"
	"github.com/pevans/gridiron/record"
)

// BodyFetcher fetches the content stored for a record identifier.
type BodyFetcher interface {
	FetchBody(ctx context.Context, id string) (string, error)
}

// Policy controls retries.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy makes three attempts two seconds apart.
var DefaultPolicy = Policy{MaxAttempts: 3, Delay: 2 * time.Second}

// EnrichmentFetchError records a fetch that failed after every attempt.
type EnrichmentFetchError struct {
	ID       string
	Attempts int
	Err      error
}

func (e *EnrichmentFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s after %d attempts: %v", e.ID, e.Attempts, e.Err)
}

func (e *EnrichmentFetchError) Unwrap() error {
	return e.Err
}

// Enricher stores fetched content under one payload field.
type Enricher struct {
	fetcher BodyFetcher
	field   string
	policy  Policy
	logger  *log.Logger

	failures int
}

// New creates an enricher writing to field.
func New(fetcher BodyFetcher, field string, policy Policy, logger *log.Logger) *Enricher {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if field == "" {
		field = "content"
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Enricher{
		fetcher: fetcher,
		field:   field,
		policy:  policy,
		logger:  logger,
	}
}

// Field returns the payload field the enricher writes.
func (e *Enricher) Field() string {
	return e.field
}

// Failures returns the number of records left with an empty field.
func (e *Enricher) Failures() int {
	return e.failures
}

// Enrich fetches the record's content and stores it. Fetch failures are
// logged and leave the field empty. Only a done context is returned as an
// error.
func (e *Enricher) Enrich(ctx context.Context, rec *record.Record) error {
	body, err := e.fetch(ctx, rec.ID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		e.failures++
		e.logger.Error("enrichment failed", "err", err)
		body = ""
	}

	rec.Set(e.field, body)
	return nil
}

func (e *Enricher) fetch(ctx context.Context, id string) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		body, err := e.fetcher.FetchBody(ctx, id)
		if err != nil && !retryable(err) {
			return "", backoff.Permanent(err)
		}
		return body, err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.policy.Delay), uint64(e.policy.MaxAttempts-1)),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		e.logger.Warn("retrying fetch",
			"url", id,
			"attempt", fmt.Sprintf("%d/%d", attempt, e.policy.MaxAttempts),
			"wait", wait,
			"err", err,
		)
	}

	body, err := backoff.RetryNotifyWithData(op, b, notify)
	if err != nil {
		return "", &EnrichmentFetchError{ID: id, Attempts: attempt, Err: err}
	}
	return body, nil
}

// retryable reports whether a failed fetch is worth repeating. Client
// errors other than throttling will not change on retry.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *fetch.StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		if code == http.StatusTooManyRequests || code == http.StatusRequestTimeout {
			return true
		}
		return code < 400 || code >= 500
	}

	return true
}
