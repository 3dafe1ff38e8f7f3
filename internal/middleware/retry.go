// Package middleware provides the round trippers the controller client is built from.
package middleware

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-unifi-rules/internal/retry"
	"github.com/lexfrei/go-unifi-rules/observability"
)

// RetryConfig configures the retry middleware.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts. Zero or less disables retries.
	MaxRetries  int
	InitialWait time.Duration
	// Methods lists the HTTP methods eligible for retry. Empty means GET and HEAD.
	Methods []string
	Logger  observability.Logger
	Metrics observability.MetricsRecorder
}

// Retry returns a middleware that repeats failed requests with exponential backoff
// (retry.Backoff). A request is repeated after a transport error or a status
// accepted by retry.Retryable, and a 429 with Retry-After waits as long as asked.
//
// Only methods in cfg.Methods are repeated, so rule writes are never replayed by
// default. A request whose body cannot be rewound is sent once.
func Retry(cfg RetryConfig) func(http.RoundTripper) http.RoundTripper {
	if cfg.Logger == nil {
		cfg.Logger = observability.NoopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetricsRecorder()
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []string{http.MethodGet, http.MethodHead}
	}

	methods := make(map[string]bool, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods[m] = true
	}

	return func(next http.RoundTripper) http.RoundTripper {
		if cfg.MaxRetries <= 0 {
			return next
		}

		return &retryTransport{
			next:        next,
			maxRetries:  cfg.MaxRetries,
			initialWait: cfg.InitialWait,
			methods:     methods,
			logger:      cfg.Logger,
			metrics:     cfg.Metrics,
		}
	}
}

type retryTransport struct {
	next        http.RoundTripper
	maxRetries  int
	initialWait time.Duration
	methods     map[string]bool
	logger      observability.Logger
	metrics     observability.MetricsRecorder
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.methods[req.Method] || !rewindable(req) {
		//nolint:wrapcheck // Middleware passes through errors from next handler in chain
		return t.next.RoundTrip(req)
	}

	ctx := req.Context()
	attemptReq := req

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			var err error
			if attemptReq, err = rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err := t.next.RoundTrip(attemptReq)

		done := err == nil && !retry.Retryable(resp.StatusCode)
		if done || attempt == t.maxRetries {
			if err != nil && attempt > 0 {
				return nil, errors.Wrapf(err, "request failed after %d retries", attempt)
			}
			//nolint:wrapcheck // Middleware passes through errors from next handler in chain
			return resp, err
		}

		wait := t.calculateWait(attempt, resp)

		t.logger.Warn("retrying controller request",
			observability.Field{Key: "attempt", Value: attempt + 1},
			observability.Field{Key: "max_retries", Value: t.maxRetries},
			observability.Field{Key: "method", Value: req.Method},
			observability.Field{Key: "route", Value: normalizePath(req.URL.Path)},
			observability.Field{Key: "wait", Value: wait},
		)
		t.metrics.RecordRetry(attempt+1, normalizePath(req.URL.Path))

		discard(resp)

		if err := sleep(ctx, wait); err != nil {
			return nil, errors.Wrap(err, "context canceled during retry wait")
		}
	}
}

// calculateWait determines how long to wait before next retry.
// A 429 with a usable Retry-After wins over the exponential backoff.
func (t *retryTransport) calculateWait(attempt int, resp *http.Response) time.Duration {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if wait := retry.RetryAfter(resp.Header, time.Now()); wait > 0 {
			return wait
		}
	}

	return retry.Backoff(t.initialWait, attempt)
}

// rewindable reports whether req can be sent again with the same body.
func rewindable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns a copy of req with a fresh body. The caller's request is left as is.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody == nil {
		return clone, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, errors.Wrap(err, "failed to rewind request body")
	}
	clone.Body = body

	return clone, nil
}

func discard(resp *http.Response) {
	if resp == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
