package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/lexfrei/go-unifi-rules/observability"
)

// Request classes used as the rate limit label.
const (
	ClassRead  = "read"
	ClassWrite = "write"
)

// RateLimitConfig configures the rate limit middleware.
// A nil limiter leaves its class unlimited.
type RateLimitConfig struct {
	Reads   *rate.Limiter
	Writes  *rate.Limiter
	Logger  observability.Logger
	Metrics observability.MetricsRecorder
}

// RequestClass reports which budget a request draws from. GET and HEAD are reads;
// everything else, logins and rule writes included, is a write.
func RequestClass(req *http.Request) string {
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		return ClassRead
	}
	return ClassWrite
}

// RateLimit returns a middleware that paces requests with one token bucket for
// reads and another for writes. Waiting honours the request context.
func RateLimit(cfg RateLimitConfig) func(http.RoundTripper) http.RoundTripper {
	if cfg.Logger == nil {
		cfg.Logger = observability.NoopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetricsRecorder()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return &rateLimitTransport{
			next: next,
			limiters: map[string]*rate.Limiter{
				ClassRead:  cfg.Reads,
				ClassWrite: cfg.Writes,
			},
			logger:  cfg.Logger,
			metrics: cfg.Metrics,
		}
	}
}

type rateLimitTransport struct {
	next     http.RoundTripper
	limiters map[string]*rate.Limiter
	logger   observability.Logger
	metrics  observability.MetricsRecorder
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	class := RequestClass(req)

	if limiter := t.limiters[class]; limiter != nil {
		if err := t.wait(req.Context(), limiter, class, req.URL.Path); err != nil {
			return nil, err
		}
	}

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(req)
}

// wait reserves a token and sleeps until it is due. The reservation is handed
// back when the context ends first.
func (t *rateLimitTransport) wait(ctx context.Context, limiter *rate.Limiter, class, path string) error {
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return errors.Newf("%s rate limit cannot admit a request", class)
	}

	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}

	t.metrics.RecordRateLimit(class, delay)
	t.logger.Debug("waiting for rate limit",
		observability.Field{Key: "class", Value: class},
		observability.Field{Key: "route", Value: normalizePath(path)},
		observability.Field{Key: "delay", Value: delay},
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return errors.Wrapf(ctx.Err(), "context canceled waiting for %s rate limit", class)
	}
}
