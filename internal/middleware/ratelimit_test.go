package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/lexfrei/go-unifi-rules/internal/middleware"
	"github.com/lexfrei/go-unifi-rules/observability"
)

// waitRecorder captures rate limit waits.
type waitRecorder struct {
	observability.MetricsRecorder

	mu      sync.Mutex
	classes []string
}

func (r *waitRecorder) RecordRateLimit(class string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = append(r.classes, class)
}

func TestRequestClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		want   string
	}{
		{method: http.MethodGet, want: middleware.ClassRead},
		{method: http.MethodHead, want: middleware.ClassRead},
		{method: http.MethodPost, want: middleware.ClassWrite},
		{method: http.MethodPut, want: middleware.ClassWrite},
		{method: http.MethodDelete, want: middleware.ClassWrite},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/api/s/default/rest/firewallrule", http.NoBody)
			assert.Equal(t, tt.want, middleware.RequestClass(req))
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	newServer := func(t *testing.T) *httptest.Server {
		t.Helper()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(server.Close)
		return server
	}

	roundTrip := func(t *testing.T, transport http.RoundTripper, ctx context.Context, method, url string) (time.Duration, error) {
		t.Helper()
		req, _ := http.NewRequestWithContext(ctx, method, url, http.NoBody)
		start := time.Now()
		resp, err := transport.RoundTrip(req)
		if resp != nil {
			resp.Body.Close()
		}
		return time.Since(start), err
	}

	t.Run("writes wait while reads pass", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		metrics := &waitRecorder{MetricsRecorder: observability.NoopMetricsRecorder()}

		transport := middleware.RateLimit(middleware.RateLimitConfig{
			Reads:   rate.NewLimiter(100, 100),
			Writes:  rate.NewLimiter(2, 1),
			Metrics: metrics,
		})(http.DefaultTransport)

		url := server.URL + "/v2/api/site/default/trafficrules/1"

		elapsed, err := roundTrip(t, transport, context.Background(), http.MethodPut, url)
		require.NoError(t, err)
		assert.Less(t, elapsed, 100*time.Millisecond, "first write uses the burst")

		elapsed, err = roundTrip(t, transport, context.Background(), http.MethodGet, url)
		require.NoError(t, err)
		assert.Less(t, elapsed, 100*time.Millisecond, "reads have their own budget")

		elapsed, err = roundTrip(t, transport, context.Background(), http.MethodPut, url)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond, "second write waits for a token")

		metrics.mu.Lock()
		defer metrics.mu.Unlock()
		assert.Equal(t, []string{middleware.ClassWrite}, metrics.classes)
	})

	t.Run("nil limiters do not limit", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		transport := middleware.RateLimit(middleware.RateLimitConfig{})(http.DefaultTransport)

		for range 20 {
			elapsed, err := roundTrip(t, transport, context.Background(), http.MethodPut, server.URL)
			require.NoError(t, err)
			assert.Less(t, elapsed, 100*time.Millisecond)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)

		reads := rate.NewLimiter(0.1, 1)
		reads.Allow()

		transport := middleware.RateLimit(middleware.RateLimitConfig{Reads: reads})(http.DefaultTransport)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := roundTrip(t, transport, ctx, http.MethodGet, server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read rate limit")
	})
}
