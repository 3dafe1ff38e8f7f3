package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-unifi-rules/internal/middleware"
)

func countingServer(t *testing.T, handler func(attempt int32, w http.ResponseWriter, r *http.Request)) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(attempts.Add(1), w, r)
	}))
	t.Cleanup(server.Close)

	return server, &attempts
}

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("retries rule listing on 500", func(t *testing.T) {
		t.Parallel()

		server, attempts := countingServer(t, func(attempt int32, w http.ResponseWriter, _ *http.Request) {
			if attempt < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Millisecond,
		})(http.DefaultTransport)

		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/v2/api/site/default/trafficrules", http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(3), attempts.Load())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("no retry on 404", func(t *testing.T) {
		t.Parallel()

		server, attempts := countingServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Millisecond,
		})(http.DefaultTransport)

		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("rule write is never replayed by default", func(t *testing.T) {
		t.Parallel()

		server, attempts := countingServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Millisecond,
		})(http.DefaultTransport)

		req, _ := http.NewRequestWithContext(context.Background(), http.MethodPut, server.URL+"/v2/api/site/default/trafficrules/1",
			strings.NewReader(`{"_id":"1","action":"ALLOW"}`))
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(1), attempts.Load())
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("opted-in method replays body", func(t *testing.T) {
		t.Parallel()

		const payload = `{"_id":"1","action":"BLOCK"}`

		server, attempts := countingServer(t, func(attempt int32, w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, payload, string(body))

			if attempt < 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Millisecond,
			Methods:     []string{http.MethodPut},
		})(http.DefaultTransport)

		req, _ := http.NewRequestWithContext(context.Background(), http.MethodPut, server.URL, strings.NewReader(payload))
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("disabled when MaxRetries is zero", func(t *testing.T) {
		t.Parallel()

		server, attempts := countingServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		transport := middleware.Retry(middleware.RetryConfig{})(http.DefaultTransport)

		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("respects Retry-After", func(t *testing.T) {
		t.Parallel()

		server, _ := countingServer(t, func(attempt int32, w http.ResponseWriter, _ *http.Request) {
			if attempt == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Hour,
		})(http.DefaultTransport)

		start := time.Now()
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("context cancellation during wait", func(t *testing.T) {
		t.Parallel()

		server, _ := countingServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  10,
			InitialWait: time.Second,
		})(http.DefaultTransport)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		if resp != nil {
			resp.Body.Close()
		}

		require.Error(t, err)
		assert.Contains(t, err.Error(), "context")
	})

	t.Run("body without GetBody is sent once", func(t *testing.T) {
		t.Parallel()

		server, attempts := countingServer(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Millisecond,
			Methods:     []string{http.MethodPut},
		})(http.DefaultTransport)

		req, _ := http.NewRequestWithContext(context.Background(), http.MethodPut, server.URL,
			io.NopCloser(strings.NewReader(`{"enabled":true}`)))
		require.Nil(t, req.GetBody)

		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(1), attempts.Load())
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}
