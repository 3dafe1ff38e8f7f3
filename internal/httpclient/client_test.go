package httpclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-unifi-rules/internal/httpclient"
)

func TestNew(t *testing.T) {
	t.Parallel()

	client, err := httpclient.New()
	require.NoError(t, err)

	assert.Equal(t, httpclient.DefaultTimeout, client.HTTPClient().Timeout)
	assert.NotNil(t, client.Jar(), "default client should carry a cookie jar")
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "custom", timeout: 10 * time.Second, want: 10 * time.Second},
		{name: "zero keeps default", timeout: 0, want: httpclient.DefaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := httpclient.New(httpclient.WithTimeout(tt.timeout))
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.HTTPClient().Timeout)
		})
	}
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()

	customClient := &http.Client{Timeout: 5 * time.Second}

	client, err := httpclient.New(httpclient.WithHTTPClient(customClient))
	require.NoError(t, err)

	assert.Same(t, customClient, client.HTTPClient())
	assert.NotNil(t, customClient.Jar)
}

func TestSessionCookiePersists(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			http.SetCookie(w, &http.Cookie{Name: "unifises", Value: "session-1", Path: "/"})
			w.WriteHeader(http.StatusOK)
		default:
			cookie, err := r.Cookie("unifises")
			if err != nil || cookie.Value != "session-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	client, err := httpclient.New()
	require.NoError(t, err)

	for _, path := range []string{"/api/login", "/api/self/sites"} {
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+path, http.NoBody)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestMiddlewareChaining(t *testing.T) {
	t.Parallel()

	var order []string

	record := func(name string) httpclient.Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name+"-before")
				resp, err := next.RoundTrip(req)
				order = append(order, name+"-after")
				return resp, err
			})
		}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "server")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := httpclient.New(httpclient.WithMiddleware(record("outer"), record("inner")))
	require.NoError(t, err)

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{
		"outer-before",
		"inner-before",
		"server",
		"inner-after",
		"outer-after",
	}, order)
}

func TestDo(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client, err := httpclient.New()
	require.NoError(t, err)

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"data":[]}`, string(body))
}

// roundTripperFunc is an adapter to use functions as http.RoundTripper
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
