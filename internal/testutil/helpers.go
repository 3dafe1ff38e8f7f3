// Package testutil provides a scripted fake controller for tests.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// RecordedRequest is what the fake controller saw for one request.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// FakeController serves scripted responses per method and path and records every
// request. Unscripted routes answer 404.
type FakeController struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewFakeController starts a plain HTTP fake controller closed at test cleanup.
func NewFakeController(t *testing.T) *FakeController {
	t.Helper()

	fake := &FakeController{routes: map[string]http.HandlerFunc{}}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.Close)

	return fake
}

// NewFakeTLSController starts a fake controller with a self-signed certificate.
func NewFakeTLSController(t *testing.T) *FakeController {
	t.Helper()

	fake := &FakeController{routes: map[string]http.HandlerFunc{}}
	fake.Server = httptest.NewTLSServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.Close)

	return fake
}

// Handle scripts the response for method and path, replacing any earlier script.
func (f *FakeController) Handle(method, path string, handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = handler
}

// Requests returns a copy of the recorded requests in arrival order.
func (f *FakeController) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// Count returns how many requests hit method and path.
func (f *FakeController) Count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, req := range f.requests {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent request to method and path.
func (f *FakeController) Last(t *testing.T, method, path string) RecordedRequest {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Method == method && f.requests[i].Path == path {
			return f.requests[i]
		}
	}

	require.Failf(t, "request not recorded", "%s %s", method, path)
	return RecordedRequest{}
}

func (f *FakeController) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	handler, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	handler(w, r)
}

// JSON answers with status and a JSON body.
func JSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// Login answers a login request with 200, a session cookie and a CSRF token.
// An empty token omits the header.
func Login(cookie, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "TOKEN", Value: cookie, Path: "/"})
		if token != "" {
			w.Header().Set("X-Csrf-Token", token)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"meta":{"rc":"ok"},"data":[]}`))
	}
}

// Sequence answers successive calls with the given handlers; the last one repeats.
func Sequence(handlers ...http.HandlerFunc) http.HandlerFunc {
	var mu sync.Mutex
	call := 0

	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		idx := min(call, len(handlers)-1)
		call++
		mu.Unlock()

		handlers[idx](w, r)
	}
}
