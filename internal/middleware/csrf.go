package middleware

import (
	"maps"
	"net/http"
)

// CSRFHeader is the header UniFi controllers use to hand out and expect the
// anti-forgery token of a session.
const CSRFHeader = "X-Csrf-Token"

// TokenStore holds the CSRF token of one controller session.
type TokenStore interface {
	CSRFToken() string
	SetCSRFToken(token string)
}

// CSRF returns a middleware that attaches the session's CSRF token to every
// request and records a rotated token when a successful response carries one.
func CSRF(store TokenStore) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &csrfTransport{
			next:  next,
			store: store,
		}
	}
}

type csrfTransport struct {
	next  http.RoundTripper
	store TokenStore
}

func (t *csrfTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.store.CSRFToken(); token != "" {
		// Clone request to avoid modifying original
		req = cloneRequest(req)
		req.Header.Set(CSRFHeader, token)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		//nolint:wrapcheck // Middleware passes through errors from next handler in chain
		return nil, err
	}

	if resp.StatusCode < http.StatusBadRequest {
		if token := resp.Header.Get(CSRFHeader); token != "" {
			t.store.SetCSRFToken(token)
		}
	}

	return resp, nil
}

// cloneRequest creates a shallow copy of the request with a cloned header map.
func cloneRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = make(http.Header, len(req.Header))
	maps.Copy(r.Header, req.Header)
	return r
}
