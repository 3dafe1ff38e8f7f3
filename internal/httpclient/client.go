// Package httpclient builds the session-scoped HTTP client used to talk to a controller.
package httpclient

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultTimeout bounds every controller request unless overridden.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client that supports middleware chaining and keeps session cookies.
type Client struct {
	base       *http.Client
	middleware []Middleware
}

// Middleware wraps an http.RoundTripper to add behavior.
// Middleware is applied in order: first middleware is outermost.
type Middleware func(http.RoundTripper) http.RoundTripper

// New creates a new HTTP client with the given options.
// Unless a jar is supplied, the client gets its own in-memory cookie jar so
// cookies set by a login response are sent on every later request.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		base: &http.Client{
			Timeout: DefaultTimeout,
		},
		middleware: []Middleware{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.base.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create cookie jar")
		}
		c.base.Jar = jar
	}

	if len(c.middleware) > 0 {
		transport := c.base.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}

		// Apply middleware in reverse order so first middleware is outermost
		for i := len(c.middleware) - 1; i >= 0; i-- {
			transport = c.middleware[i](transport)
		}

		c.base.Transport = transport
	}

	return c, nil
}

// Do executes an HTTP request using the configured middleware chain.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	//nolint:wrapcheck // Callers classify transport errors themselves
	return c.base.Do(req)
}

// HTTPClient returns the underlying http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.base
}

// Jar returns the cookie jar holding the session cookies.
func (c *Client) Jar() http.CookieJar {
	return c.base.Jar
}
