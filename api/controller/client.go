package controller

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-unifi-rules/internal/httpclient"
	"github.com/lexfrei/go-unifi-rules/internal/middleware"
	"github.com/lexfrei/go-unifi-rules/internal/ratelimit"
	"github.com/lexfrei/go-unifi-rules/observability"
)

const (
	// DefaultRateLimit is the default rate limit for reads (requests per minute).
	DefaultRateLimit = 1000
	// DefaultWriteRateLimit is the default rate limit for rule writes (requests per minute).
	DefaultWriteRateLimit = 60

	// DefaultRetryWaitTime is the default initial wait between retries of reads.
	DefaultRetryWaitTime = 1 * time.Second
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = httpclient.DefaultTimeout
)

// Client talks to one UniFi Network controller using a username/password session.
// It is safe for concurrent use.
type Client struct {
	baseURL  string
	username string
	password string

	http    *httpclient.Client
	session *session
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

// Compile-time check to ensure Client implements ControllerAPI interface.
var _ ControllerAPI = (*Client)(nil)

// ClientConfig holds configuration for the controller client.
type ClientConfig struct {
	// Host is the controller address: a bare host ("192.168.1.1", "unifi.local:8443"),
	// which is reached over https, or an absolute URL.
	Host string

	// Username and Password of a local controller account.
	Username string
	Password string

	// HTTPClient is the HTTP client to use (optional). Its transport is wrapped by the
	// client's middleware; TLS settings are left to the caller.
	HTTPClient *http.Client

	// InsecureSkipVerify disables TLS certificate verification (controllers ship self-signed certs)
	InsecureSkipVerify bool

	// RateLimitPerMinute limits reads (defaults to 1000)
	RateLimitPerMinute int

	// WriteRateLimitPerMinute limits rule writes (defaults to 60)
	WriteRateLimitPerMinute int

	// MaxRetries sets how often a failed read is retried (defaults to 0, no retries).
	// Rule writes are never retried.
	MaxRetries int

	// RetryWaitTime sets the initial wait between retries
	RetryWaitTime time.Duration

	// Timeout sets the HTTP client timeout (defaults to 30s)
	Timeout time.Duration

	// Logger for observability (optional, uses noop logger if nil)
	Logger observability.Logger

	// Metrics recorder for observability (optional, uses noop recorder if nil)
	Metrics observability.MetricsRecorder
}

// New creates a controller client with default settings.
//
// Default settings:
//   - Read rate limit: 1000 requests/minute
//   - Write rate limit: 60 requests/minute
//   - Retries: none
//   - Timeout: 30 seconds
//   - TLS verification: disabled (for self-signed certificates)
//
// No request is made until the first operation.
//
// Example:
//
//	client, err := controller.New("192.168.1.1", "admin", "secret")
func New(host, username, password string) (*Client, error) {
	return NewWithConfig(&ClientConfig{
		Host:               host,
		Username:           username,
		Password:           password,
		InsecureSkipVerify: true, // Default to true for self-signed certs
	})
}

// NewWithConfig creates a controller client with custom configuration.
//
// Example:
//
//	client, err := controller.NewWithConfig(&controller.ClientConfig{
//	    Host:               "https://unifi.local:8443",
//	    Username:           "admin",
//	    Password:           "secret",
//	    InsecureSkipVerify: true,
//	    MaxRetries:         2,
//	    Logger:             myLogger,
//	})
func NewWithConfig(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	conf := *cfg

	baseURL, err := normalizeHost(conf.Host)
	if err != nil {
		return nil, err
	}
	if conf.Username == "" {
		return nil, errors.New("username is required")
	}
	if conf.Password == "" {
		return nil, errors.New("password is required")
	}

	// Set defaults
	if conf.RateLimitPerMinute == 0 {
		conf.RateLimitPerMinute = DefaultRateLimit
	}
	if conf.WriteRateLimitPerMinute == 0 {
		conf.WriteRateLimitPerMinute = DefaultWriteRateLimit
	}
	if conf.RetryWaitTime == 0 {
		conf.RetryWaitTime = DefaultRetryWaitTime
	}
	if conf.Logger == nil {
		conf.Logger = observability.NoopLogger()
	}
	if conf.Metrics == nil {
		conf.Metrics = observability.NoopMetricsRecorder()
	}

	sess := newSession()
	reads, writes := ratelimit.Budget{
		ReadsPerMinute:  conf.RateLimitPerMinute,
		WritesPerMinute: conf.WriteRateLimitPerMinute,
	}.Limiters()

	// Order from outside to inside: Observability -> RateLimit -> Retry -> CSRF -> TLS
	chain := []httpclient.Middleware{
		middleware.Observability(conf.Logger, conf.Metrics),
		middleware.RateLimit(middleware.RateLimitConfig{
			Reads:   reads,
			Writes:  writes,
			Logger:  conf.Logger,
			Metrics: conf.Metrics,
		}),
		middleware.Retry(middleware.RetryConfig{
			MaxRetries:  conf.MaxRetries,
			InitialWait: conf.RetryWaitTime,
			Logger:      conf.Logger,
			Metrics:     conf.Metrics,
		}),
		middleware.CSRF(sess),
	}

	opts := []httpclient.Option{httpclient.WithTimeout(conf.Timeout)}
	if conf.HTTPClient != nil {
		base := *conf.HTTPClient
		opts = append([]httpclient.Option{httpclient.WithHTTPClient(&base)}, opts...)
	} else {
		chain = append(chain, middleware.TLSConfig(middleware.ControllerTLS(conf.InsecureSkipVerify)))
	}
	opts = append(opts, httpclient.WithMiddleware(chain...))

	httpClient, err := httpclient.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP client")
	}

	return &Client{
		baseURL:  baseURL,
		username: conf.Username,
		password: conf.Password,
		http:     httpClient,
		session:  sess,
		logger:   conf.Logger,
		metrics:  conf.Metrics,
	}, nil
}

// BaseURL returns the normalized controller URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsUDM reports whether the last successful login went through the UniFi OS endpoint.
// It is false before the first login.
func (c *Client) IsUDM() bool {
	return c.session.udm.Load()
}
