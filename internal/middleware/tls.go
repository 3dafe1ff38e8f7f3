package middleware

import (
	"crypto/tls"
	"net/http"
)

// ControllerTLS returns the TLS settings used against a controller: TLS 1.2 or
// newer, with certificate verification skipped when skipVerify is set.
// UniFi consoles ship with self-signed certificates, so skipping is the default
// in the controller client.
func ControllerTLS(skipVerify bool) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: skipVerify, //nolint:gosec // User-configurable, self-signed consoles
		MinVersion:         tls.VersionTLS12,
	}
}

// TLSConfig returns a middleware that installs config on the innermost transport.
// The transport is cloned, never modified in place. A round tripper that is not
// an *http.Transport is replaced by a clone of http.DefaultTransport.
func TLSConfig(config *tls.Config) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		transport, ok := next.(*http.Transport)
		if !ok {
			defaultTransport, ok := http.DefaultTransport.(*http.Transport)
			if !ok {
				return next
			}
			transport = defaultTransport
		}

		transport = transport.Clone()
		transport.ForceAttemptHTTP2 = true
		transport.TLSClientConfig = config

		return transport
	}
}
