// Package retry holds the status and timing rules for retrying controller reads.
package retry

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxBackoff caps the exponential backoff between attempts.
const MaxBackoff = 30 * time.Second

// Retryable reports whether a response status is worth another attempt.
// Retryable statuses are:
//   - 429 (Too Many Requests) - the console is shedding load
//   - 5xx (Server Errors) - except 501, which controllers return for endpoints they lack
func Retryable(statusCode int) bool {
	if statusCode == http.StatusNotImplemented {
		return false
	}
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// RetryAfter returns how long the Retry-After header asks to wait, measured from now.
// The header can contain either:
//   - Number of seconds (e.g., "120")
//   - HTTP-date (e.g., "Wed, 21 Oct 2015 07:28:00 GMT")
//
// Returns 0 if the header is missing, malformed or in the past.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if wait := at.Sub(now); wait > 0 {
			return wait
		}
	}

	return 0
}

// Backoff returns initial * 2^attempt, capped at MaxBackoff.
func Backoff(initial time.Duration, attempt int) time.Duration {
	if initial <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	// Keep the shift in range.
	if attempt > 30 {
		return MaxBackoff
	}

	return min(initial*time.Duration(1<<attempt), MaxBackoff)
}
