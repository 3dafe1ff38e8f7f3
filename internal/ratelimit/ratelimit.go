// Package ratelimit builds the token buckets that pace controller requests.
package ratelimit

import "golang.org/x/time/rate"

// Budget is a request allowance per minute, split between reads and writes.
type Budget struct {
	ReadsPerMinute  int
	WritesPerMinute int
}

// Limiters returns one token bucket for reads and one for writes.
func (b Budget) Limiters() (reads, writes *rate.Limiter) {
	return PerMinute(b.ReadsPerMinute), PerMinute(b.WritesPerMinute)
}

// PerMinute creates a token bucket refilled at requestsPerMinute/60 tokens per
// second, with a burst capacity equal to requestsPerMinute.
// Zero or a negative value means no limit.
func PerMinute(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
}
