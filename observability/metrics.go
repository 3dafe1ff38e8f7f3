package observability

import "time"

// MetricsRecorder receives controller client and poller measurements.
// PrometheusRecorder is the bundled implementation.
type MetricsRecorder interface {
	// RecordHTTPRequest records one controller response. path is the normalized route.
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)

	// RecordRetry records a repeated request to a route.
	RecordRetry(attempt int, endpoint string)

	// RecordRateLimit records time a request of the given class spent waiting for a token.
	RecordRateLimit(class string, wait time.Duration)

	// RecordError records a failure such as a transport error or a rejected login.
	RecordError(operation, errorType string)

	// RecordPoll records the outcome of one poll cycle over both rule kinds.
	RecordPoll(success bool, duration time.Duration)

	// RecordRuleStates records how many rules of a kind are currently on and off.
	RecordRuleStates(kind string, on, off int)
}

type noopMetricsRecorder struct{}

// NoopMetricsRecorder returns a recorder that drops everything.
//
//nolint:ireturn // Factory function must return interface for dependency injection pattern
func NoopMetricsRecorder() MetricsRecorder {
	return &noopMetricsRecorder{}
}

func (m *noopMetricsRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}
func (m *noopMetricsRecorder) RecordRetry(int, string)                              {}
func (m *noopMetricsRecorder) RecordRateLimit(string, time.Duration)                {}
func (m *noopMetricsRecorder) RecordError(string, string)                           {}
func (m *noopMetricsRecorder) RecordPoll(bool, time.Duration)                       {}
func (m *noopMetricsRecorder) RecordRuleStates(string, int, int)                    {}
