// Package observability provides interfaces for logging and metrics collection
// in the go-unifi-rules controller client.
//
// This package defines standard interfaces that allow users to integrate their
// own logging and metrics implementations with the controller client.
//
// # Logger Interface
//
// The Logger interface supports structured logging with key-value pairs:
//
//	client, err := controller.NewWithConfig(&controller.ClientConfig{
//		Host:     "192.168.1.1",
//		Username: "admin",
//		Password: "secret",
//		Logger:   observability.NewZapLogger(zapLogger),
//	})
//
// Supported log levels:
//   - Debug: Detailed diagnostic information
//   - Info: General informational messages
//   - Warn: Warning messages for potentially problematic situations
//   - Error: Error messages for failures
//
// # MetricsRecorder Interface
//
// The MetricsRecorder interface tracks client and poller metrics. A Prometheus
// implementation is available through NewPrometheusRecorder:
//
//	metrics := observability.NewPrometheusRecorder(prometheus.DefaultRegisterer)
//
// Tracked metrics include:
//   - HTTP request count, status codes, and duration
//   - Retry attempts for failed requests
//   - Rate limiting events and wait times
//   - Error occurrences by type
//   - Poll cycle results and per-kind rule states
//
// # Default Behavior
//
// If no logger or metrics recorder is provided, the client uses no-op
// implementations that discard all events.
//
// # Example
//
// See examples/observability/main.go for a complete working example showing
// how to integrate a slog-based logger.
package observability
