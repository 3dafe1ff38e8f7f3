package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-unifi-rules/observability"
)

// Observability returns a middleware that logs every controller request and records
// its metrics under a normalized route, so site names and rule ids never become labels.
// Query strings, bodies and cookies are never logged.
func Observability(logger observability.Logger, metrics observability.MetricsRecorder) func(http.RoundTripper) http.RoundTripper {
	if logger == nil {
		logger = observability.NoopLogger()
	}
	if metrics == nil {
		metrics = observability.NoopMetricsRecorder()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return &observabilityTransport{
			next:    next,
			logger:  logger,
			metrics: metrics,
		}
	}
}

type observabilityTransport struct {
	next    http.RoundTripper
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

func (t *observabilityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	route := normalizePath(req.URL.Path)
	start := time.Now()

	resp, err := t.next.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []observability.Field{
		{Key: "method", Value: req.Method},
		{Key: "route", Value: route},
		{Key: "duration", Value: elapsed},
	}

	if err != nil {
		t.logger.Error("controller request failed", append(fields, observability.Err(err))...)
		t.metrics.RecordError("http_request", transportErrorType(err))

		//nolint:wrapcheck // Observability middleware logs error but passes it through unchanged
		return nil, err
	}

	fields = append(fields, observability.Field{Key: "status", Value: resp.StatusCode})

	// Login probing answers 4xx on UniFi OS consoles; only 5xx warns.
	if resp.StatusCode >= http.StatusInternalServerError {
		t.logger.Warn("controller request returned server error", fields...)
	} else {
		t.logger.Debug("controller request completed", fields...)
	}

	t.metrics.RecordHTTPRequest(req.Method, route, resp.StatusCode, elapsed)

	return resp, nil
}

func transportErrorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	default:
		return "NetworkError"
	}
}

// normalizePath replaces the dynamic segments of a controller path with placeholders:
//
//	/proxy/network/v2/api/site/default/trafficrules/507f1f77bcf86cd799439011 → /proxy/network/v2/api/site/:site/trafficrules/:id
//	/api/s/office/rest/firewallrule/507f1f77bcf86cd799439011                 → /api/s/:site/rest/firewallrule/:id
//
// The segment after api/site or api/s is the site. ObjectIDs, UUIDs and numbers
// of five or more digits are ids wherever they appear.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")

	for i := range segments {
		switch {
		case segments[i] == "":
		case i >= 2 && segments[i-2] == "api" && (segments[i-1] == "site" || segments[i-1] == "s"):
			segments[i] = ":site"
		case isObjectID(segments[i]) || isUUID(segments[i]) || isLongNumber(segments[i]):
			segments[i] = ":id"
		}
	}

	return strings.Join(segments, "/")
}

func isObjectID(s string) bool {
	return len(s) == 24 && strings.Trim(s, "0123456789abcdefABCDEF") == ""
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, r := range s {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
				return false
			}
		}
	}
	return true
}

func isLongNumber(s string) bool {
	return len(s) >= 5 && strings.Trim(s, "0123456789") == ""
}
