package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "unifi_rules"

// PrometheusRecorder is a MetricsRecorder backed by Prometheus collectors.
type PrometheusRecorder struct {
	requests     *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
	errors       *prometheus.CounterVec
	polls        *prometheus.CounterVec
	pollDuration prometheus.Histogram
	rules        *prometheus.GaugeVec
}

// NewPrometheusRecorder registers the recorder's collectors with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &PrometheusRecorder{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Controller HTTP requests by method, normalized path and status code",
		}, []string{"method", "path", "status"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Controller HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_retries_total",
			Help:      "Retried controller requests by endpoint",
		}, []string{"endpoint"}),
		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limit_wait_seconds_total",
			Help:      "Time spent waiting on the client-side rate limiter by request class",
		}, []string{"class"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Errors by operation and type",
		}, []string{"operation", "type"}),
		polls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "polls_total",
			Help:      "Rule poll cycles by result",
		}, []string{"result"}),
		pollDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of a full rule poll cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		rules: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rules",
			Help:      "Rules by kind and on/off state as of the last successful poll",
		}, []string{"kind", "state"}),
	}
}

// RecordHTTPRequest implements MetricsRecorder.
func (p *PrometheusRecorder) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	p.requests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	p.durations.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRetry implements MetricsRecorder.
func (p *PrometheusRecorder) RecordRetry(_ int, endpoint string) {
	p.retries.WithLabelValues(endpoint).Inc()
}

// RecordRateLimit implements MetricsRecorder.
func (p *PrometheusRecorder) RecordRateLimit(class string, wait time.Duration) {
	p.rateLimited.WithLabelValues(class).Add(wait.Seconds())
}

// RecordError implements MetricsRecorder.
func (p *PrometheusRecorder) RecordError(operation, errorType string) {
	p.errors.WithLabelValues(operation, errorType).Inc()
}

// RecordPoll implements MetricsRecorder.
func (p *PrometheusRecorder) RecordPoll(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}

	p.polls.WithLabelValues(result).Inc()
	p.pollDuration.Observe(duration.Seconds())
}

// RecordRuleStates implements MetricsRecorder.
func (p *PrometheusRecorder) RecordRuleStates(kind string, on, off int) {
	p.rules.WithLabelValues(kind, "on").Set(float64(on))
	p.rules.WithLabelValues(kind, "off").Set(float64(off))
}
