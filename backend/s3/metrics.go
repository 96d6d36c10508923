package s3

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks per-operation request counts and latencies for one or
// more s3.Backend instances. A nil *Metrics is a valid, zero-overhead
// no-op, so backends built without NewMetrics still work.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the s3 backend's Prometheus collectors against
// registerer (pass prometheus.DefaultRegisterer for the global
// registry). Safe to call more than once against the same registerer:
// a duplicate registration reuses the already-registered collector
// instead of panicking, so unrelated registerers each get their own
// live collectors rather than one silently winning.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	requests := registerCounterVec(registerer, prometheus.CounterOpts{
		Name: "accessor_s3_requests_total",
		Help: "Total number of S3 backend requests by operation and outcome.",
	}, []string{"operation", "outcome"})
	duration := registerHistogramVec(registerer, prometheus.HistogramOpts{
		Name:    "accessor_s3_request_duration_seconds",
		Help:    "S3 backend request latency by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	return &Metrics{requests: requests, duration: duration}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		panic(err)
	}
	return c
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
		panic(err)
	}
	return h
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
