// Package metrics exposes Prometheus collectors for the ledger.
//
// A nil *Metrics is valid and records nothing, so callers and tests can
// skip wiring it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registered collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests      *prometheus.HistogramVec
	sessionWrites *prometheus.CounterVec
	writeRetries  prometheus.Counter
	lockWait      prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := &Metrics{
		gatherer: reg,
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shgledger",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		sessionWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shgledger",
			Name:      "recovery_session_writes_total",
			Help:      "Recovery session writes by operation and outcome.",
		}, []string{"op", "outcome"}),
		writeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shgledger",
			Name:      "recovery_session_write_retries_total",
			Help:      "Session writes retried after a version conflict or duplicate insert.",
		}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shgledger",
			Name:      "recovery_lock_wait_seconds",
			Help:      "Time spent waiting for the per-session lock.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 3},
		}),
	}
	reg.MustRegister(m.requests, m.sessionWrites, m.writeRetries, m.lockWait)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request latency labelled by the matched chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// SessionWrite counts one recovery session write.
func (m *Metrics) SessionWrite(op, outcome string) {
	if m == nil {
		return
	}
	m.sessionWrites.WithLabelValues(op, outcome).Inc()
}

// WriteRetry counts one retried session write.
func (m *Metrics) WriteRetry() {
	if m == nil {
		return
	}
	m.writeRetries.Inc()
}

// LockWait records how long obtaining a session lock took.
func (m *Metrics) LockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}
