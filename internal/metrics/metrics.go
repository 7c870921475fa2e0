// Package metrics exposes Prometheus metrics for token verification, key
// set fetches and HTTP requests.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "itemstore"

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics owns its registry; nothing is registered globally.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	TokenVerifications  *prometheus.CounterVec
	KeySetFetchDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TokenVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_verifications_total",
				Help:      "Bearer token verifications by result",
			},
			[]string{"result"},
		),
		KeySetFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "jwks_fetch_seconds",
				Help:      "Latency of key set fetches from the identity provider",
				Buckets:   latencyBuckets,
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of HTTP request latency",
				Buckets:   latencyBuckets,
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		m.TokenVerifications,
		m.KeySetFetchDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveVerification counts one verification outcome, labelled "ok" or
// with the error category.
func (m *Metrics) ObserveVerification(err error) {
	if m == nil {
		return
	}
	m.TokenVerifications.WithLabelValues(tokens.Category(err)).Inc()
}

// InstrumentSource times every fetch of src.
func (m *Metrics) InstrumentSource(src tokens.KeySetSource) tokens.KeySetSource {
	if m == nil {
		return src
	}
	return tokens.SourceFunc(func(ctx context.Context) (*tokens.KeySet, error) {
		start := time.Now()
		set, err := src.Fetch(ctx)
		m.KeySetFetchDuration.
			WithLabelValues(tokens.Category(err)).
			Observe(time.Since(start).Seconds())
		return set, err
	})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		m.HTTPRequestsTotal.
			WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).
			Inc()
		m.HTTPRequestDuration.
			WithLabelValues(r.Method, path).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
