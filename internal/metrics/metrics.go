// Package metrics exposes the scheduler's prometheus collectors: HTTP request
// counters and latencies, plus the outcome of rule materialization and
// cascade deletes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "shift_scheduler"

type Metrics struct {
	registry       *prometheus.Registry
	httpReqCnt     *prometheus.CounterVec
	httpDur        *prometheus.HistogramVec
	httpInfl       prometheus.Gauge
	shiftsCreated  *prometheus.CounterVec
	shiftsDeleted  *prometheus.CounterVec
	materializeRun prometheus.Counter
	cascadeRun     prometheus.Counter
}

// New builds a registry with the process and Go collectors and the scheduler
// metrics under namespace. An empty namespace uses DefaultNamespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route and status."}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.", Buckets: prometheus.DefBuckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "http_requests_inflight", Help: "HTTP requests currently being served."})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	shiftsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "rule_shifts_generated_total", Help: "Shifts written by rule materialization by outcome."}, []string{"outcome"})
	shiftsDeleted := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "rule_shifts_cascaded_total", Help: "Shifts removed by rule deletion by outcome."}, []string{"outcome"})
	materializeRun := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rule_materializations_total", Help: "Materialization runs."})
	cascadeRun := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rule_cascades_total", Help: "Cascade delete runs."})
	r.MustRegister(shiftsCreated, shiftsDeleted, materializeRun, cascadeRun)

	return &Metrics{
		registry:       r,
		httpReqCnt:     httpReqCnt,
		httpDur:        httpDur,
		httpInfl:       httpInfl,
		shiftsCreated:  shiftsCreated,
		shiftsDeleted:  shiftsDeleted,
		materializeRun: materializeRun,
		cascadeRun:     cascadeRun,
	}
}

// ObserveMaterialization records one materialization run.
func (m *Metrics) ObserveMaterialization(generated, failed int) {
	m.materializeRun.Inc()
	m.shiftsCreated.WithLabelValues("ok").Add(float64(generated))
	m.shiftsCreated.WithLabelValues("failed").Add(float64(failed))
}

// ObserveCascade records one cascade delete run.
func (m *Metrics) ObserveCascade(deleted, failed int) {
	m.cascadeRun.Inc()
	m.shiftsDeleted.WithLabelValues("ok").Add(float64(deleted))
	m.shiftsDeleted.WithLabelValues("failed").Add(float64(failed))
}

// Middleware counts and times every request. Routes are labelled with the
// ServeMux pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInfl.Inc()
		defer m.httpInfl.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(rec.status)
		m.httpReqCnt.WithLabelValues(r.Method, route, status).Inc()
		m.httpDur.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
