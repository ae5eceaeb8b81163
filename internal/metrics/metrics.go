package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opscal/internal/model"
)

// Metrics holds the collectors for pipeline runs, HTTP traffic and
// background jobs.
type Metrics struct {
	gatherer prometheus.Gatherer

	pipelineRuns   *prometheus.CounterVec
	pipelineEvents *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	jobRuns *prometheus.CounterVec
}

// New registers the collectors into reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		pipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opscal_pipeline_runs_total",
				Help: "Calendar aggregation passes by outcome.",
			},
			[]string{"outcome"},
		),
		pipelineEvents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "opscal_pipeline_events",
				Help: "Events produced by the last aggregation pass, by category.",
			},
			[]string{"category"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opscal_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"path", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opscal_http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opscal_job_runs_total",
				Help: "Scheduled job runs by job and outcome.",
			},
			[]string{"job", "outcome"},
		),
	}
	reg.MustRegister(m.pipelineRuns, m.pipelineEvents, m.httpRequests, m.httpDuration, m.jobRuns)
	return m
}

// PipelineRun records one aggregation pass.
func (m *Metrics) PipelineRun(events []model.CalendarEvent, err error) {
	if err != nil {
		m.pipelineRuns.WithLabelValues("error").Inc()
		return
	}
	m.pipelineRuns.WithLabelValues("ok").Inc()

	counts := make(map[model.Category]int, len(model.AllCategories()))
	for _, e := range events {
		counts[e.Category]++
	}
	for _, c := range model.AllCategories() {
		m.pipelineEvents.WithLabelValues(string(c)).Set(float64(counts[c]))
	}
}

// JobRun records one scheduled job execution.
func (m *Metrics) JobRun(job string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern, so path parameters do
// not create new series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		m.httpRequests.WithLabelValues(path, r.Method, strconv.Itoa(ww.status)).Inc()
		m.httpDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
