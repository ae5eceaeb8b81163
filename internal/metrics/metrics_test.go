package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opscal/internal/model"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPipelineRun(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.PipelineRun([]model.CalendarEvent{
		{Category: model.CategoryTask},
		{Category: model.CategoryTask},
		{Category: model.CategoryInvoice},
	}, nil)
	m.PipelineRun(nil, errors.New("boom"))

	out := scrape(t, m)
	for _, want := range []string{
		`opscal_pipeline_runs_total{outcome="ok"} 1`,
		`opscal_pipeline_runs_total{outcome="error"} 1`,
		`opscal_pipeline_events{category="task"} 2`,
		`opscal_pipeline_events{category="invoice"} 1`,
		`opscal_pipeline_events{category="order"} 0`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New(nil)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
	}
	m.JobRun("ics_sync", nil)

	out := scrape(t, m)
	assert.Contains(t, out, `opscal_http_requests_total{method="GET",path="/api/items/{id}",status="418"} 2`)
	assert.Contains(t, out, `opscal_job_runs_total{job="ics_sync",outcome="ok"} 1`)
}
