package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshharrison/critpath/internal/engine"
	"github.com/joshharrison/critpath/internal/metrics"
)

const chainBody = `{"tasks": [
  {"id": "a", "name": "Survey", "start_date": "2026-03-01", "end_date": "2026-03-05", "duration_days": 10, "assigned_resources": ["Crane-1"]},
  {"id": "b", "predecessor_ids": ["a"], "duration_days": 10},
  {"id": "c", "predecessor_ids": ["b"], "duration_days": 1},
  {"id": "x", "project_id": "other", "start_date": "2026-03-03", "end_date": "2026-03-08", "duration_days": 5, "assigned_resources": ["Crane-1"], "baseline_start": "2026-03-01"}
]}`

func newTestServer() (*Server, *metrics.Metrics) {
	m := metrics.New()
	return New(engine.New(engine.Options{Metrics: m}), Options{Metrics: m}), m
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSchedule(t *testing.T) {
	s, _ := newTestServer()

	rec := post(t, s.Handler(), "/v1/schedule", chainBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report engine.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Projects, 2)
	sched := report.Projects[0].Schedule
	assert.Equal(t, 21, sched.LongestPathDays)
	assert.Equal(t, "2026-03-11", sched.Tasks["b"].EarlyStart.String())
	assert.Equal(t, []string{"a", "b", "c"}, sched.CriticalPath)
	assert.Len(t, report.Conflicts, 1)
}

func TestConflicts(t *testing.T) {
	s, _ := newTestServer()

	rec := post(t, s.Handler(), "/v1/conflicts", chainBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"overlap_start":"2026-03-03"`)
	assert.Contains(t, rec.Body.String(), `"overlap_end":"2026-03-05"`)

	rec = post(t, s.Handler(), "/v1/conflicts", `{"tasks": []}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"conflicts": []}`, rec.Body.String())
}

func TestPropagate(t *testing.T) {
	s, _ := newTestServer()
	body := strings.TrimSuffix(chainBody, "}") + `, "changed": {"id": "a", "start_date": "2026-03-01", "duration_days": 15}}`

	rec := post(t, s.Handler(), "/v1/propagate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Changed string `json:"changed"`
		Updates []struct {
			ID        string `json:"id"`
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		} `json:"updates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "a", out.Changed)
	require.Len(t, out.Updates, 2)
	assert.Equal(t, "2026-03-16", out.Updates[0].StartDate)
	assert.Equal(t, "2026-03-26", out.Updates[0].EndDate)
	assert.Equal(t, "c", out.Updates[1].ID)
}

func TestPropagate_Apply(t *testing.T) {
	s, _ := newTestServer()
	body := strings.TrimSuffix(chainBody, "}") + `, "changed": {"id": "a", "start_date": "2026-03-01", "duration_days": 15}, "apply": true}`

	rec := post(t, s.Handler(), "/v1/propagate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out engine.WhatIf
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Updates, 2)
	require.NotNil(t, out.Report)
	assert.Equal(t, 26, out.Report.Projects[0].Schedule.LongestPathDays)
}

func TestPropagate_MissingChanged(t *testing.T) {
	s, _ := newTestServer()

	rec := post(t, s.Handler(), "/v1/propagate", chainBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestRisksVarianceGraph(t *testing.T) {
	s, _ := newTestServer()

	rec := post(t, s.Handler(), "/v1/risks", chainBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"task_id":"c"`)

	rec = post(t, s.Handler(), "/v1/variance", chainBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"start_variance_days":2`)

	rec = post(t, s.Handler(), "/v1/graph", chainBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var g Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Len(t, g.Nodes, 4)
	assert.Equal(t, []GraphEdge{{From: "a", To: "b"}, {From: "b", To: "c"}}, g.Edges)
	assert.Equal(t, 4, g.Metadata.TotalTasks)

	rec = post(t, s.Handler(), "/v1/risks", `{"tasks": []}`)
	assert.JSONEq(t, `{"risks": []}`, rec.Body.String())
}

func TestErrors(t *testing.T) {
	s, _ := newTestServer()

	rec := post(t, s.Handler(), "/v1/schedule", `{"tasks": [`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")

	rec = post(t, s.Handler(), "/v1/schedule", `{"tasks": [{"id": "a", "start_date": "yesterday"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/schedule", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
	assert.JSONEq(t, `{"error": "method not allowed"}`, rr.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())

	post(t, s.Handler(), "/v1/conflicts", chainBody)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `critpath_http_requests_total{code="200",route="/v1/conflicts"} 1`)
	assert.Contains(t, body, "critpath_resource_conflicts_total 1")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
