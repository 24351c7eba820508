package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
)

type fakeStatus struct {
	ready     bool
	schedules []ingest.Schedule
}

func (f *fakeStatus) Ready() bool { return f.ready }

func (f *fakeStatus) Snapshots() []ingest.Schedule { return f.schedules }

func (f *fakeStatus) Snapshot(name string) (ingest.Schedule, bool) {
	for _, s := range f.schedules {
		if s.Source == name {
			return s, true
		}
	}
	return ingest.Schedule{}, false
}

func newTestServer(t *testing.T, status Status, apiKey string) http.Handler {
	t.Helper()
	srv, err := NewServer(status, Options{APIKey: apiKey, Registry: prometheus.NewRegistry()}, nil)
	require.NoError(t, err)
	return srv.Handler()
}

func sampleStatus() *fakeStatus {
	return &fakeStatus{
		ready: true,
		schedules: []ingest.Schedule{
			{
				Source:    "Glints",
				State:     ingest.StateSleeping,
				Interval:  5 * time.Minute,
				Cycles:    2,
				LastCycle: ingest.CycleCounters{Pages: 3, Stored: 7, Duplicates: 1},
			},
			{Source: "Loker.id", State: ingest.StateFetching, Interval: time.Minute},
		},
	}
}

func TestNewServerRequiresStatus(t *testing.T) {
	t.Parallel()
	_, err := NewServer(nil, Options{}, nil)
	require.Error(t, err)
}

func TestHealthAndReadiness(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		path   string
		ready  bool
		status int
		body   string
	}{
		{name: "healthz always ok", path: "/healthz", ready: false, status: http.StatusOK, body: "ok"},
		{name: "readyz seeding", path: "/readyz", ready: false, status: http.StatusServiceUnavailable, body: "seeding"},
		{name: "readyz ready", path: "/readyz", ready: true, status: http.StatusOK, body: "ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newTestServer(t, &fakeStatus{ready: tt.ready}, "")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)
			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			require.Equal(t, tt.body, got["status"])
			require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestListSources(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, sampleStatus(), "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Sources []ingest.Schedule `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Sources, 2)
	require.Equal(t, "Glints", got.Sources[0].Source)
	require.Equal(t, 7, got.Sources[0].LastCycle.Stored)
}

func TestGetSource(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, sampleStatus(), "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources/Loker.id", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap ingest.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, ingest.StateFetching, snap.State)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources/Indeed", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "source not found")
}

func TestAPIKeyGuardsV1Routes(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, sampleStatus(), "s3cret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/sources", nil)
	req.Header.Set("X-API-Key", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources?api_key=s3cret", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, sampleStatus(), "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, sampleStatus(), "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `ops_http_requests_total{code="200",method="GET",route="/v1/sources"} 1`), body)
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()
	h := recoverMiddleware(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
