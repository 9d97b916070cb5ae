package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/shell/orchestrator"
)

type staticProgress orchestrator.Snapshot

func (p staticProgress) Progress() orchestrator.Snapshot { return orchestrator.Snapshot(p) }

type stubLister struct {
	records []domain.DeploymentRecord
	err     error
}

func (l stubLister) List(ctx context.Context) ([]domain.DeploymentRecord, error) {
	return l.records, l.err
}

func testSnapshot() staticProgress {
	return staticProgress{
		RunID:     "run-1",
		StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Running:   true,
		Platforms: []orchestrator.PlatformProgress{
			{Platform: domain.PlatformNetlify, Total: 4, Succeeded: 2, Failed: 1, InFlight: "https://github.com/acme/d", Attempt: 2},
			{Platform: domain.PlatformRender, Total: 4, Succeeded: 4},
		},
	}
}

func testRecords() []domain.DeploymentRecord {
	return []domain.DeploymentRecord{
		{RepoURL: "https://github.com/acme/a", Platform: domain.PlatformNetlify, Status: domain.RecordSuccess, HostedURL: "https://a.netlify.app", AttemptCount: 1},
		{RepoURL: "https://github.com/acme/b", Platform: domain.PlatformNetlify, Status: domain.RecordFailure, Notes: "HTTP 403 (after 1 attempt)", AttemptCount: 1},
		{RepoURL: "https://github.com/acme/a", Platform: domain.PlatformRender, Status: domain.RecordSuccess, HostedURL: "https://a.onrender.com", AttemptCount: 2},
	}
}

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer(DefaultConfig(), testSnapshot(), nil, nil)

	rec := serve(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, HealthResponse{Status: "ok", RunID: "run-1", Running: true}, body)
}

func TestProgress(t *testing.T) {
	s := NewServer(DefaultConfig(), testSnapshot(), nil, nil)

	rec := serve(t, s, "/progress")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap orchestrator.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "run-1", snap.RunID)
	require.Len(t, snap.Platforms, 2)
	assert.Equal(t, 3, snap.Platforms[0].Done())
	assert.Equal(t, "https://github.com/acme/d", snap.Platforms[0].InFlight)
}

func TestPlatformProgress(t *testing.T) {
	s := NewServer(DefaultConfig(), testSnapshot(), nil, nil)

	rec := serve(t, s, "/progress/render")
	require.Equal(t, http.StatusOK, rec.Code)
	var p orchestrator.PlatformProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 4, p.Succeeded)

	assert.Equal(t, http.StatusNotFound, serve(t, s, "/progress/github").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/progress/heroku").Code)
}

func TestRecords(t *testing.T) {
	s := NewServer(DefaultConfig(), testSnapshot(), stubLister{records: testRecords()}, nil)

	tests := []struct {
		name  string
		path  string
		code  int
		count int
	}{
		{"all", "/records", http.StatusOK, 3},
		{"by platform", "/records?platform=netlify", http.StatusOK, 2},
		{"by status", "/records?status=failure", http.StatusOK, 1},
		{"both", "/records?platform=render&status=failure", http.StatusOK, 0},
		{"bad platform", "/records?platform=heroku", http.StatusBadRequest, -1},
		{"bad status", "/records?status=pending", http.StatusBadRequest, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, s, tt.path)
			require.Equal(t, tt.code, rec.Code)
			if tt.count < 0 {
				var e ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
				assert.NotEmpty(t, e.Code)
				return
			}
			var got []domain.DeploymentRecord
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Len(t, got, tt.count)
		})
	}
}

func TestRecords_StoreErrors(t *testing.T) {
	s := NewServer(DefaultConfig(), testSnapshot(), stubLister{err: errors.New("locked")}, nil)
	assert.Equal(t, http.StatusInternalServerError, serve(t, s, "/records").Code)

	s = NewServer(DefaultConfig(), testSnapshot(), nil, nil)
	assert.Equal(t, http.StatusNotFound, serve(t, s, "/records").Code)
}

func TestStartAndShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	srv := NewServer(cfg, testSnapshot(), nil, nil).Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
