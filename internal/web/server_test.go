package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/dispatch-os/internal/credentials"
	"github.com/blockedby/dispatch-os/internal/database"
	"github.com/blockedby/dispatch-os/internal/ledger"
	"github.com/blockedby/dispatch-os/internal/logger"
	"github.com/blockedby/dispatch-os/internal/models"
	"github.com/blockedby/dispatch-os/internal/recipients"
	"github.com/blockedby/dispatch-os/internal/scheduler"
	"github.com/blockedby/dispatch-os/internal/web/handlers"
)

// recordingRunner stands in for the dispatch loop.
type recordingRunner struct {
	mu   sync.Mutex
	reqs []models.DispatchRequest
}

func (r *recordingRunner) Run(ctx context.Context, runID uuid.UUID, req models.DispatchRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return nil
}

func newTestServer(t *testing.T) (*Server, *recordingRunner) {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runner := &recordingRunner{}
	sched := scheduler.New(runner, logger.Get())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sched.Stop(ctx)
	})

	ledgerRepo := ledger.NewRepository(db.GORM)
	credStore := credentials.NewStore(db.GORM)

	srv := NewServer(&Config{Port: 0}, &Handlers{
		Dispatch:    handlers.NewDispatchHandler(sched, recipients.NewSheetFetcher(), 0, logger.Get()),
		Jobs:        handlers.NewJobsHandler(sched),
		Stats:       handlers.NewStatsHandler(ledgerRepo),
		Credentials: handlers.NewCredentialsHandler(credStore, logger.Get()),
	})

	return srv, runner
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_DispatchRoundTrip(t *testing.T) {
	srv, runner := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"owner":         "alice@example.com",
		"recipients":    "a@x.com,b@x.com",
		"subject":       "hi",
		"body":          "there",
		"delay_seconds": 0,
	})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	// the run executes on its own goroutine; give it a moment
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		runner.mu.Lock()
		n := len(runner.reqs)
		runner.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.reqs, 1)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, runner.reqs[0].Recipients)
}

func TestServer_ScheduleListCancel(t *testing.T) {
	srv, runner := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"owner":      "alice@example.com",
		"recipients": "a@x.com",
		"send_at":    time.Now().Add(time.Hour).Format(time.RFC3339),
	})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var created struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.JobID)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+created.JobID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+created.JobID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "cancelling twice finds nothing")

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Empty(t, runner.reqs, "cancelled job never dispatched")
}

func TestServer_StatsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap ledger.StatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, snap.Total, snap.Sent+snap.Failed)
}
