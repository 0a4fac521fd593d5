package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// JobsHandler exposes the pending-job diagnostic surface.
type JobsHandler struct {
	sched DispatchScheduler
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(sched DispatchScheduler) *JobsHandler {
	return &JobsHandler{sched: sched}
}

// List returns the not-yet-fired jobs in fire order.
// GET /api/v1/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sched.ListPending())
}

// Cancel removes a pending job. Jobs that already fired (or never
// existed) yield 404; cancellation never duplicates or prevents a fired
// job's dispatch.
// DELETE /api/v1/jobs/{id}
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	if !h.sched.Cancel(id) {
		http.Error(w, "job not found or already fired", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
