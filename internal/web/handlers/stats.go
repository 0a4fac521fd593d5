package handlers

import (
	"net/http"
)

// StatsHandler handles statistics-related HTTP requests.
type StatsHandler struct {
	repo LedgerRepository
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(repo LedgerRepository) *StatsHandler {
	return &StatsHandler{repo: repo}
}

// GetStats returns the current ledger snapshot.
// GET /api/v1/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.repo.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}
