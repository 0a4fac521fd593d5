package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/blockedby/dispatch-os/internal/logger"
	"github.com/blockedby/dispatch-os/internal/models"
	"github.com/blockedby/dispatch-os/internal/recipients"
	"github.com/blockedby/dispatch-os/internal/scheduler"
)

// DispatchHandler accepts bulk dispatch submissions.
type DispatchHandler struct {
	sched        DispatchScheduler
	sheets       SheetSource
	defaultDelay time.Duration
	log          *logger.Logger
}

// NewDispatchHandler creates a new DispatchHandler.
func NewDispatchHandler(sched DispatchScheduler, sheets SheetSource, defaultDelay time.Duration, log *logger.Logger) *DispatchHandler {
	return &DispatchHandler{
		sched:        sched,
		sheets:       sheets,
		defaultDelay: defaultDelay,
		log:          log,
	}
}

// DispatchRequestDTO is the submission payload. Recipients come either
// from a manual comma-separated list or from a Google Sheets URL.
type DispatchRequestDTO struct {
	Owner        string `json:"owner"`
	Recipients   string `json:"recipients,omitempty"`
	SheetURL     string `json:"sheet_url,omitempty"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	DelaySeconds *int   `json:"delay_seconds,omitempty"`
	SendAt       string `json:"send_at,omitempty"` // RFC3339; empty means send now
}

// DispatchResponse acknowledges acceptance, not completion. Completion
// is only observable through the ledger and job status.
type DispatchResponse struct {
	JobID     string `json:"job_id"`
	Scheduled bool   `json:"scheduled"`
	FireAt    string `json:"fire_at,omitempty"`
}

// Create accepts a dispatch submission and routes it to run-now or
// run-later.
// POST /api/v1/dispatch
func (h *DispatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto DispatchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if dto.Owner == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}

	list, err := h.resolveRecipients(r, &dto)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to resolve recipients")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	delay := h.defaultDelay
	if dto.DelaySeconds != nil {
		if *dto.DelaySeconds < 0 {
			http.Error(w, "delay_seconds must be >= 0", http.StatusBadRequest)
			return
		}
		delay = time.Duration(*dto.DelaySeconds) * time.Second
	}

	req := models.DispatchRequest{
		Owner:      dto.Owner,
		Recipients: list,
		Subject:    dto.Subject,
		Body:       dto.Body,
		Delay:      delay,
	}

	if dto.SendAt == "" {
		handle, err := h.sched.ScheduleNow(req)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to start dispatch")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusAccepted, DispatchResponse{JobID: handle.ID.String()})
		return
	}

	fireAt, err := time.Parse(time.RFC3339, dto.SendAt)
	if err != nil {
		http.Error(w, "send_at must be RFC3339", http.StatusBadRequest)
		return
	}

	id, err := h.sched.ScheduleAt(req, fireAt)
	if err != nil {
		if errors.Is(err, scheduler.ErrInvalidSchedule) || errors.Is(err, scheduler.ErrNoRecipients) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("failed to schedule dispatch")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, DispatchResponse{
		JobID:     id.String(),
		Scheduled: true,
		FireAt:    fireAt.Format(time.RFC3339),
	})
}

func (h *DispatchHandler) resolveRecipients(r *http.Request, dto *DispatchRequestDTO) ([]string, error) {
	switch {
	case dto.Recipients != "":
		return recipients.ParseList(dto.Recipients)
	case dto.SheetURL != "":
		return h.sheets.Fetch(r.Context(), dto.SheetURL)
	default:
		return nil, recipients.ErrNoRecipients
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = err // Client disconnected
	}
}
