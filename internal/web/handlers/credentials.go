package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/blockedby/dispatch-os/internal/logger"
	"github.com/blockedby/dispatch-os/internal/models"
)

// CredentialsHandler provisions owner mail credentials. It replaces the
// interactive OAuth callback of earlier iterations with a direct
// provisioning endpoint; the blob it stores is the same token JSON that
// flow produced.
type CredentialsHandler struct {
	store CredentialStore
	log   *logger.Logger
}

// NewCredentialsHandler creates a new CredentialsHandler.
func NewCredentialsHandler(store CredentialStore, log *logger.Logger) *CredentialsHandler {
	return &CredentialsHandler{store: store, log: log}
}

type credentialDTO struct {
	Owner  string `json:"owner"`
	Kind   string `json:"kind"` // "smtp" or "gmail"
	Secret string `json:"secret"`
}

// Put stores or replaces an owner's credential.
// POST /api/v1/credentials
func (h *CredentialsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var dto credentialDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if dto.Owner == "" || dto.Secret == "" {
		http.Error(w, "owner and secret are required", http.StatusBadRequest)
		return
	}

	kind := models.CredentialKind(dto.Kind)
	if kind != models.CredentialKindSMTP && kind != models.CredentialKindGmail {
		http.Error(w, "kind must be smtp or gmail", http.StatusBadRequest)
		return
	}

	cred := models.OwnerCredential{Owner: dto.Owner, Kind: kind, Secret: dto.Secret}
	if err := h.store.Put(r.Context(), cred); err != nil {
		h.log.Error().Err(err).Str("owner", dto.Owner).Msg("failed to store credential")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}
