package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/dispatch-os/internal/ledger"
	"github.com/blockedby/dispatch-os/internal/models"
	"github.com/blockedby/dispatch-os/internal/scheduler"
)

// DispatchScheduler defines the scheduler control surface the web layer
// consumes.
type DispatchScheduler interface {
	ScheduleNow(req models.DispatchRequest) (*scheduler.Handle, error)
	ScheduleAt(req models.DispatchRequest, fireAt time.Time) (uuid.UUID, error)
	Cancel(id uuid.UUID) bool
	ListPending() []scheduler.JobInfo
}

// LedgerRepository defines interface for ledger stats access
type LedgerRepository interface {
	Snapshot(ctx context.Context) (*ledger.StatsSnapshot, error)
}

// CredentialStore defines interface for credential provisioning
type CredentialStore interface {
	Put(ctx context.Context, cred models.OwnerCredential) error
}

// SheetSource resolves a Google Sheets URL into an address list.
type SheetSource interface {
	Fetch(ctx context.Context, sheetURL string) ([]string, error)
}
