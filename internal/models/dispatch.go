package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome represents the per-recipient result of a send attempt.
type Outcome string

// Outcome constants define the two terminal results a send attempt can have.
const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// JobStatus represents the lifecycle state of a scheduled dispatch job.
type JobStatus string

// JobStatus constants define the possible states of a scheduled job.
const (
	JobStatusPending       JobStatus = "PENDING"
	JobStatusRunning       JobStatus = "RUNNING"
	JobStatusCompleted     JobStatus = "COMPLETED"
	JobStatusFailedToStart JobStatus = "FAILED_TO_START"
	JobStatusCancelled     JobStatus = "CANCELLED"
)

// DispatchRequest describes one batch of personalized sends.
// It is immutable once accepted by the scheduler.
type DispatchRequest struct {
	Owner      string        `json:"owner"`
	Recipients []string      `json:"recipients"` // ordered, duplicates allowed
	Subject    string        `json:"subject"`
	Body       string        `json:"body"`
	Delay      time.Duration `json:"delay"` // inter-message delay, >= 0
}

// DeliveryLog is one immutable ledger entry: a single recipient's send outcome.
// Entries are append-only; they are never updated or deleted.
type DeliveryLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RunID     uuid.UUID `json:"run_id" gorm:"type:text;index"`
	Email     string    `json:"email"`
	Status    Outcome   `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CredentialKind selects which mail transport a stored credential drives.
type CredentialKind string

// CredentialKind constants define the supported transport credential kinds.
const (
	CredentialKindSMTP  CredentialKind = "smtp"
	CredentialKindGmail CredentialKind = "gmail"
)

// OwnerCredential stores one owner's mail-transport credential.
// For gmail it holds the OAuth token JSON captured at authorization time;
// for smtp it holds the account password.
type OwnerCredential struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Owner     string         `json:"owner" gorm:"uniqueIndex"`
	Kind      CredentialKind `json:"kind"`
	Secret    string         `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
