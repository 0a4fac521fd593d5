// Package ledger persists per-recipient delivery outcomes and serves
// aggregate statistics over them.
//
// Entries are append-only. Timestamps are stored in UTC and the per-day
// breakdown groups by the UTC calendar date; mixing zones across entries
// is the main correctness risk, so every write path normalizes to UTC.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blockedby/dispatch-os/internal/models"
)

// DayCount is the number of ledger entries recorded on one UTC calendar day.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// StatsSnapshot is a consistent point-in-time aggregate over the ledger.
// It is derived on demand and never cached.
type StatsSnapshot struct {
	Total  int        `json:"total"`
	Sent   int        `json:"sent"`
	Failed int        `json:"failed"`
	Daily  []DayCount `json:"daily"`
}

// Repository provides access to the delivery ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new ledger repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append durably records one delivery outcome. The write is synchronous:
// when Append returns nil the entry is committed, so a crash between sends
// loses at most the in-flight send.
func (r *Repository) Append(ctx context.Context, runID uuid.UUID, email string, status models.Outcome) error {
	entry := models.DeliveryLog{
		RunID:     runID,
		Email:     email,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("append delivery log: %w", err)
	}

	return nil
}

// Snapshot computes aggregate statistics in a single read transaction so
// the totals and the per-day breakdown always describe the same set of
// entries.
func (r *Repository) Snapshot(ctx context.Context) (*StatsSnapshot, error) {
	snap := &StatsSnapshot{Daily: []DayCount{}}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := tx.Raw(`
			SELECT
				COUNT(*) AS total,
				COUNT(CASE WHEN status = 'sent' THEN 1 END) AS sent,
				COUNT(CASE WHEN status = 'failed' THEN 1 END) AS failed
			FROM delivery_logs
		`).Row()
		if err := row.Scan(&snap.Total, &snap.Sent, &snap.Failed); err != nil {
			return fmt.Errorf("scan totals: %w", err)
		}

		rows, err := tx.Raw(`
			SELECT date(created_at) AS day, COUNT(*) AS count
			FROM delivery_logs
			GROUP BY date(created_at)
			ORDER BY day
		`).Rows()
		if err != nil {
			return fmt.Errorf("query daily counts: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var dc DayCount
			if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
				return fmt.Errorf("scan daily count: %w", err)
			}
			snap.Daily = append(snap.Daily, dc)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	return snap, nil
}

// EntriesByRun returns the entries written by a single dispatch run in
// insertion order. Diagnostic surface, not part of the stats path.
func (r *Repository) EntriesByRun(ctx context.Context, runID uuid.UUID) ([]models.DeliveryLog, error) {
	var entries []models.DeliveryLog

	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("get entries by run: %w", err)
	}

	return entries, nil
}
