// Package credentials stores owner mail credentials and resolves them
// into ready-to-use transports.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/blockedby/dispatch-os/internal/models"
)

// ErrNotAuthenticated is returned when an owner has no usable stored
// credential. It aborts a dispatch run before any send is attempted.
var ErrNotAuthenticated = errors.New("owner not authenticated")

// Store persists owner credentials.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new credential store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Put inserts or replaces the credential for an owner.
func (s *Store) Put(ctx context.Context, cred models.OwnerCredential) error {
	err := s.db.WithContext(ctx).
		Where("owner = ?", cred.Owner).
		Assign(map[string]any{"kind": cred.Kind, "secret": cred.Secret}).
		FirstOrCreate(&models.OwnerCredential{}, models.OwnerCredential{Owner: cred.Owner}).Error
	if err != nil {
		return fmt.Errorf("put credential: %w", err)
	}

	return nil
}

// Get returns the stored credential for an owner.
// Returns ErrNotAuthenticated when none exists.
func (s *Store) Get(ctx context.Context, owner string) (*models.OwnerCredential, error) {
	var cred models.OwnerCredential

	err := s.db.WithContext(ctx).Where("owner = ?", owner).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}

	return &cred, nil
}
