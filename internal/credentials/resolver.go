package credentials

import (
	"context"
	"fmt"

	"github.com/blockedby/dispatch-os/internal/mailer"
	"github.com/blockedby/dispatch-os/internal/models"
)

// SMTPConfig carries the server settings shared by all smtp credentials.
// Only the password is per-owner; the owner address doubles as the
// account user and the From header.
type SMTPConfig struct {
	Host string
	Port int
}

// credentialStore is the subset of Store the resolver needs.
// Split out so tests can substitute an in-memory implementation.
type credentialStore interface {
	Get(ctx context.Context, owner string) (*models.OwnerCredential, error)
}

// Resolver turns an owner identity into a ready-to-use mail transport.
type Resolver struct {
	store credentialStore
	smtp  SMTPConfig
	wrap  func(mailer.Transport) mailer.Transport
}

// NewResolver creates a resolver. wrap, when non-nil, decorates every
// resolved transport; the service uses it to apply a shared rate cap.
func NewResolver(store credentialStore, smtp SMTPConfig, wrap func(mailer.Transport) mailer.Transport) *Resolver {
	return &Resolver{store: store, smtp: smtp, wrap: wrap}
}

// Resolve looks up the owner's stored credential and builds the matching
// transport. Resolution failure means a configuration or auth problem,
// not a delivery problem: callers abort the whole run without writing
// any ledger entries.
func (r *Resolver) Resolve(ctx context.Context, owner string) (mailer.Transport, error) {
	cred, err := r.store.Get(ctx, owner)
	if err != nil {
		return nil, err
	}

	var transport mailer.Transport

	switch cred.Kind {
	case models.CredentialKindGmail:
		transport, err = mailer.NewGmailTransport(ctx, []byte(cred.Secret))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
		}
	case models.CredentialKindSMTP:
		transport = mailer.NewSMTPTransport(r.smtp.Host, r.smtp.Port, cred.Owner, cred.Secret, cred.Owner)
	default:
		return nil, fmt.Errorf("%w: unknown credential kind %q", ErrNotAuthenticated, cred.Kind)
	}

	if r.wrap != nil {
		transport = r.wrap(transport)
	}

	return transport, nil
}
