package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/dispatch-os/internal/mailer"
	"github.com/blockedby/dispatch-os/internal/models"
)

// Mock credential store for testing
type mockStore struct {
	cred *models.OwnerCredential
	err  error
}

func (m *mockStore) Get(ctx context.Context, owner string) (*models.OwnerCredential, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cred, nil
}

func TestResolver_Resolve_SMTP(t *testing.T) {
	store := &mockStore{cred: &models.OwnerCredential{
		Owner: "alice@example.com", Kind: models.CredentialKindSMTP, Secret: "pw",
	}}

	r := NewResolver(store, SMTPConfig{Host: "smtp.example.com", Port: 587}, nil)

	transport, err := r.Resolve(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.IsType(t, &mailer.SMTPTransport{}, transport)
}

func TestResolver_Resolve_Gmail(t *testing.T) {
	store := &mockStore{cred: &models.OwnerCredential{
		Owner: "alice@example.com",
		Kind:  models.CredentialKindGmail,
		Secret: `{"access_token":"tok","token_type":"Bearer","expiry":"2099-01-01T00:00:00Z"}`,
	}}

	r := NewResolver(store, SMTPConfig{}, nil)

	transport, err := r.Resolve(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.IsType(t, &mailer.GmailTransport{}, transport)
}

func TestResolver_Resolve_GmailUnparseableToken(t *testing.T) {
	store := &mockStore{cred: &models.OwnerCredential{
		Owner: "alice@example.com", Kind: models.CredentialKindGmail, Secret: "not json",
	}}

	r := NewResolver(store, SMTPConfig{}, nil)

	_, err := r.Resolve(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestResolver_Resolve_UnknownKind(t *testing.T) {
	store := &mockStore{cred: &models.OwnerCredential{
		Owner: "alice@example.com", Kind: "carrier-pigeon", Secret: "coo",
	}}

	r := NewResolver(store, SMTPConfig{}, nil)

	_, err := r.Resolve(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestResolver_Resolve_MissingCredential(t *testing.T) {
	store := &mockStore{err: ErrNotAuthenticated}

	r := NewResolver(store, SMTPConfig{}, nil)

	_, err := r.Resolve(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestResolver_Resolve_AppliesWrap(t *testing.T) {
	store := &mockStore{cred: &models.OwnerCredential{
		Owner: "alice@example.com", Kind: models.CredentialKindSMTP, Secret: "pw",
	}}

	wrapped := false
	wrap := func(next mailer.Transport) mailer.Transport {
		wrapped = true
		return next
	}

	r := NewResolver(store, SMTPConfig{Host: "smtp.example.com", Port: 587}, wrap)

	_, err := r.Resolve(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, wrapped, "wrap should decorate the resolved transport")
}
