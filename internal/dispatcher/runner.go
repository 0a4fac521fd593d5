// Package dispatcher runs one throttled pass over a dispatch request's
// recipient list, writing one ledger entry per recipient.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/dispatch-os/internal/logger"
	"github.com/blockedby/dispatch-os/internal/mailer"
	"github.com/blockedby/dispatch-os/internal/models"
)

// TransportResolver resolves an owner identity into a mail transport.
// This allows mocking in tests.
type TransportResolver interface {
	Resolve(ctx context.Context, owner string) (mailer.Transport, error)
}

// Ledger records one delivery outcome per recipient.
type Ledger interface {
	Append(ctx context.Context, runID uuid.UUID, email string, status models.Outcome) error
}

// Runner executes dispatch runs.
type Runner struct {
	resolver TransportResolver
	ledger   Ledger
	log      *logger.Logger
}

// NewRunner creates a new Runner.
func NewRunner(resolver TransportResolver, ledger Ledger, log *logger.Logger) *Runner {
	return &Runner{
		resolver: resolver,
		ledger:   ledger,
		log:      log,
	}
}

// Run dispatches req to every recipient in input order.
//
// The transport is resolved once up front; a resolution failure aborts
// the run with zero ledger writes. After that, one send failure never
// aborts the run: each recipient gets exactly one send attempt and
// exactly one ledger entry, and the loop sleeps req.Delay between
// recipients. The delay after the last recipient is observed too,
// matching the reference behavior of the system this replaces.
//
// Cancelling ctx stops the run between recipients, never between a send
// and its ledger write.
func (r *Runner) Run(ctx context.Context, runID uuid.UUID, req models.DispatchRequest) error {
	transport, err := r.resolver.Resolve(ctx, req.Owner)
	if err != nil {
		r.log.Error().Err(err).Str("owner", req.Owner).Str("run_id", runID.String()).
			Msg("transport resolution failed, aborting run")
		return fmt.Errorf("resolve transport for %s: %w", req.Owner, err)
	}

	r.log.Info().
		Str("run_id", runID.String()).
		Str("owner", req.Owner).
		Int("recipients", len(req.Recipients)).
		Dur("delay", req.Delay).
		Msg("dispatch run started")

	for _, email := range req.Recipients {
		if err := ctx.Err(); err != nil {
			r.log.Warn().Str("run_id", runID.String()).Msg("dispatch run cancelled")
			return err
		}

		status := models.OutcomeSent
		if err := transport.Send(ctx, email, req.Subject, req.Body); err != nil {
			status = models.OutcomeFailed
			r.log.Warn().Err(err).Str("run_id", runID.String()).Str("email", email).
				Msg("send failed")
		}

		if err := r.ledger.Append(ctx, runID, email, status); err != nil {
			// Ledger durability is the whole point of the run record;
			// if the store is broken there is nothing sane to continue with.
			return fmt.Errorf("append ledger entry for %s: %w", email, err)
		}

		if !sleep(ctx, req.Delay) {
			r.log.Warn().Str("run_id", runID.String()).Msg("dispatch run cancelled during delay")
			return ctx.Err()
		}
	}

	r.log.Info().Str("run_id", runID.String()).Msg("dispatch run completed")
	return nil
}

// sleep waits for d or until ctx is cancelled. Returns false on cancel.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
