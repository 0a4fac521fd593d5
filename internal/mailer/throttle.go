package mailer

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledTransport caps the global send rate across all concurrent
// dispatch runs. It is independent of the per-run inter-message delay:
// the delay paces a single run, the cap protects the upstream provider
// when several runs are in flight.
type ThrottledTransport struct {
	next    Transport
	limiter *rate.Limiter
}

// Throttled wraps a transport with a rate cap of rps messages per second.
func Throttled(next Transport, rps float64, burst int) *ThrottledTransport {
	return ThrottledWith(next, rate.NewLimiter(rate.Limit(rps), burst))
}

// ThrottledWith wraps a transport with an existing limiter so several
// transports can share one cap.
func ThrottledWith(next Transport, limiter *rate.Limiter) *ThrottledTransport {
	return &ThrottledTransport{next: next, limiter: limiter}
}

// Send blocks until the limiter admits the message, then delegates.
func (t *ThrottledTransport) Send(ctx context.Context, to, subject, body string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.next.Send(ctx, to, subject, body)
}
