// Package mailer implements the outgoing mail transports.
package mailer

import "context"

// Transport sends one message to one address. Implementations are
// synchronous and may fail; the dispatch loop treats every failure
// uniformly as a failed delivery for that recipient.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, to, subject, body string) error

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}
