// Package mailer defines the outbound email port. Delivery is best-effort:
// callers log failures and never propagate them into the triggering
// operation.
package mailer

import "context"

// Mailer sends one email message.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
