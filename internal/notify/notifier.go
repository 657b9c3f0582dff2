// Package notify delivers rendered alert and summary text to a recipient.
// Delivery is best effort: adapters report false and never return errors.
package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers body to the recipient address and reports success.
type Notifier interface {
	Deliver(ctx context.Context, to, subject, body string) bool
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, to, subject, body string) bool

func (f Func) Deliver(ctx context.Context, to, subject, body string) bool {
	return f(ctx, to, subject, body)
}

// Nop never delivers.
type Nop struct{}

func (Nop) Deliver(ctx context.Context, to, subject, _ string) bool {
	slog.DebugContext(ctx, "Notifications disabled, dropping message", "to", to, "subject", subject)
	return false
}

// Multi tries each notifier in order and stops at the first success.
type Multi []Notifier

func (m Multi) Deliver(ctx context.Context, to, subject, body string) bool {
	for _, n := range m {
		if n != nil && n.Deliver(ctx, to, subject, body) {
			return true
		}
	}
	return false
}
