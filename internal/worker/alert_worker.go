package worker

import (
	"context"
	"errors"
	"log/slog"

	"expensetracker/internal/amqp"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/notify"
)

// ErrUndelivered is returned when the notifier reports a failed delivery.
// The consumer requeues the message once.
var ErrUndelivered = errors.New("notification not delivered")

// AlertWorker delivers queued alert and summary messages.
type AlertWorker struct {
	notifier notify.Notifier
}

func NewAlertWorker(notifier notify.Notifier) *AlertWorker {
	return &AlertWorker{notifier: notifier}
}

func (w *AlertWorker) HandleAlert(ctx context.Context, msg *amqp.AlertMessage) error {
	kind := "alert"
	if msg.Kind == amqp.KindMonthlySummary {
		kind = "summary"
	}

	delivered := w.notifier.Deliver(ctx, msg.Recipient, msg.Subject, msg.Body)
	metrics.Deliveries.WithLabelValues(kind, metrics.DeliveryResult(delivered)).Inc()

	if !delivered {
		slog.WarnContext(ctx, "Alert delivery failed",
			applog.FieldMessageID, msg.ID,
			"kind", msg.Kind,
			applog.FieldUserID, msg.UserID)
		return ErrUndelivered
	}

	slog.InfoContext(ctx, "Alert delivered",
		applog.FieldMessageID, msg.ID,
		"kind", msg.Kind,
		applog.FieldUserID, msg.UserID)
	return nil
}
