package notify

import (
	"context"
	"log/slog"

	"expensetracker/internal/amqp"
	applog "expensetracker/internal/log"
)

// Publisher is the part of the AMQP client the queue notifier needs.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg amqp.Message) error
}

// Queue hands alerts to the alert worker instead of sending mail inline.
// Delivered means the broker accepted the message.
type Queue struct {
	publisher Publisher
	queue     string
	kind      string
}

func NewQueue(publisher Publisher, queue, kind string) *Queue {
	if kind == "" {
		kind = amqp.KindBudgetAlert
	}
	return &Queue{publisher: publisher, queue: queue, kind: kind}
}

func (q *Queue) Deliver(ctx context.Context, to, subject, body string) bool {
	msg := amqp.NewAlertMessage(q.kind, 0, to, subject, body)
	if err := q.publisher.Publish(ctx, q.queue, msg); err != nil {
		slog.WarnContext(ctx, "Failed to enqueue notification",
			applog.FieldQueue, q.queue,
			"to", to,
			"subject", subject,
			"error", err)
		return false
	}
	return true
}
