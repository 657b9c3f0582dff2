package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
)

const publishTimeout = 5 * time.Second

// Message is anything the client can put on a queue.
type Message interface {
	ToJSON() ([]byte, error)
	LogAttrs() []any
}

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queues       []string

	// amqp091 channels are not safe for concurrent publishes.
	mu sync.Mutex
}

// NewClient dials the broker and declares a direct exchange with one durable
// queue per name, bound with the queue name as routing key.
func NewClient(url, exchangeName string, queues ...string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queues:       queues,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range c.queues {
		if queue == "" {
			continue
		}
		if _, err := c.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := c.channel.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

// Publish sends msg as persistent JSON to queue.
func (c *Client) Publish(ctx context.Context, queue string, msg Message) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		queue,          // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published message",
		append([]any{"exchange", c.exchangeName, applog.FieldQueue, queue}, msg.LogAttrs()...)...)

	return nil
}

// Handler processes one raw message body.
type Handler func(ctx context.Context, body []byte) error

// ErrMalformed marks a message that can never be processed; it is dropped.
var ErrMalformed = errors.New("malformed message")

// Consume delivers messages from queue to handler until ctx is cancelled.
// Failed messages are requeued once, then dropped.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	if err := c.channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := c.channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming messages", applog.FieldQueue, queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("message channel closed")
			}
			c.handle(ctx, queue, delivery, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, queue string, delivery amqp091.Delivery, handler Handler) {
	err := handler(ctx, delivery.Body)
	switch {
	case err == nil:
		metrics.MessagesProcessed.WithLabelValues(queue, "ok").Inc()
		_ = delivery.Ack(false)
	case errors.Is(err, ErrMalformed):
		metrics.MessagesProcessed.WithLabelValues(queue, "malformed").Inc()
		slog.ErrorContext(ctx, "Dropping malformed message", applog.FieldQueue, queue, "error", err)
		_ = delivery.Nack(false, false)
	default:
		requeue := !delivery.Redelivered
		metrics.MessagesProcessed.WithLabelValues(queue, "failed").Inc()
		slog.ErrorContext(ctx, "Failed to handle message",
			applog.FieldQueue, queue,
			"error", err,
			"requeue", requeue)
		_ = delivery.Nack(false, requeue)
	}
}

// ConsumeAlerts decodes AlertMessage bodies for handler.
func (c *Client) ConsumeAlerts(ctx context.Context, queue string, handler func(context.Context, *AlertMessage) error) error {
	return c.Consume(ctx, queue, func(ctx context.Context, body []byte) error {
		msg, err := AlertMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return handler(ctx, msg)
	})
}

// ConsumeExpenseRecorded decodes ExpenseRecordedMessage bodies for handler.
func (c *Client) ConsumeExpenseRecorded(ctx context.Context, queue string, handler func(context.Context, *ExpenseRecordedMessage) error) error {
	return c.Consume(ctx, queue, func(ctx context.Context, body []byte) error {
		msg, err := ExpenseRecordedMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return handler(ctx, msg)
	})
}

// Healthy reports whether the connection is still open.
func (c *Client) Healthy() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
