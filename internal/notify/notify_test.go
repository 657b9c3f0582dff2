package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/wneessen/go-mail"

	"expensetracker/internal/amqp"
)

func TestMultiStopsAtFirstSuccess(t *testing.T) {
	var calls []string
	record := func(name string, ok bool) Notifier {
		return Func(func(context.Context, string, string, string) bool {
			calls = append(calls, name)
			return ok
		})
	}

	m := Multi{record("a", false), nil, record("b", true), record("c", true)}
	if !m.Deliver(context.Background(), "x@example.com", "s", "b") {
		t.Fatal("expected delivery")
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Fatalf("calls = %v, want [a b]", calls)
	}

	if (Multi{}).Deliver(context.Background(), "x@example.com", "s", "b") {
		t.Fatal("empty Multi should not deliver")
	}
	if (Nop{}).Deliver(context.Background(), "x@example.com", "s", "b") {
		t.Fatal("Nop should not deliver")
	}
}

func TestSMTPUnconfigured(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "smtp.example.com"})
	called := false
	s.send = func(context.Context, *mail.Msg) error {
		called = true
		return nil
	}

	if s.Deliver(context.Background(), "alice@example.com", "subject", "body") {
		t.Fatal("expected false without credentials")
	}
	if called {
		t.Fatal("send must not be attempted without credentials")
	}
}

func TestSMTPDeliver(t *testing.T) {
	cfg := SMTPConfig{Host: "smtp.example.com", Username: "bot@example.com", Password: "secret"}

	tests := []struct {
		name    string
		to      string
		sendErr error
		want    bool
	}{
		{"sent", "alice@example.com", nil, true},
		{"transport failure", "alice@example.com", errors.New("connection refused"), false},
		{"bad recipient", "not an address", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSMTP(cfg)
			var sent *mail.Msg
			s.send = func(_ context.Context, msg *mail.Msg) error {
				sent = msg
				return tt.sendErr
			}

			got := s.Deliver(context.Background(), tt.to, "Budget Alert - Food", "body")
			if got != tt.want {
				t.Fatalf("Deliver() = %v, want %v", got, tt.want)
			}
			if tt.sendErr == nil && tt.want && sent == nil {
				t.Fatal("expected message to be handed to transport")
			}
		})
	}
}

func TestNewSMTPDefaults(t *testing.T) {
	s := NewSMTP(SMTPConfig{Username: "bot@example.com", Password: "x"})
	if s.cfg.Port != 587 {
		t.Errorf("port = %d, want 587", s.cfg.Port)
	}
	if s.cfg.From != "bot@example.com" {
		t.Errorf("from = %q, want username", s.cfg.From)
	}
	if s.cfg.Timeout == 0 {
		t.Error("timeout should default")
	}
}

type fakePublisher struct {
	queue string
	msg   amqp.Message
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, queue string, msg amqp.Message) error {
	f.queue = queue
	f.msg = msg
	return f.err
}

func TestQueueDeliver(t *testing.T) {
	pub := &fakePublisher{}
	q := NewQueue(pub, "alerts", "")

	if !q.Deliver(context.Background(), "alice@example.com", "Budget Alert - Food", "body") {
		t.Fatal("expected delivery")
	}
	if pub.queue != "alerts" {
		t.Fatalf("queue = %q", pub.queue)
	}
	msg, ok := pub.msg.(*amqp.AlertMessage)
	if !ok {
		t.Fatalf("published %T, want *amqp.AlertMessage", pub.msg)
	}
	if msg.Kind != amqp.KindBudgetAlert || msg.Recipient != "alice@example.com" || msg.Body != "body" {
		t.Fatalf("unexpected message %+v", msg)
	}

	pub.err = errors.New("broker down")
	if q.Deliver(context.Background(), "alice@example.com", "s", "b") {
		t.Fatal("expected false when publish fails")
	}
}
