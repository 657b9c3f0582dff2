package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	applog "expensetracker/internal/log"
)

const (
	KindBudgetAlert    = "budget_alert"
	KindMonthlySummary = "monthly_summary"
)

// AlertMessage carries a rendered notification to the alert worker.
type AlertMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	UserID    int64     `json:"user_id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

func NewAlertMessage(kind string, userID int64, recipient, subject, body string) *AlertMessage {
	return &AlertMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Timestamp: time.Now(),
	}
}

func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *AlertMessage) LogAttrs() []any {
	return []any{applog.FieldMessageID, m.ID, "kind", m.Kind, applog.FieldUserID, m.UserID, "subject", m.Subject}
}

// AlertMessageFromJSON decodes and checks an alert message.
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Recipient == "" || msg.Subject == "" {
		return nil, errors.New("alert message needs recipient and subject")
	}
	return &msg, nil
}

// ExpenseRecordedMessage announces a stored expense for downstream export.
type ExpenseRecordedMessage struct {
	ID          string    `json:"id"`
	ExpenseID   int64     `json:"expense_id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	GroupID     int64     `json:"group_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseRecordedMessage(expenseID, userID int64, username, category string, amountCents int64, description, date string) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		ID:          uuid.NewString(),
		ExpenseID:   expenseID,
		UserID:      userID,
		Username:    username,
		Category:    category,
		AmountCents: amountCents,
		Description: description,
		Date:        date,
		Timestamp:   time.Now(),
	}
}

func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ExpenseRecordedMessage) LogAttrs() []any {
	return []any{applog.FieldMessageID, m.ID, applog.FieldExpenseID, m.ExpenseID, applog.FieldUserID, m.UserID}
}

// ExpenseRecordedMessageFromJSON decodes and checks an expense message.
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ExpenseID <= 0 {
		return nil, errors.New("expense message needs an expense id")
	}
	return &msg, nil
}
