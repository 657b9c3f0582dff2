package core

import (
	"strings"
	"time"
)

// DefaultCategories is the seed set created when a store is initialized.
var DefaultCategories = []string{"Food", "Transport", "Entertainment", "Bills", "Shopping", "Others"}

const maxDescriptionLen = 200

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID       int64
		Username string
		Email    string
	}

	Category struct {
		ID   int64
		Name string
	}

	// Expense is an immutable spend entry owned by a user.
	Expense struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Amount      Money
		Description string
		Date        Date
	}

	// ExpenseView is an Expense joined with its category name.
	ExpenseView struct {
		Expense
		CategoryName string
	}

	// Budget is keyed by (UserID, CategoryID, Month); Month is always a month start.
	Budget struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Amount     Money
		Month      Date
	}

	Group struct {
		ID        int64
		Name      string
		CreatedBy int64
	}

	GroupExpense struct {
		ID        int64
		GroupID   int64
		ExpenseID int64
		PaidBy    int64
	}

	// GroupExpenseView is a group expense joined with category and payer names.
	GroupExpenseView struct {
		ExpenseView
		GroupID        int64
		PaidBy         int64
		PaidByUsername string
	}

	// BudgetStatusRow is one category's budget and spend for a month, as read from the store.
	BudgetStatusRow struct {
		CategoryID   int64
		CategoryName string
		Budget       Money
		Spent        Money
	}
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewExpense is the input for inserting an expense.
type NewExpense struct {
	UserID      int64
	CategoryID  int64
	Amount      Money
	Description string
	Date        Date
}

func (e NewExpense) Validate() error {
	if e.UserID <= 0 {
		return ErrInvalidUser
	}
	if e.CategoryID <= 0 {
		return ErrEmptyCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return e.Date.Validate()
}

// NewBudget is the input for setting a budget.
type NewBudget struct {
	UserID     int64
	CategoryID int64
	Amount     Money
	Month      Date
}

func (b NewBudget) Validate() error {
	if b.UserID <= 0 {
		return ErrInvalidUser
	}
	if b.CategoryID <= 0 {
		return ErrEmptyCategory
	}
	if b.Amount.Cents < 0 {
		return ErrNegativeBudget
	}
	return b.Month.Validate()
}

// ValidateUsername trims and checks a username for signup.
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrEmptyUsername
	}
	if len(username) > 64 {
		return "", &ValidationError{Field: "username", Reason: "too long (max 64 characters)"}
	}
	return username, nil
}

// ValidateEmail does a shallow shape check; delivery is the real test.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmptyEmail
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return "", &ValidationError{Field: "email", Reason: "malformed address"}
	}
	return email, nil
}
