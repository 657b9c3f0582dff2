package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/budget"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/notify"
)

// ExpenseInput is a new expense as entered by a user.
type ExpenseInput struct {
	Category    string
	Amount      core.Money
	Description string
	Date        core.Date
}

func (in ExpenseInput) validate() error {
	if strings.TrimSpace(in.Category) == "" {
		return core.ErrEmptyCategory
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	return in.Date.Validate()
}

// BudgetInput sets a category budget for the month containing Month.
type BudgetInput struct {
	Category string
	Amount   core.Money
	Month    core.Date
}

// RecordResult is returned by RecordExpense. Alert is nil when no
// threshold was reached.
type RecordResult struct {
	ExpenseID int64
	Alert     *AlertOutcome
}

// ExpenseServiceOptions configures an ExpenseService.
type ExpenseServiceOptions struct {
	Notifier    notify.Notifier
	Threshold   float64
	Publisher   Publisher
	ExportQueue string
	// CategoryCacheTTL bounds how long a resolved category is reused.
	CategoryCacheTTL time.Duration
}

// ExpenseService records expenses and budgets and runs the alert check
// after each expense.
type ExpenseService struct {
	store       Store
	aggregator  *budget.Aggregator
	trigger     *alertTrigger
	publisher   Publisher
	exportQueue string
	categories  *cache.LRUCache[core.Category]
}

func NewExpenseService(store Store, opts ExpenseServiceOptions) *ExpenseService {
	ttl := opts.CategoryCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ExpenseService{
		store:       store,
		aggregator:  budget.NewAggregator(store),
		trigger:     newAlertTrigger(store, opts.Notifier, opts.Threshold),
		publisher:   opts.Publisher,
		exportQueue: opts.ExportQueue,
		categories:  cache.NewLRUCache[core.Category](128, ttl),
	}
}

// Categories exposes the category cache so a cache.Manager can sweep it.
func (s *ExpenseService) Categories() cache.Cleaner {
	return s.categories
}

// RecordExpense stores the expense, announces it for export and then
// checks the category's budget threshold for the expense's month.
func (s *ExpenseService) RecordExpense(ctx context.Context, userID int64, in ExpenseInput) (RecordResult, error) {
	if err := in.validate(); err != nil {
		return RecordResult{}, err
	}

	user, err := s.user(ctx, userID)
	if err != nil {
		return RecordResult{}, err
	}

	category, err := s.category(ctx, in.Category)
	if err != nil {
		return RecordResult{}, err
	}

	id, err := s.store.InsertExpense(ctx, core.NewExpense{
		UserID:      user.ID,
		CategoryID:  category.ID,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
	})
	if err != nil {
		return RecordResult{}, fmt.Errorf("insert expense: %w", err)
	}
	metrics.ExpensesRecorded.Inc()

	s.publishRecorded(ctx, amqp.NewExpenseRecordedMessage(
		id, user.ID, user.Username, category.Name, in.Amount.Cents, strings.TrimSpace(in.Description), in.Date.String()))

	return RecordResult{
		ExpenseID: id,
		Alert:     s.trigger.check(ctx, user, category, in.Date),
	}, nil
}

func (s *ExpenseService) user(ctx context.Context, userID int64) (core.User, error) {
	if userID <= 0 {
		return core.User{}, core.ErrInvalidUser
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrInvalidUser
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// category resolves name against the seeded set. Names match exactly and
// unknown names are rejected, never created.
func (s *ExpenseService) category(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if c, ok := s.categories.Get(name); ok {
		return c, nil
	}
	c, err := s.store.GetCategoryByName(ctx, name)
	if errors.Is(err, core.ErrNotFound) {
		return core.Category{}, core.ErrUnknownCategory
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("resolve category: %w", err)
	}
	s.categories.Set(name, c)
	return c, nil
}

// publishRecorded is best effort; the expense is already stored.
func (s *ExpenseService) publishRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) {
	if s.publisher == nil || s.exportQueue == "" {
		return
	}
	if err := s.publisher.Publish(ctx, s.exportQueue, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense recorded message",
			applog.FieldExpenseID, msg.ExpenseID,
			applog.FieldQueue, s.exportQueue,
			"error", err)
	}
}

// ListExpenses returns the user's expenses between start and end inclusive.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID int64, start, end core.Date) ([]core.ExpenseView, error) {
	if end.Before(start.Time) {
		return nil, core.ErrInvalidRange
	}
	return s.store.ListExpenses(ctx, userID, start, end)
}

// ListCategories returns every known category.
func (s *ExpenseService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// SetBudget creates or overwrites the budget for the category and month.
func (s *ExpenseService) SetBudget(ctx context.Context, userID int64, in BudgetInput) (core.Budget, error) {
	nb, err := s.newBudget(ctx, userID, in)
	if err != nil {
		return core.Budget{}, err
	}
	return s.store.UpsertBudget(ctx, nb)
}

// CreateBudget inserts a budget and fails if one already exists for the key.
func (s *ExpenseService) CreateBudget(ctx context.Context, userID int64, in BudgetInput) (core.Budget, error) {
	nb, err := s.newBudget(ctx, userID, in)
	if err != nil {
		return core.Budget{}, err
	}
	return s.store.CreateBudget(ctx, nb)
}

func (s *ExpenseService) newBudget(ctx context.Context, userID int64, in BudgetInput) (core.NewBudget, error) {
	if strings.TrimSpace(in.Category) == "" {
		return core.NewBudget{}, core.ErrEmptyCategory
	}
	if in.Amount.Cents < 0 {
		return core.NewBudget{}, core.ErrNegativeBudget
	}
	if err := in.Month.Validate(); err != nil {
		return core.NewBudget{}, core.ErrInvalidMonth
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return core.NewBudget{}, err
	}
	category, err := s.category(ctx, in.Category)
	if err != nil {
		return core.NewBudget{}, err
	}
	return core.NewBudget{
		UserID:     user.ID,
		CategoryID: category.ID,
		Amount:     in.Amount,
		Month:      in.Month.MonthStart(),
	}, nil
}

// ListBudgets returns the user's budgets for the month containing month.
func (s *ExpenseService) ListBudgets(ctx context.Context, userID int64, month core.Date) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, userID, month.MonthStart())
}

// BudgetStatus returns one status per known category for the month.
func (s *ExpenseService) BudgetStatus(ctx context.Context, userID int64, month core.Date) ([]budget.CategoryStatus, error) {
	return s.aggregator.MonthlyStatus(ctx, userID, month)
}

// CategoryTotal is the spend for one category within a report.
type CategoryTotal struct {
	Category string
	Total    core.Money
}

// DailyTotal is the spend on one day within a report.
type DailyTotal struct {
	Date  core.Date
	Total core.Money
}

// Report summarizes a date range and the budget status of the month
// containing its end date.
type Report struct {
	Start, End core.Date
	Expenses   []core.ExpenseView
	Total      core.Money
	ByCategory []CategoryTotal
	Daily      []DailyTotal
	Month      core.Date
	Budgets    []budget.CategoryStatus
}

func (s *ExpenseService) Report(ctx context.Context, userID int64, start, end core.Date) (Report, error) {
	expenses, err := s.ListExpenses(ctx, userID, start, end)
	if err != nil {
		return Report{}, fmt.Errorf("list expenses: %w", err)
	}

	statuses, err := s.aggregator.MonthlyStatus(ctx, userID, end)
	if err != nil {
		return Report{}, err
	}

	r := Report{
		Start:    start,
		End:      end,
		Expenses: expenses,
		Month:    end.MonthStart(),
		Budgets:  statuses,
	}

	byCategory := make(map[string]core.Money)
	byDay := make(map[string]*DailyTotal)
	for _, e := range expenses {
		r.Total = r.Total.Add(e.Amount)
		byCategory[e.CategoryName] = byCategory[e.CategoryName].Add(e.Amount)

		key := e.Date.String()
		d, ok := byDay[key]
		if !ok {
			d = &DailyTotal{Date: e.Date}
			byDay[key] = d
		}
		d.Total = d.Total.Add(e.Amount)
	}

	for name, total := range byCategory {
		r.ByCategory = append(r.ByCategory, CategoryTotal{Category: name, Total: total})
	}
	sort.Slice(r.ByCategory, func(i, j int) bool {
		if r.ByCategory[i].Total.Cents != r.ByCategory[j].Total.Cents {
			return r.ByCategory[i].Total.Cents > r.ByCategory[j].Total.Cents
		}
		return r.ByCategory[i].Category < r.ByCategory[j].Category
	})

	for _, d := range byDay {
		r.Daily = append(r.Daily, *d)
	}
	sort.Slice(r.Daily, func(i, j int) bool { return r.Daily[i].Date.Before(r.Daily[j].Date.Time) })

	return r, nil
}
