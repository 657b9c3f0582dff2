// Package budget compares per-category spend against monthly budgets.
package budget

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// StatusSource is the slice of the store the aggregator reads.
type StatusSource interface {
	MonthlyBudgetStatus(ctx context.Context, userID int64, month core.Date) ([]core.BudgetStatusRow, error)
}

// CategoryStatus is one category's budget versus spend for a month.
type CategoryStatus struct {
	CategoryID     int64
	CategoryName   string
	Budget         core.Money
	Spent          core.Money
	Remaining      core.Money
	PercentageUsed decimal.Decimal
}

// Aggregator recomputes status from the store on every call. It keeps no
// running totals.
type Aggregator struct {
	store StatusSource
}

func NewAggregator(store StatusSource) *Aggregator {
	return &Aggregator{store: store}
}

// MonthlyStatus returns one entry per known category for the month containing date.
func (a *Aggregator) MonthlyStatus(ctx context.Context, userID int64, date core.Date) ([]CategoryStatus, error) {
	rows, err := a.store.MonthlyBudgetStatus(ctx, userID, date.MonthStart())
	if err != nil {
		return nil, fmt.Errorf("monthly budget status: %w", err)
	}
	out := make([]CategoryStatus, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromRow(row))
	}
	return out, nil
}

// CategoryStatus recomputes the month and returns the row for categoryID.
func (a *Aggregator) CategoryStatus(ctx context.Context, userID int64, date core.Date, categoryID int64) (CategoryStatus, error) {
	all, err := a.MonthlyStatus(ctx, userID, date)
	if err != nil {
		return CategoryStatus{}, err
	}
	for _, s := range all {
		if s.CategoryID == categoryID {
			return s, nil
		}
	}
	return CategoryStatus{}, fmt.Errorf("category %d: %w", categoryID, core.ErrNotFound)
}

// FromRow derives remaining and percentage used from a store row.
func FromRow(row core.BudgetStatusRow) CategoryStatus {
	return CategoryStatus{
		CategoryID:     row.CategoryID,
		CategoryName:   row.CategoryName,
		Budget:         row.Budget,
		Spent:          row.Spent,
		Remaining:      row.Budget.Sub(row.Spent),
		PercentageUsed: PercentageUsed(row.Spent, row.Budget),
	}
}

// PercentageUsed is spent/budget*100, or zero when no budget is set.
func PercentageUsed(spent, budget core.Money) decimal.Decimal {
	if budget.Cents <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(spent.Cents).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(budget.Cents))
}

// Totals sums budget and spend across statuses.
func Totals(statuses []CategoryStatus) (budget, spent core.Money) {
	for _, s := range statuses {
		budget = budget.Add(s.Budget)
		spent = spent.Add(s.Spent)
	}
	return budget, spent
}
