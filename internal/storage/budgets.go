package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

func budgetKey(b core.NewBudget) string {
	return strconv.FormatInt(b.UserID, 10) + "/" + strconv.FormatInt(b.CategoryID, 10) + "/" + b.Month.String()
}

// UpsertBudget inserts the budget or overwrites the amount for its
// (user, category, month) key. Concurrent writers are last-write-wins.
func (r *Repository) UpsertBudget(ctx context.Context, b core.NewBudget) (core.Budget, error) {
	b.Month = b.Month.MonthStart()
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	var id int64
	err := r.withRetry(ctx, op{name: "upsert budget", entity: "budget", key: budgetKey(b)}, func(ctx context.Context) error {
		var err error
		id, err = r.insertReturningID(ctx, r.db, `
INSERT INTO budgets (user_id, category_id, amount_cents, month) VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, category_id, month) DO UPDATE SET amount_cents = excluded.amount_cents
RETURNING id`, b.UserID, b.CategoryID, b.Amount.Cents, b.Month.String())
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget set",
		"id", id,
		applog.FieldUserID, b.UserID,
		"category_id", b.CategoryID,
		applog.FieldMonth, b.Month.String(),
		applog.FieldAmountCents, b.Amount.Cents)

	return core.Budget{ID: id, UserID: b.UserID, CategoryID: b.CategoryID, Amount: b.Amount, Month: b.Month}, nil
}

// CreateBudget is the strict insert path: an existing key is a *core.DuplicateKeyError.
func (r *Repository) CreateBudget(ctx context.Context, b core.NewBudget) (core.Budget, error) {
	b.Month = b.Month.MonthStart()
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	var id int64
	err := r.withRetry(ctx, op{name: "create budget", entity: "budget", key: budgetKey(b)}, func(ctx context.Context) error {
		var err error
		id, err = r.insertReturningID(ctx, r.db,
			`INSERT INTO budgets (user_id, category_id, amount_cents, month) VALUES (?, ?, ?, ?) RETURNING id`,
			b.UserID, b.CategoryID, b.Amount.Cents, b.Month.String())
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{ID: id, UserID: b.UserID, CategoryID: b.CategoryID, Amount: b.Amount, Month: b.Month}, nil
}

// ListBudgets returns the budgets a user set for the month of month.
func (r *Repository) ListBudgets(ctx context.Context, userID int64, month core.Date) ([]core.Budget, error) {
	month = month.MonthStart()
	var out []core.Budget
	err := r.query(ctx, op{name: "list budgets", entity: "budget"}, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, r.rebind(`
SELECT id, category_id, amount_cents FROM budgets
WHERE user_id = ? AND month = ?
ORDER BY category_id`), userID, month.String())
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			b := core.Budget{UserID: userID, Month: month}
			if err := rows.Scan(&b.ID, &b.CategoryID, &b.Amount.Cents); err != nil {
				return fmt.Errorf("scan budget: %w", err)
			}
			out = append(out, b)
		}
		return rows.Err()
	})
	return out, err
}

const budgetStatusSQL = `
SELECT c.id, c.name,
       COALESCE(b.amount_cents, 0) AS budget_cents,
       CAST(COALESCE(SUM(e.amount_cents), 0) AS BIGINT) AS spent_cents
FROM categories c
LEFT JOIN budgets b
       ON b.category_id = c.id AND b.user_id = ? AND b.month = ?
LEFT JOIN expenses e
       ON e.category_id = c.id AND e.user_id = ? AND e.date >= ? AND e.date < ?
GROUP BY c.id, c.name, b.amount_cents
ORDER BY c.id`

// MonthlyBudgetStatus returns exactly one row per known category for the
// calendar month containing month. Missing budgets and spend read as zero.
func (r *Repository) MonthlyBudgetStatus(ctx context.Context, userID int64, month core.Date) ([]core.BudgetStatusRow, error) {
	start := month.MonthStart()
	end := start.NextMonth()

	var out []core.BudgetStatusRow
	err := r.query(ctx, op{name: "monthly budget status", entity: "budget"}, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, r.rebind(budgetStatusSQL),
			userID, start.String(), userID, start.String(), end.String())
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var row core.BudgetStatusRow
			if err := rows.Scan(&row.CategoryID, &row.CategoryName, &row.Budget.Cents, &row.Spent.Cents); err != nil {
				return fmt.Errorf("scan budget status: %w", err)
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}
