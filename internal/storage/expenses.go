package storage

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

const insertExpenseSQL = `INSERT INTO expenses (user_id, category_id, amount_cents, description, date)
VALUES (?, ?, ?, ?, ?) RETURNING id`

// InsertExpense validates and stores an expense. Invalid input never reaches the store.
func (r *Repository) InsertExpense(ctx context.Context, e core.NewExpense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := r.withRetry(ctx, op{name: "insert expense", entity: "expense"}, func(ctx context.Context) error {
		var err error
		id, err = r.insertReturningID(ctx, r.db, insertExpenseSQL,
			e.UserID, e.CategoryID, e.Amount.Cents, e.Description, e.Date.String())
		return err
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		applog.FieldUserID, e.UserID,
		"category_id", e.CategoryID,
		applog.FieldAmountCents, e.Amount.Cents,
		"date", e.Date.String())

	return id, nil
}

// ListExpenses returns a user's expenses with start <= date <= end, oldest first.
func (r *Repository) ListExpenses(ctx context.Context, userID int64, start, end core.Date) ([]core.ExpenseView, error) {
	var out []core.ExpenseView
	err := r.query(ctx, op{name: "list expenses", entity: "expense"}, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, r.rebind(`
SELECT e.id, e.user_id, e.category_id, e.amount_cents, e.description, e.date, c.name
FROM expenses e
JOIN categories c ON c.id = e.category_id
WHERE e.user_id = ? AND e.date >= ? AND e.date <= ?
ORDER BY e.date, e.id`), userID, start.String(), end.String())
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var v core.ExpenseView
			if err := scanExpenseView(rows, &v); err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpenseView(row rowScanner, v *core.ExpenseView) error {
	var date dbDate
	if err := row.Scan(&v.ID, &v.UserID, &v.CategoryID, &v.Amount.Cents, &v.Description, &date, &v.CategoryName); err != nil {
		return fmt.Errorf("scan expense: %w", err)
	}
	v.Date = date.Date
	return nil
}
