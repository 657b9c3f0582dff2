package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

func (r *Repository) CreateGroup(ctx context.Context, name string, createdBy int64) (core.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Group{}, core.ErrEmptyGroupName
	}
	if createdBy <= 0 {
		return core.Group{}, core.ErrInvalidUser
	}

	var id int64
	err := r.withRetry(ctx, op{name: "create group", entity: "group", key: name}, func(ctx context.Context) error {
		var err error
		id, err = r.insertReturningID(ctx, r.db,
			`INSERT INTO groups (name, created_by) VALUES (?, ?) RETURNING id`, name, createdBy)
		return err
	})
	if err != nil {
		return core.Group{}, err
	}

	slog.InfoContext(ctx, "Group created", applog.FieldGroupID, id, "name", name, "created_by", createdBy)
	return core.Group{ID: id, Name: name, CreatedBy: createdBy}, nil
}

func (r *Repository) GetGroup(ctx context.Context, id int64) (core.Group, error) {
	g := core.Group{ID: id}
	err := r.query(ctx, op{name: "get group", entity: "group"}, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, r.rebind(`SELECT name, created_by FROM groups WHERE id = ?`), id).
			Scan(&g.Name, &g.CreatedBy)
	})
	return g, err
}

// AddGroupExpense links an existing expense to a group with its payer.
func (r *Repository) AddGroupExpense(ctx context.Context, groupID, expenseID, paidBy int64) (core.GroupExpense, error) {
	ge := core.GroupExpense{GroupID: groupID, ExpenseID: expenseID, PaidBy: paidBy}
	err := r.withRetry(ctx, op{name: "add group expense", entity: "group_expense"}, func(ctx context.Context) error {
		var err error
		ge.ID, err = r.insertReturningID(ctx, r.db,
			`INSERT INTO group_expenses (group_id, expense_id, paid_by) VALUES (?, ?, ?) RETURNING id`,
			groupID, expenseID, paidBy)
		return err
	})
	if err != nil {
		return core.GroupExpense{}, err
	}
	return ge, nil
}

// RecordGroupExpense inserts the expense and its group link in one transaction.
func (r *Repository) RecordGroupExpense(ctx context.Context, groupID, paidBy int64, e core.NewExpense) (core.GroupExpense, error) {
	if err := e.Validate(); err != nil {
		return core.GroupExpense{}, err
	}
	if paidBy <= 0 {
		return core.GroupExpense{}, core.ErrInvalidUser
	}

	ge := core.GroupExpense{GroupID: groupID, PaidBy: paidBy}
	err := r.withRetry(ctx, op{name: "record group expense", entity: "group_expense"}, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		expenseID, err := r.insertReturningID(ctx, tx, insertExpenseSQL,
			e.UserID, e.CategoryID, e.Amount.Cents, e.Description, e.Date.String())
		if err != nil {
			return err
		}
		linkID, err := r.insertReturningID(ctx, tx,
			`INSERT INTO group_expenses (group_id, expense_id, paid_by) VALUES (?, ?, ?) RETURNING id`,
			groupID, expenseID, paidBy)
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		ge.ID, ge.ExpenseID = linkID, expenseID
		return nil
	})
	if err != nil {
		return core.GroupExpense{}, err
	}

	slog.InfoContext(ctx, "Group expense saved",
		applog.FieldGroupID, groupID,
		applog.FieldExpenseID, ge.ExpenseID,
		"paid_by", paidBy,
		applog.FieldAmountCents, e.Amount.Cents)

	return ge, nil
}

// ListGroupExpenses returns a group's expenses with category and payer names, newest first.
func (r *Repository) ListGroupExpenses(ctx context.Context, groupID int64) ([]core.GroupExpenseView, error) {
	var out []core.GroupExpenseView
	err := r.query(ctx, op{name: "list group expenses", entity: "group_expense"}, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, r.rebind(`
SELECT e.id, e.user_id, e.category_id, e.amount_cents, e.description, e.date, c.name,
       ge.group_id, ge.paid_by, u.username
FROM group_expenses ge
JOIN expenses e ON e.id = ge.expense_id
JOIN categories c ON c.id = e.category_id
JOIN users u ON u.id = ge.paid_by
WHERE ge.group_id = ?
ORDER BY e.date DESC, e.id DESC`), groupID)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			v, err := scanGroupExpense(rows)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

func scanGroupExpense(rows *sql.Rows) (core.GroupExpenseView, error) {
	var v core.GroupExpenseView
	var date dbDate
	err := rows.Scan(&v.ID, &v.UserID, &v.CategoryID, &v.Amount.Cents, &v.Description, &date, &v.CategoryName,
		&v.GroupID, &v.PaidBy, &v.PaidByUsername)
	if err != nil {
		return v, fmt.Errorf("scan group expense: %w", err)
	}
	v.Date = date.Date
	return v, nil
}

// ListUserGroups returns the groups a user created.
func (r *Repository) ListUserGroups(ctx context.Context, userID int64) ([]core.Group, error) {
	var out []core.Group
	err := r.query(ctx, op{name: "list user groups", entity: "group"}, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, r.rebind(`
SELECT id, name, created_by FROM groups WHERE created_by = ? ORDER BY id`), userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var g core.Group
			if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy); err != nil {
				return fmt.Errorf("scan group: %w", err)
			}
			out = append(out, g)
		}
		return rows.Err()
	})
	return out, err
}
