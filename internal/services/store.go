// Package services orchestrates the store, budget aggregation, alerting and
// messaging. Identity is always passed in as a user id; services keep no
// per-user state.
package services

import (
	"context"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
)

// Store is the persistence surface the services use. *storage.Repository
// implements it.
type Store interface {
	CreateUser(ctx context.Context, username, email string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	GetUserByID(ctx context.Context, id int64) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)

	GetCategoryByName(ctx context.Context, name string) (core.Category, error)
	ListCategories(ctx context.Context) ([]core.Category, error)

	InsertExpense(ctx context.Context, e core.NewExpense) (int64, error)
	ListExpenses(ctx context.Context, userID int64, start, end core.Date) ([]core.ExpenseView, error)

	UpsertBudget(ctx context.Context, b core.NewBudget) (core.Budget, error)
	CreateBudget(ctx context.Context, b core.NewBudget) (core.Budget, error)
	ListBudgets(ctx context.Context, userID int64, month core.Date) ([]core.Budget, error)
	MonthlyBudgetStatus(ctx context.Context, userID int64, month core.Date) ([]core.BudgetStatusRow, error)

	CreateGroup(ctx context.Context, name string, createdBy int64) (core.Group, error)
	GetGroup(ctx context.Context, id int64) (core.Group, error)
	RecordGroupExpense(ctx context.Context, groupID, paidBy int64, e core.NewExpense) (core.GroupExpense, error)
	ListGroupExpenses(ctx context.Context, groupID int64) ([]core.GroupExpenseView, error)
	ListUserGroups(ctx context.Context, userID int64) ([]core.Group, error)
}

// Publisher sends messages to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg amqp.Message) error
}
