package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/metrics"
)

// GroupExpenseInput is an expense recorded against a group. PaidBy names the
// paying user and defaults to the caller.
type GroupExpenseInput struct {
	ExpenseInput
	PaidBy string
}

// PayerTotal is one payer's share of a group's spending.
type PayerTotal struct {
	UserID   int64
	Username string
	Total    core.Money
}

// GroupSummary totals a group's expenses.
type GroupSummary struct {
	Group   core.Group
	Total   core.Money
	Count   int
	ByPayer []PayerTotal
}

// GroupService manages shared-expense groups. A group is visible only to the
// user who created it.
type GroupService struct {
	store    Store
	expenses *ExpenseService
}

func NewGroupService(store Store, expenses *ExpenseService) *GroupService {
	return &GroupService{store: store, expenses: expenses}
}

func (s *GroupService) Create(ctx context.Context, userID int64, name string) (core.Group, error) {
	if strings.TrimSpace(name) == "" {
		return core.Group{}, core.ErrEmptyGroupName
	}
	if _, err := s.expenses.user(ctx, userID); err != nil {
		return core.Group{}, err
	}
	return s.store.CreateGroup(ctx, name, userID)
}

func (s *GroupService) List(ctx context.Context, userID int64) ([]core.Group, error) {
	return s.store.ListUserGroups(ctx, userID)
}

// owned returns the group if userID created it, and core.ErrNotFound otherwise.
func (s *GroupService) owned(ctx context.Context, userID, groupID int64) (core.Group, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return core.Group{}, err
	}
	if g.CreatedBy != userID {
		return core.Group{}, core.ErrNotFound
	}
	return g, nil
}

// AddExpense records an expense owned by the caller and links it to the
// group, then runs the same budget check as a personal expense.
func (s *GroupService) AddExpense(ctx context.Context, userID, groupID int64, in GroupExpenseInput) (core.GroupExpense, *AlertOutcome, error) {
	if err := in.validate(); err != nil {
		return core.GroupExpense{}, nil, err
	}

	group, err := s.owned(ctx, userID, groupID)
	if err != nil {
		return core.GroupExpense{}, nil, err
	}

	user, err := s.expenses.user(ctx, userID)
	if err != nil {
		return core.GroupExpense{}, nil, err
	}

	payer := user
	if name := strings.TrimSpace(in.PaidBy); name != "" && name != user.Username {
		payer, err = s.store.GetUserByUsername(ctx, name)
		if errors.Is(err, core.ErrNotFound) {
			return core.GroupExpense{}, nil, &core.ValidationError{Field: "paid_by", Reason: "must name an existing user"}
		}
		if err != nil {
			return core.GroupExpense{}, nil, fmt.Errorf("get payer: %w", err)
		}
	}

	category, err := s.expenses.category(ctx, in.Category)
	if err != nil {
		return core.GroupExpense{}, nil, err
	}

	description := strings.TrimSpace(in.Description)
	ge, err := s.store.RecordGroupExpense(ctx, group.ID, payer.ID, core.NewExpense{
		UserID:      user.ID,
		CategoryID:  category.ID,
		Amount:      in.Amount,
		Description: description,
		Date:        in.Date,
	})
	if err != nil {
		return core.GroupExpense{}, nil, fmt.Errorf("record group expense: %w", err)
	}
	metrics.ExpensesRecorded.Inc()

	msg := amqp.NewExpenseRecordedMessage(ge.ExpenseID, user.ID, user.Username, category.Name, in.Amount.Cents, description, in.Date.String())
	msg.GroupID = group.ID
	s.expenses.publishRecorded(ctx, msg)

	return ge, s.expenses.trigger.check(ctx, user, category, in.Date), nil
}

// Expenses lists the group's expenses, newest first.
func (s *GroupService) Expenses(ctx context.Context, userID, groupID int64) ([]core.GroupExpenseView, error) {
	if _, err := s.owned(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return s.store.ListGroupExpenses(ctx, groupID)
}

// Summary totals the group's expenses overall and per payer.
func (s *GroupService) Summary(ctx context.Context, userID, groupID int64) (GroupSummary, error) {
	group, err := s.owned(ctx, userID, groupID)
	if err != nil {
		return GroupSummary{}, err
	}
	expenses, err := s.store.ListGroupExpenses(ctx, groupID)
	if err != nil {
		return GroupSummary{}, err
	}

	summary := GroupSummary{Group: group, Count: len(expenses)}
	payers := make(map[int64]*PayerTotal)
	for _, e := range expenses {
		summary.Total = summary.Total.Add(e.Amount)
		p, ok := payers[e.PaidBy]
		if !ok {
			p = &PayerTotal{UserID: e.PaidBy, Username: e.PaidByUsername}
			payers[e.PaidBy] = p
		}
		p.Total = p.Total.Add(e.Amount)
	}
	for _, p := range payers {
		summary.ByPayer = append(summary.ByPayer, *p)
	}
	sort.Slice(summary.ByPayer, func(i, j int) bool {
		return summary.ByPayer[i].Username < summary.ByPayer[j].Username
	})
	return summary, nil
}
