package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"expensetracker/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustUser(t *testing.T, repo *Repository, name string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), name, name+"@example.com")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func mustCategory(t *testing.T, repo *Repository, name string) core.Category {
	t.Helper()
	c, err := repo.GetCategoryByName(context.Background(), name)
	if err != nil {
		t.Fatalf("get category %s: %v", name, err)
	}
	return c
}

func TestSeedingIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if err := repo.Close(); err != nil {
			t.Fatalf("close #%d: %v", i, err)
		}
	}

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()

	if err := repo.EnsureCategories(context.Background(), core.DefaultCategories); err != nil {
		t.Fatalf("ensure categories: %v", err)
	}
	cats, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != len(core.DefaultCategories) {
		t.Fatalf("got %d categories, want %d", len(cats), len(core.DefaultCategories))
	}
	for i, c := range cats {
		if c.Name != core.DefaultCategories[i] {
			t.Errorf("category %d = %s, want %s", i, c.Name, core.DefaultCategories[i])
		}
	}
}

func TestGetOrCreateCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food := mustCategory(t, repo, "Food")
	got, err := repo.GetOrCreateCategory(ctx, "Food")
	if err != nil || got.ID != food.ID {
		t.Fatalf("GetOrCreateCategory(Food) = %+v, %v; want id %d", got, err, food.ID)
	}

	travel, err := repo.GetOrCreateCategory(ctx, "Travel")
	if err != nil {
		t.Fatalf("create Travel: %v", err)
	}
	again, err := repo.GetOrCreateCategory(ctx, " Travel ")
	if err != nil || again.ID != travel.ID {
		t.Fatalf("second GetOrCreateCategory(Travel) = %+v, %v", again, err)
	}

	if _, err := repo.GetOrCreateCategory(ctx, "  "); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if _, err := repo.GetCategoryByName(ctx, "Nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	alice := mustUser(t, repo, "alice")
	_, err := repo.CreateUser(ctx, "alice", "other@example.com")

	var dup *core.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
	if dup.Entity != "user" || dup.Key != "alice" {
		t.Fatalf("unexpected duplicate details %+v", dup)
	}

	got, err := repo.GetUserByUsername(ctx, "alice")
	if err != nil || got != alice {
		t.Fatalf("GetUserByUsername = %+v, %v; want %+v", got, err, alice)
	}
	if _, err := repo.GetUserByID(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertExpenseValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, repo, "alice")
	food := mustCategory(t, repo, "Food")

	for _, cents := range []int64{0, -500} {
		_, err := repo.InsertExpense(ctx, core.NewExpense{
			UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: cents}, Date: core.NewDate(2024, 3, 5),
		})
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", cents, err)
		}
	}

	_, err := repo.InsertExpense(ctx, core.NewExpense{
		UserID: 4242, CategoryID: food.ID, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 3, 5),
	})
	if !core.IsValidation(err) {
		t.Fatalf("missing user: expected validation error, got %v", err)
	}

	got, err := repo.ListExpenses(ctx, alice.ID, core.NewDate(2024, 1, 1), core.NewDate(2024, 12, 31))
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("rejected inserts left %d rows", len(got))
	}
}

func TestListExpensesInclusiveRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, repo, "alice")
	bob := mustUser(t, repo, "bob")
	food := mustCategory(t, repo, "Food")
	bills := mustCategory(t, repo, "Bills")

	insert := func(u core.User, c core.Category, cents int64, d core.Date) {
		t.Helper()
		if _, err := repo.InsertExpense(ctx, core.NewExpense{
			UserID: u.ID, CategoryID: c.ID, Amount: core.Money{Cents: cents}, Description: "x", Date: d,
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	insert(alice, food, 100, core.NewDate(2024, 2, 29))
	insert(alice, food, 200, core.NewDate(2024, 3, 1))
	insert(alice, bills, 300, core.NewDate(2024, 3, 31))
	insert(alice, food, 400, core.NewDate(2024, 4, 1))
	insert(bob, food, 500, core.NewDate(2024, 3, 10))

	got, err := repo.ListExpenses(ctx, alice.ID, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d expenses, want 2", len(got))
	}
	if got[0].Amount.Cents != 200 || got[0].CategoryName != "Food" || got[0].Date.String() != "2024-03-01" {
		t.Errorf("unexpected first expense %+v", got[0])
	}
	if got[1].Amount.Cents != 300 || got[1].CategoryName != "Bills" || got[1].Date.String() != "2024-03-31" {
		t.Errorf("unexpected second expense %+v", got[1])
	}
}

func TestUpsertBudgetOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, repo, "alice")
	food := mustCategory(t, repo, "Food")

	first, err := repo.UpsertBudget(ctx, core.NewBudget{
		UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 10000}, Month: core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	// Any day in the month maps to the same key.
	second, err := repo.UpsertBudget(ctx, core.NewBudget{
		UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 25000}, Month: core.NewDate(2024, 3, 20),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a new row: %d vs %d", second.ID, first.ID)
	}

	budgets, err := repo.ListBudgets(ctx, alice.ID, core.NewDate(2024, 3, 1))
	if err != nil {
		t.Fatalf("list budgets: %v", err)
	}
	if len(budgets) != 1 || budgets[0].Amount.Cents != 25000 {
		t.Fatalf("budgets = %+v, want one row with 25000", budgets)
	}
}

func TestCreateBudgetDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, repo, "alice")
	food := mustCategory(t, repo, "Food")

	nb := core.NewBudget{UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 100}, Month: core.NewDate(2024, 3, 1)}
	if _, err := repo.CreateBudget(ctx, nb); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	_, err := repo.CreateBudget(ctx, nb)
	if !errors.Is(err, core.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}

	nb.Amount = core.Money{Cents: -1}
	if _, err := repo.CreateBudget(ctx, nb); !errors.Is(err, core.ErrNegativeBudget) {
		t.Fatalf("expected ErrNegativeBudget, got %v", err)
	}
}

func TestMonthlyBudgetStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, repo, "alice")
	bob := mustUser(t, repo, "bob")
	food := mustCategory(t, repo, "Food")

	empty, err := repo.MonthlyBudgetStatus(ctx, alice.ID, core.NewDate(2024, 3, 1))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(empty) != len(core.DefaultCategories) {
		t.Fatalf("got %d rows, want %d", len(empty), len(core.DefaultCategories))
	}
	for _, row := range empty {
		if row.Budget.Cents != 0 || row.Spent.Cents != 0 {
			t.Errorf("expected zero row, got %+v", row)
		}
	}

	if _, err := repo.UpsertBudget(ctx, core.NewBudget{
		UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 10000}, Month: core.NewDate(2024, 3, 1),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	for _, e := range []core.NewExpense{
		{UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 9500}, Date: core.NewDate(2024, 3, 5)},
		{UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 700}, Date: core.NewDate(2024, 2, 28)},
		{UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 800}, Date: core.NewDate(2024, 4, 1)},
		{UserID: bob.ID, CategoryID: food.ID, Amount: core.Money{Cents: 900}, Date: core.NewDate(2024, 3, 6)},
	} {
		if _, err := repo.InsertExpense(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	rows, err := repo.MonthlyBudgetStatus(ctx, alice.ID, core.NewDate(2024, 3, 17))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(rows) != len(core.DefaultCategories) {
		t.Fatalf("got %d rows, want %d", len(rows), len(core.DefaultCategories))
	}
	for _, row := range rows {
		if row.CategoryName == "Food" {
			if row.Budget.Cents != 10000 || row.Spent.Cents != 9500 {
				t.Fatalf("Food row = %+v, want budget 10000 spent 9500", row)
			}
			continue
		}
		if row.Budget.Cents != 0 || row.Spent.Cents != 0 {
			t.Errorf("%s row = %+v, want zeros", row.CategoryName, row)
		}
	}
}

func TestGroups(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, repo, "alice")
	bob := mustUser(t, repo, "bob")
	food := mustCategory(t, repo, "Food")

	g, err := repo.CreateGroup(ctx, "Trip", alice.ID)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := repo.CreateGroup(ctx, " ", alice.ID); !errors.Is(err, core.ErrEmptyGroupName) {
		t.Fatalf("expected ErrEmptyGroupName, got %v", err)
	}

	ge, err := repo.RecordGroupExpense(ctx, g.ID, bob.ID, core.NewExpense{
		UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 4200}, Description: "dinner", Date: core.NewDate(2024, 3, 5),
	})
	if err != nil {
		t.Fatalf("record group expense: %v", err)
	}

	standalone, err := repo.InsertExpense(ctx, core.NewExpense{
		UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 1000}, Date: core.NewDate(2024, 3, 6),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.AddGroupExpense(ctx, g.ID, standalone, alice.ID); err != nil {
		t.Fatalf("add group expense: %v", err)
	}

	list, err := repo.ListGroupExpenses(ctx, g.ID)
	if err != nil {
		t.Fatalf("list group expenses: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d group expenses, want 2", len(list))
	}
	if list[1].ID != ge.ExpenseID || list[1].PaidByUsername != "bob" || list[1].CategoryName != "Food" {
		t.Errorf("unexpected group expense %+v", list[1])
	}
	if list[0].PaidByUsername != "alice" {
		t.Errorf("unexpected payer %q", list[0].PaidByUsername)
	}

	// A link to a missing group rolls back the expense insert too.
	_, err = repo.RecordGroupExpense(ctx, 999, alice.ID, core.NewExpense{
		UserID: alice.ID, CategoryID: food.ID, Amount: core.Money{Cents: 5}, Date: core.NewDate(2024, 3, 7),
	})
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	all, err := repo.ListExpenses(ctx, alice.ID, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d expenses after failed group insert, want 2", len(all))
	}

	groups, err := repo.ListUserGroups(ctx, alice.ID)
	if err != nil || len(groups) != 1 || groups[0].Name != "Trip" {
		t.Fatalf("ListUserGroups = %+v, %v", groups, err)
	}
	if groups, _ := repo.ListUserGroups(ctx, bob.ID); len(groups) != 0 {
		t.Fatalf("bob should own no groups, got %+v", groups)
	}

	got, err := repo.GetGroup(ctx, g.ID)
	if err != nil || got.CreatedBy != alice.ID {
		t.Fatalf("GetGroup = %+v, %v", got, err)
	}
}
