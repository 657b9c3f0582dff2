// Package alerts decides when a budget threshold is crossed and renders the
// notification text. Everything here is pure; delivery lives in notify.
package alerts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/budget"
	"expensetracker/internal/core"
)

// DefaultThreshold is the fraction of a budget at which an alert fires.
const DefaultThreshold = 0.9

// CheckBudgetThreshold reports whether spent/budget >= threshold. A budget of
// zero or less means "no budget" and never alerts.
func CheckBudgetThreshold(spent, budgetAmount core.Money, threshold float64) bool {
	if budgetAmount.Cents <= 0 {
		return false
	}
	limit := decimal.NewFromInt(budgetAmount.Cents).Mul(decimal.NewFromFloat(threshold))
	return decimal.NewFromInt(spent.Cents).GreaterThanOrEqual(limit)
}

// AlertSubject is the category-specific subject line for a budget alert.
func AlertSubject(category string) string {
	return "Budget Alert - " + category
}

// GenerateBudgetAlert renders the alert body. The wording says "exceeded"
// only when spent is strictly over budget.
func GenerateBudgetAlert(category string, spent, budgetAmount core.Money) string {
	pct := budget.PercentageUsed(spent, budgetAmount).StringFixed(1)
	remaining := budgetAmount.Sub(spent)

	warning := fmt.Sprintf("Warning: You have used %s%% of your budget!", pct)
	if spent.Cents > budgetAmount.Cents {
		warning = "Warning: You have exceeded your budget!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Budget Alert for %s\n\n", category)
	b.WriteString("Current Status:\n")
	fmt.Fprintf(&b, "- Spent: $%s\n", spent)
	fmt.Fprintf(&b, "- Budget: $%s\n", budgetAmount)
	fmt.Fprintf(&b, "- Remaining: $%s\n", remaining)
	fmt.Fprintf(&b, "- Used: %s%%\n\n", pct)
	b.WriteString(warning)
	b.WriteString("\n\nThis is an automated notification from your expense tracker.\n")
	return b.String()
}

// CategorySpend is one category's spend in a summary, in display order.
type CategorySpend struct {
	Category string
	Spent    core.Money
}

// SummaryOptions tunes GenerateMonthlySummary.
type SummaryOptions struct {
	// IncludeUnspentBudgets also lists budgeted categories with no spend.
	// Off by default, which drops them from the breakdown and the budget total.
	IncludeUnspentBudgets bool
}

// SummarySubject is the subject line for the monthly summary of month.
func SummarySubject(month core.Date) string {
	return "Monthly Expense Summary - " + month.MonthLabel()
}

// GenerateMonthlySummary renders the month's breakdown followed by totals.
func GenerateMonthlySummary(month core.Date, spending []CategorySpend, budgets map[string]core.Money, opts SummaryOptions) string {
	lines := append([]CategorySpend(nil), spending...)
	if opts.IncludeUnspentBudgets {
		seen := make(map[string]bool, len(lines))
		for _, s := range lines {
			seen[s.Category] = true
		}
		var extra []string
		for name, amount := range budgets {
			if !seen[name] && amount.Cents > 0 {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			lines = append(lines, CategorySpend{Category: name})
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", SummarySubject(month))
	b.WriteString("Expense Breakdown by Category:\n")

	var totalSpent, totalBudget core.Money
	for _, s := range lines {
		budgetAmount := budgets[s.Category]
		totalSpent = totalSpent.Add(s.Spent)
		totalBudget = totalBudget.Add(budgetAmount)

		verdict := "Within budget"
		if s.Spent.Cents > budgetAmount.Cents {
			verdict = "Over budget"
		}
		fmt.Fprintf(&b, "\n%s:", s.Category)
		fmt.Fprintf(&b, "\n- Spent: $%s", s.Spent)
		fmt.Fprintf(&b, "\n- Budget: $%s", budgetAmount)
		fmt.Fprintf(&b, "\n- %s", verdict)
	}

	fmt.Fprintf(&b, "\n\nTotal Spending: $%s", totalSpent)
	fmt.Fprintf(&b, "\nTotal Budget: $%s", totalBudget)
	return b.String()
}

// SummaryInputs splits a month's status into the spend list and budget map
// GenerateMonthlySummary expects. Categories with no spend are left out of
// the spend list, matching an expenses-grouped-by-category source.
func SummaryInputs(statuses []budget.CategoryStatus) ([]CategorySpend, map[string]core.Money) {
	var spending []CategorySpend
	budgets := make(map[string]core.Money)
	for _, s := range statuses {
		if s.Budget.Cents > 0 {
			budgets[s.CategoryName] = s.Budget
		}
		if s.Spent.Cents > 0 {
			spending = append(spending, CategorySpend{Category: s.CategoryName, Spent: s.Spent})
		}
	}
	return spending, budgets
}
