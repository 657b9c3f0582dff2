package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"expensetracker/internal/alerts"
	"expensetracker/internal/budget"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/notify"
)

// AlertOutcome reports a threshold crossing detected after an expense.
type AlertOutcome struct {
	Category       string
	Spent          core.Money
	Budget         core.Money
	PercentageUsed decimal.Decimal
	Delivered      bool
	// Warning is set when the alert could not be delivered.
	Warning string
}

// alertTrigger runs the post-expense check: recompute the month, find the
// category, compare against the threshold and notify.
type alertTrigger struct {
	aggregator *budget.Aggregator
	notifier   notify.Notifier
	threshold  float64
}

func newAlertTrigger(store Store, notifier notify.Notifier, threshold float64) *alertTrigger {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if threshold <= 0 {
		threshold = alerts.DefaultThreshold
	}
	return &alertTrigger{
		aggregator: budget.NewAggregator(store),
		notifier:   notifier,
		threshold:  threshold,
	}
}

// check returns nil when no alert is due. A failed recompute is reported as
// an outcome warning because the expense is already stored.
func (t *alertTrigger) check(ctx context.Context, user core.User, category core.Category, date core.Date) *AlertOutcome {
	status, err := t.aggregator.CategoryStatus(ctx, user.ID, date, category.ID)
	if err != nil {
		slog.WarnContext(ctx, "Budget check failed after expense",
			applog.FieldUserID, user.ID,
			applog.FieldCategory, category.Name,
			"error", err)
		return &AlertOutcome{Category: category.Name, Warning: "budget check could not be completed"}
	}

	if !alerts.CheckBudgetThreshold(status.Spent, status.Budget, t.threshold) {
		return nil
	}

	metrics.AlertsTriggered.WithLabelValues(status.CategoryName).Inc()

	outcome := &AlertOutcome{
		Category:       status.CategoryName,
		Spent:          status.Spent,
		Budget:         status.Budget,
		PercentageUsed: status.PercentageUsed,
	}

	body := alerts.GenerateBudgetAlert(status.CategoryName, status.Spent, status.Budget)
	outcome.Delivered = t.notifier.Deliver(ctx, user.Email, alerts.AlertSubject(status.CategoryName), body)
	metrics.Deliveries.WithLabelValues("alert", metrics.DeliveryResult(outcome.Delivered)).Inc()

	if !outcome.Delivered {
		outcome.Warning = fmt.Sprintf("budget alert for %s could not be delivered", status.CategoryName)
	}

	slog.InfoContext(ctx, "Budget threshold reached",
		applog.FieldUserID, user.ID,
		applog.FieldCategory, status.CategoryName,
		"spent_cents", status.Spent.Cents,
		"budget_cents", status.Budget.Cents,
		"delivered", outcome.Delivered)

	return outcome
}
