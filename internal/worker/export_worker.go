package worker

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/sheets"
)

// ExportWorker appends recorded expenses to a spreadsheet.
type ExportWorker struct {
	exporter sheets.ExpenseExporter
}

func NewExportWorker(exporter sheets.ExpenseExporter) *ExportWorker {
	return &ExportWorker{exporter: exporter}
}

// HandleExpenseRecorded processes a single expense recorded message from AMQP.
func (w *ExportWorker) HandleExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		applog.FieldMessageID, msg.ID,
		applog.FieldExpenseID, msg.ExpenseID,
		applog.FieldUserID, msg.UserID)

	row := sheets.ExportRow{
		Date:        msg.Date,
		Username:    msg.Username,
		Category:    msg.Category,
		Description: msg.Description,
		Amount:      core.Money{Cents: msg.AmountCents},
	}
	if err := row.Validate(); err != nil {
		return fmt.Errorf("%w: expense %d: %v", amqp.ErrMalformed, msg.ExpenseID, err)
	}

	ref, err := w.exporter.Append(ctx, row)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to export expense",
			applog.FieldExpenseID, msg.ExpenseID,
			"error", err)
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported expense",
		append(applog.NewFields().WithExpense(msg.ExpenseID, msg.Category, msg.AmountCents).ToSlice(), "sheets_ref", ref)...)

	return nil
}
