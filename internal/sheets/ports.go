package sheets

import (
	"context"
	"errors"
	"strings"

	"expensetracker/internal/core"
)

// ExportRow is one spreadsheet line for a recorded expense.
type ExportRow struct {
	Date        string
	Username    string
	Category    string
	Description string
	Amount      core.Money
}

var ErrInvalidRow = errors.New("invalid export row")

func (r ExportRow) Validate() error {
	if strings.TrimSpace(r.Date) == "" || strings.TrimSpace(r.Category) == "" {
		return ErrInvalidRow
	}
	if r.Amount.Cents <= 0 {
		return ErrInvalidRow
	}
	return nil
}

// Values returns the row in column order: date, username, category,
// description, amount.
func (r ExportRow) Values() []any {
	return []any{r.Date, r.Username, r.Category, r.Description, r.Amount.String()}
}

// Ports for outbound adapters.
type (
	ExpenseExporter interface {
		Append(ctx context.Context, row ExportRow) (rowRef string, err error)
	}
)
