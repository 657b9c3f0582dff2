package memory

import (
	"context"
	"fmt"
	"sync"

	ports "expensetracker/internal/sheets"
)

// Exporter keeps exported rows in memory. It backs the export worker
// when no spreadsheet is configured and serves as a test double.
type Exporter struct {
	mu   sync.Mutex
	rows []ports.ExportRow
}

var _ ports.ExpenseExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// Append stores the row and returns a synthetic row reference.
func (e *Exporter) Append(_ context.Context, row ports.ExportRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = append(e.rows, row)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (e *Exporter) Rows() []ports.ExportRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ports.ExportRow(nil), e.rows...)
}
