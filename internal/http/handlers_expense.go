package http

import (
	"net/http"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

type expenseRequest struct {
	Category    string      `json:"category"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
	// Date defaults to today when empty.
	Date string `json:"date"`
}

func (req expenseRequest) input(now time.Time) (services.ExpenseInput, error) {
	amount, err := req.Amount.expenseCents()
	if err != nil {
		return services.ExpenseInput{}, err
	}
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if strings.TrimSpace(req.Date) != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			return services.ExpenseInput{}, err
		}
	}
	return services.ExpenseInput{
		Category:    req.Category,
		Amount:      amount,
		Description: req.Description,
		Date:        date,
	}, nil
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Expenses.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryDTO{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input(time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Expenses.RecordExpense(r.Context(), currentUserID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordResponse{ExpenseID: res.ExpenseID, Alert: toAlertDTO(res.Alert)})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.deps.Expenses.ListExpenses(r.Context(), currentUserID(r), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTOs(expenses))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.deps.Expenses.Report(r.Context(), currentUserID(r), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// parseRange reads start and end query dates. End defaults to today and
// start to the first day of end's month.
func parseRange(r *http.Request, now time.Time) (start, end core.Date, err error) {
	q := r.URL.Query()
	end = core.NewDate(now.Year(), int(now.Month()), now.Day())
	if v := strings.TrimSpace(q.Get("end")); v != "" {
		if end, err = core.ParseDate(v); err != nil {
			return core.Date{}, core.Date{}, err
		}
	}
	start = end.MonthStart()
	if v := strings.TrimSpace(q.Get("start")); v != "" {
		if start, err = core.ParseDate(v); err != nil {
			return core.Date{}, core.Date{}, err
		}
	}
	return start, end, nil
}

// parseMonth reads the month query parameter, defaulting to now's month.
func parseMonth(r *http.Request, now time.Time) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.MonthStart(now), nil
	}
	return core.ParseMonth(v)
}
