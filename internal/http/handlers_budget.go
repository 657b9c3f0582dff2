package http

import (
	"net/http"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

type budgetRequest struct {
	Category string      `json:"category"`
	Amount   amountField `json:"amount"`
	// Month is YYYY-MM or a date within the month; defaults to this month.
	Month string `json:"month"`
}

func (req budgetRequest) input(now time.Time) (services.BudgetInput, error) {
	amount, err := req.Amount.budgetCents()
	if err != nil {
		return services.BudgetInput{}, err
	}
	month := core.MonthStart(now)
	if strings.TrimSpace(req.Month) != "" {
		if month, err = core.ParseMonth(req.Month); err != nil {
			return services.BudgetInput{}, err
		}
	}
	return services.BudgetInput{Category: req.Category, Amount: amount, Month: month}, nil
}

func (s *Server) decodeBudget(w http.ResponseWriter, r *http.Request) (services.BudgetInput, bool) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return services.BudgetInput{}, false
	}
	in, err := req.input(time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return services.BudgetInput{}, false
	}
	return in, true
}

// handleSetBudget creates or replaces the budget for a category and month.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeBudget(w, r)
	if !ok {
		return
	}
	b, err := s.deps.Expenses.SetBudget(r.Context(), currentUserID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

// handleCreateBudget fails with 409 when the budget already exists.
func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeBudget(w, r)
	if !ok {
		return
	}
	b, err := s.deps.Expenses.CreateBudget(r.Context(), currentUserID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetDTO(b))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	budgets, err := s.deps.Expenses.ListBudgets(r.Context(), currentUserID(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]budgetDTO, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetDTO(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	statuses, err := s.deps.Expenses.BudgetStatus(r.Context(), currentUserID(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTOs(statuses))
}

type summaryRequest struct {
	// Month defaults to the previous calendar month.
	Month string `json:"month"`
}

// handleSendSummary renders and delivers the caller's monthly summary.
func (s *Server) handleSendSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	now := time.Now().UTC()
	month := services.SummarySchedule{}.Month(now)
	if strings.TrimSpace(req.Month) != "" {
		var err error
		if month, err = core.ParseMonth(req.Month); err != nil {
			writeError(w, r, err)
			return
		}
	}

	res, err := s.deps.Summaries.Send(r.Context(), currentUserID(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Month:     month.Format(core.MonthLayout),
		Subject:   res.Subject,
		Body:      res.Body,
		Delivered: res.Delivered,
	})
}
