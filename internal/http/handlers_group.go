package http

import (
	"net/http"
	"strconv"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

type groupRequest struct {
	Name string `json:"name"`
}

type groupExpenseRequest struct {
	expenseRequest
	// PaidBy is a username; defaults to the caller.
	PaidBy string `json:"paid_by"`
}

func groupID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.deps.Groups.Create(r.Context(), currentUserID(r), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupDTO(g))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.deps.Groups.List(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]groupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupDTO(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddGroupExpense(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req groupExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input(time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ge, alert, err := s.deps.Groups.AddExpense(r.Context(), currentUserID(r), id, services.GroupExpenseInput{
		ExpenseInput: in,
		PaidBy:       req.PaidBy,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupExpenseResponse{
		ID:        ge.ID,
		GroupID:   ge.GroupID,
		ExpenseID: ge.ExpenseID,
		PaidBy:    ge.PaidBy,
		Alert:     toAlertDTO(alert),
	})
}

func (s *Server) handleListGroupExpenses(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views, err := s.deps.Groups.Expenses(r.Context(), currentUserID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]groupExpenseDTO, 0, len(views))
	for _, v := range views {
		out = append(out, groupExpenseDTO{
			expenseDTO: toExpenseDTO(v.ExpenseView),
			GroupID:    v.GroupID,
			PaidBy:     v.PaidByUsername,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGroupSummary(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.deps.Groups.Summary(r.Context(), currentUserID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := groupSummaryDTO{
		Group:   toGroupDTO(sum.Group),
		Total:   sum.Total.String(),
		Count:   sum.Count,
		ByPayer: make([]payerTotalDTO, 0, len(sum.ByPayer)),
	}
	for _, p := range sum.ByPayer {
		out.ByPayer = append(out.ByPayer, payerTotalDTO{UserID: p.UserID, Username: p.Username, Total: p.Total.String()})
	}
	writeJSON(w, http.StatusOK, out)
}
