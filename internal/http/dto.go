package http

import (
	"time"

	"expensetracker/internal/budget"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

type userDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type tokenResponse struct {
	User      userDTO   `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type categoryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type expenseDTO struct {
	ID          int64  `json:"id"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type alertDTO struct {
	Category       string `json:"category"`
	Spent          string `json:"spent"`
	Budget         string `json:"budget"`
	PercentageUsed string `json:"percentage_used"`
	Delivered      bool   `json:"delivered"`
	Warning        string `json:"warning,omitempty"`
}

type recordResponse struct {
	ExpenseID int64     `json:"expense_id"`
	Alert     *alertDTO `json:"alert,omitempty"`
}

type budgetDTO struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Amount     string `json:"amount"`
	Month      string `json:"month"`
}

type statusDTO struct {
	CategoryID     int64  `json:"category_id"`
	Category       string `json:"category"`
	Budget         string `json:"budget"`
	Spent          string `json:"spent"`
	Remaining      string `json:"remaining"`
	PercentageUsed string `json:"percentage_used"`
}

type categoryTotalDTO struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type dailyTotalDTO struct {
	Date  string `json:"date"`
	Total string `json:"total"`
}

type reportDTO struct {
	Start      string             `json:"start"`
	End        string             `json:"end"`
	Total      string             `json:"total"`
	Count      int                `json:"count"`
	ByCategory []categoryTotalDTO `json:"by_category"`
	Daily      []dailyTotalDTO    `json:"daily"`
	Month      string             `json:"month"`
	Budgets    []statusDTO        `json:"budgets"`
	Expenses   []expenseDTO       `json:"expenses"`
}

type groupDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedBy int64  `json:"created_by"`
}

type groupExpenseDTO struct {
	expenseDTO
	GroupID int64  `json:"group_id"`
	PaidBy  string `json:"paid_by"`
}

type groupExpenseResponse struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	ExpenseID int64     `json:"expense_id"`
	PaidBy    int64     `json:"paid_by"`
	Alert     *alertDTO `json:"alert,omitempty"`
}

type payerTotalDTO struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Total    string `json:"total"`
}

type groupSummaryDTO struct {
	Group   groupDTO        `json:"group"`
	Total   string          `json:"total"`
	Count   int             `json:"count"`
	ByPayer []payerTotalDTO `json:"by_payer"`
}

type summaryResponse struct {
	Month     string `json:"month"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Delivered bool   `json:"delivered"`
}

func toUserDTO(u core.User) userDTO {
	return userDTO{ID: u.ID, Username: u.Username, Email: u.Email}
}

func toExpenseDTO(e core.ExpenseView) expenseDTO {
	return expenseDTO{
		ID:          e.ID,
		Category:    e.CategoryName,
		Amount:      e.Amount.String(),
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		Date:        e.Date.String(),
	}
}

func toExpenseDTOs(in []core.ExpenseView) []expenseDTO {
	out := make([]expenseDTO, 0, len(in))
	for _, e := range in {
		out = append(out, toExpenseDTO(e))
	}
	return out
}

func toAlertDTO(a *services.AlertOutcome) *alertDTO {
	if a == nil {
		return nil
	}
	return &alertDTO{
		Category:       a.Category,
		Spent:          a.Spent.String(),
		Budget:         a.Budget.String(),
		PercentageUsed: a.PercentageUsed.StringFixed(1),
		Delivered:      a.Delivered,
		Warning:        a.Warning,
	}
}

func toBudgetDTO(b core.Budget) budgetDTO {
	return budgetDTO{ID: b.ID, CategoryID: b.CategoryID, Amount: b.Amount.String(), Month: b.Month.Format(core.MonthLayout)}
}

func toStatusDTOs(in []budget.CategoryStatus) []statusDTO {
	out := make([]statusDTO, 0, len(in))
	for _, s := range in {
		out = append(out, statusDTO{
			CategoryID:     s.CategoryID,
			Category:       s.CategoryName,
			Budget:         s.Budget.String(),
			Spent:          s.Spent.String(),
			Remaining:      s.Remaining.String(),
			PercentageUsed: s.PercentageUsed.StringFixed(1),
		})
	}
	return out
}

func toReportDTO(r services.Report) reportDTO {
	out := reportDTO{
		Start:      r.Start.String(),
		End:        r.End.String(),
		Total:      r.Total.String(),
		Count:      len(r.Expenses),
		ByCategory: make([]categoryTotalDTO, 0, len(r.ByCategory)),
		Daily:      make([]dailyTotalDTO, 0, len(r.Daily)),
		Month:      r.Month.Format(core.MonthLayout),
		Budgets:    toStatusDTOs(r.Budgets),
		Expenses:   toExpenseDTOs(r.Expenses),
	}
	for _, c := range r.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryTotalDTO{Category: c.Category, Total: c.Total.String()})
	}
	for _, d := range r.Daily {
		out.Daily = append(out.Daily, dailyTotalDTO{Date: d.Date.String(), Total: d.Total.String()})
	}
	return out
}

func toGroupDTO(g core.Group) groupDTO {
	return groupDTO{ID: g.ID, Name: g.Name, CreatedBy: g.CreatedBy}
}
