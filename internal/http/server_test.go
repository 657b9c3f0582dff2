package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"expensetracker/internal/alerts"
	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

type captureNotifier struct {
	mu       sync.Mutex
	subjects []string
}

func (n *captureNotifier) Deliver(_ context.Context, _, subject, _ string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subjects = append(n.subjects, subject)
	return true
}

type testServer struct {
	*Server
	notifier *captureNotifier
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	notifier := &captureNotifier{}
	expenses := services.NewExpenseService(store, services.ExpenseServiceOptions{Notifier: notifier})
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 1000
	}

	s := NewServer(":0", Deps{
		Users:     services.NewUserService(store),
		Expenses:  expenses,
		Groups:    services.NewGroupService(store, expenses),
		Summaries: services.NewSummaryService(store, notifier, alerts.SummaryOptions{}, 2),
		JWT:       auth.NewJWTManager("test-secret-0123456789", time.Hour),
		Store:     store,
	}, opts)
	t.Cleanup(func() { s.limiter.Stop() })

	return &testServer{Server: s, notifier: notifier}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (ts *testServer) signup(t *testing.T, name string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/signup", "", map[string]string{"username": name, "email": name + "@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %s", name, rec.Code, rec.Body.String())
	}
	return decode[tokenResponse](t, rec).Token
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: status %d", path, rec.Code)
		}
	}

	rec := ts.do(t, http.MethodGet, "/readyz", "", nil)
	body := decode[map[string]any](t, rec)
	if body["status"] != "ready" {
		t.Errorf("readyz status = %v", body["status"])
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/api/expenses", tt.token, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if got := decode[errorResponse](t, rec).Error; got != "unauthorized" {
				t.Errorf("error = %q", got)
			}
		})
	}
}

func TestSignupAndLogin(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.signup(t, "alice")

	rec := ts.do(t, http.MethodPost, "/api/signup", "", map[string]string{"username": "alice", "email": "other@example.com"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body %s", rec.Code, rec.Body.String())
	}
	login := decode[tokenResponse](t, rec)
	if login.User.Username != "alice" || login.Token == "" {
		t.Fatalf("unexpected login response: %+v", login)
	}

	rec = ts.do(t, http.MethodGet, "/api/me", login.Token, nil)
	if rec.Code != http.StatusOK || decode[userDTO](t, rec).Email != "alice@example.com" {
		t.Errorf("me: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "nobody"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown login status = %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/login", "", `{"username":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestRecordExpenseAlertFlow(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "alice")

	rec := ts.do(t, http.MethodPut, "/api/budgets", token, map[string]any{"category": "Food", "amount": 100, "month": "2024-03"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set budget: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{
		"category": "Food", "amount": "95.00", "description": "groceries", "date": "2024-03-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record: status %d body %s", rec.Code, rec.Body.String())
	}
	res := decode[recordResponse](t, rec)
	if res.ExpenseID == 0 || res.Alert == nil {
		t.Fatalf("expected alert, got %+v", res)
	}
	if res.Alert.Spent != "95.00" || res.Alert.Budget != "100.00" || res.Alert.PercentageUsed != "95.0" || !res.Alert.Delivered {
		t.Errorf("unexpected alert: %+v", res.Alert)
	}
	if len(ts.notifier.subjects) != 1 || ts.notifier.subjects[0] != "Budget Alert - Food" {
		t.Errorf("unexpected notifications: %v", ts.notifier.subjects)
	}

	rec = ts.do(t, http.MethodGet, "/api/budgets/status?month=2024-03", token, nil)
	statuses := decode[[]statusDTO](t, rec)
	var food *statusDTO
	for i := range statuses {
		if statuses[i].Category == "Food" {
			food = &statuses[i]
		}
	}
	if food == nil || food.Remaining != "5.00" {
		t.Errorf("unexpected food status: %+v", food)
	}

	rec = ts.do(t, http.MethodGet, "/api/expenses?start=2024-03-01&end=2024-03-31", token, nil)
	if got := decode[[]expenseDTO](t, rec); len(got) != 1 || got[0].AmountCents != 9500 {
		t.Errorf("unexpected expenses: %+v", got)
	}

	rec = ts.do(t, http.MethodGet, "/api/reports?start=2024-03-01&end=2024-03-31", token, nil)
	report := decode[reportDTO](t, rec)
	if report.Total != "95.00" || report.Count != 1 || report.Month != "2024-03" {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestValidationErrors(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "bob")

	tests := []struct {
		name      string
		method    string
		path      string
		body      any
		wantField string
	}{
		{"zero amount", http.MethodPost, "/api/expenses", map[string]any{"category": "Food", "amount": 0, "date": "2024-03-01"}, "amount"},
		{"negative amount", http.MethodPost, "/api/expenses", map[string]any{"category": "Food", "amount": "-5", "date": "2024-03-01"}, "amount"},
		{"bad date", http.MethodPost, "/api/expenses", map[string]any{"category": "Food", "amount": 5, "date": "03/01/2024"}, "date"},
		{"empty category", http.MethodPost, "/api/expenses", map[string]any{"category": " ", "amount": 5, "date": "2024-03-01"}, "category"},
		{"unknown category", http.MethodPost, "/api/expenses", map[string]any{"category": "food", "amount": 5, "date": "2024-03-01"}, "category"},
		{"unknown budget category", http.MethodPut, "/api/budgets", map[string]any{"category": "Travel", "amount": 5}, "category"},
		{"negative budget", http.MethodPut, "/api/budgets", map[string]any{"category": "Food", "amount": "-1"}, "amount"},
		{"bad month", http.MethodGet, "/api/budgets?month=March", nil, "month"},
		{"inverted range", http.MethodGet, "/api/expenses?start=2024-03-31&end=2024-03-01", nil, "start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, token, tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
			}
			if got := decode[errorResponse](t, rec).Field; got != tt.wantField {
				t.Errorf("field = %q, want %q", got, tt.wantField)
			}
		})
	}
}

func TestCreateBudgetConflict(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "carol")
	body := map[string]any{"category": "Bills", "amount": "250", "month": "2024-05"}

	if rec := ts.do(t, http.MethodPost, "/api/budgets", token, body); rec.Code != http.StatusCreated {
		t.Fatalf("first create: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(t, http.MethodPost, "/api/budgets", token, body); rec.Code != http.StatusConflict {
		t.Fatalf("second create: status %d, want 409", rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/api/budgets?month=2024-05", token, nil)
	budgets := decode[[]budgetDTO](t, rec)
	if len(budgets) != 1 || budgets[0].Amount != "250.00" || budgets[0].Month != "2024-05" {
		t.Errorf("unexpected budgets: %+v", budgets)
	}
}

func TestGroupsAreScopedToCreator(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.signup(t, "alice")
	bob := ts.signup(t, "bob")

	rec := ts.do(t, http.MethodPost, "/api/groups", alice, map[string]string{"name": "Trip"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group: status %d body %s", rec.Code, rec.Body.String())
	}
	g := decode[groupDTO](t, rec)
	path := fmt.Sprintf("/api/groups/%d", g.ID)

	rec = ts.do(t, http.MethodPost, path+"/expenses", alice, map[string]any{
		"category": "Transport", "amount": 40, "date": "2024-03-02", "paid_by": "bob",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add expense: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, path+"/summary", alice, nil)
	sum := decode[groupSummaryDTO](t, rec)
	if sum.Total != "40.00" || len(sum.ByPayer) != 1 || sum.ByPayer[0].Username != "bob" {
		t.Errorf("unexpected summary: %+v", sum)
	}

	rec = ts.do(t, http.MethodGet, path+"/expenses", alice, nil)
	if got := decode[[]groupExpenseDTO](t, rec); len(got) != 1 || got[0].PaidBy != "bob" {
		t.Errorf("unexpected group expenses: %+v", got)
	}

	if rec := ts.do(t, http.MethodGet, path+"/summary", bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("other user status = %d, want 404", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/groups/abc/summary", alice, nil); rec.Code != http.StatusNotFound {
		t.Errorf("bad id status = %d, want 404", rec.Code)
	}
}

func TestSendSummary(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.signup(t, "dave")

	ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{"category": "Food", "amount": 12.5, "date": "2024-02-03"})

	rec := ts.do(t, http.MethodPost, "/api/summaries", token, map[string]string{"month": "2024-02"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	res := decode[summaryResponse](t, rec)
	if res.Month != "2024-02" || !res.Delivered || !strings.Contains(res.Body, "Food") {
		t.Errorf("unexpected summary: %+v", res)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 2})

	var last int
	for i := 0; i < 3; i++ {
		last = ts.do(t, http.MethodGet, "/healthz", "", nil).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last)
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	ts := newTestServer(t, Options{})
	rec := ts.do(t, http.MethodGet, "/api/expenses?q=1%20union%20select%20*", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrap: %w", &core.DuplicateKeyError{Entity: "budget"}), http.StatusConflict},
		{core.ErrNotFound, http.StatusNotFound},
		{&core.StoreBusyError{Op: "insert", Attempts: 3, Err: errors.New("locked")}, http.StatusServiceUnavailable},
		{auth.ErrMissingToken, http.StatusUnauthorized},
		{errBadJSON, http.StatusBadRequest},
		{core.ErrStoreFailure, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
