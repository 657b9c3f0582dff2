package http

import (
	"context"
	"net/http"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/metrics"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports a dependency's health without blocking.
type HealthChecker interface {
	Healthy() bool
}

// Deps are the services the API exposes.
type Deps struct {
	Users     *services.UserService
	Expenses  *services.ExpenseService
	Groups    *services.GroupService
	Summaries *services.SummaryService
	JWT       *auth.JWTManager
	// Store and Broker back /readyz; Broker may be nil.
	Store  Pinger
	Broker HealthChecker
}

type Options struct {
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
}

type Server struct {
	http.Server
	deps      Deps
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	startedAt time.Time
}

func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 15 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}

	s := &Server{
		deps:      deps,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  security.NewDetector(),
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = trace.NewMiddleware(s.detector.ClientIP).Middleware(handler)
	handler = s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
	})(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.Handle("GET /api/me", s.authed(s.handleMe))
	mux.Handle("GET /api/categories", s.authed(s.handleListCategories))
	mux.Handle("POST /api/expenses", s.authed(s.handleRecordExpense))
	mux.Handle("GET /api/expenses", s.authed(s.handleListExpenses))
	mux.Handle("GET /api/reports", s.authed(s.handleReport))
	mux.Handle("PUT /api/budgets", s.authed(s.handleSetBudget))
	mux.Handle("POST /api/budgets", s.authed(s.handleCreateBudget))
	mux.Handle("GET /api/budgets", s.authed(s.handleListBudgets))
	mux.Handle("GET /api/budgets/status", s.authed(s.handleBudgetStatus))
	mux.Handle("POST /api/summaries", s.authed(s.handleSendSummary))
	mux.Handle("POST /api/groups", s.authed(s.handleCreateGroup))
	mux.Handle("GET /api/groups", s.authed(s.handleListGroups))
	mux.Handle("POST /api/groups/{id}/expenses", s.authed(s.handleAddGroupExpense))
	mux.Handle("GET /api/groups/{id}/expenses", s.authed(s.handleListGroupExpenses))
	mux.Handle("GET /api/groups/{id}/summary", s.authed(s.handleGroupSummary))
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(s.deps.JWT, writeError)(h)
}

// Shutdown stops the rate limiter sweep and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks the store and, when configured, the broker.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	if s.deps.Broker != nil {
		if s.deps.Broker.Healthy() {
			checks["broker"] = "ok"
		} else {
			checks["broker"] = "disconnected"
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
