package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/alerts"
	"expensetracker/internal/budget"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/notify"
)

// SummaryResult is the outcome of sending one user's monthly summary.
type SummaryResult struct {
	UserID    int64
	Subject   string
	Body      string
	Delivered bool
}

// SummaryRun counts the outcome of a SendAll or Resend pass. FailedUserIDs
// lists the users whose summary could not be built, in ascending order.
type SummaryRun struct {
	Users         int
	Delivered     int
	Undelivered   int
	Failed        int
	FailedUserIDs []int64
}

// SummaryService renders and delivers monthly summaries.
type SummaryService struct {
	store       Store
	aggregator  *budget.Aggregator
	notifier    notify.Notifier
	opts        alerts.SummaryOptions
	concurrency int
}

func NewSummaryService(store Store, notifier notify.Notifier, opts alerts.SummaryOptions, concurrency int) *SummaryService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &SummaryService{
		store:       store,
		aggregator:  budget.NewAggregator(store),
		notifier:    notifier,
		opts:        opts,
		concurrency: concurrency,
	}
}

// Send delivers the summary for the month containing month to userID.
// An undelivered summary is not an error.
func (s *SummaryService) Send(ctx context.Context, userID int64, month core.Date) (SummaryResult, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return SummaryResult{}, fmt.Errorf("get user: %w", err)
	}
	return s.send(ctx, user, month.MonthStart())
}

func (s *SummaryService) send(ctx context.Context, user core.User, month core.Date) (SummaryResult, error) {
	statuses, err := s.aggregator.MonthlyStatus(ctx, user.ID, month)
	if err != nil {
		return SummaryResult{}, err
	}

	spending, budgets := alerts.SummaryInputs(statuses)
	result := SummaryResult{
		UserID:  user.ID,
		Subject: alerts.SummarySubject(month),
		Body:    alerts.GenerateMonthlySummary(month, spending, budgets, s.opts),
	}
	result.Delivered = s.notifier.Deliver(ctx, user.Email, result.Subject, result.Body)
	metrics.Deliveries.WithLabelValues("summary", metrics.DeliveryResult(result.Delivered)).Inc()

	slog.InfoContext(ctx, "Monthly summary processed",
		applog.FieldUserID, user.ID,
		applog.FieldMonth, month.String(),
		"delivered", result.Delivered)

	return result, nil
}

// SendAll sends the month's summary to every user with bounded concurrency.
// One user's failure does not stop the others.
func (s *SummaryService) SendAll(ctx context.Context, month core.Date) (SummaryRun, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return SummaryRun{}, fmt.Errorf("list users: %w", err)
	}
	return s.sendEach(ctx, month.MonthStart(), users, nil)
}

// Resend retries the month's summary for userIDs only.
func (s *SummaryService) Resend(ctx context.Context, month core.Date, userIDs []int64) (SummaryRun, error) {
	var (
		users  []core.User
		failed []int64
	)
	for _, id := range userIDs {
		user, err := s.store.GetUserByID(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return SummaryRun{}, ctx.Err()
			}
			slog.ErrorContext(ctx, "Monthly summary failed", applog.FieldUserID, id, "error", err)
			failed = append(failed, id)
			continue
		}
		users = append(users, user)
	}
	return s.sendEach(ctx, month.MonthStart(), users, failed)
}

func (s *SummaryService) sendEach(ctx context.Context, month core.Date, users []core.User, failed []int64) (SummaryRun, error) {
	run := SummaryRun{Users: len(users) + len(failed), FailedUserIDs: failed}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, user := range users {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			res, err := s.send(gctx, user, month)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				run.FailedUserIDs = append(run.FailedUserIDs, user.ID)
				slog.ErrorContext(gctx, "Monthly summary failed", applog.FieldUserID, user.ID, "error", err)
			case res.Delivered:
				run.Delivered++
			default:
				run.Undelivered++
			}
			return nil
		})
	}

	err := g.Wait()
	sort.Slice(run.FailedUserIDs, func(i, j int) bool { return run.FailedUserIDs[i] < run.FailedUserIDs[j] })
	run.Failed = len(run.FailedUserIDs)
	return run, err
}
