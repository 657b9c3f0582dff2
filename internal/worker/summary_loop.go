package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

type SummarySender interface {
	SendAll(ctx context.Context, month core.Date) (services.SummaryRun, error)
	Resend(ctx context.Context, month core.Date, userIDs []int64) (services.SummaryRun, error)
}

// ErrSummariesIncomplete is returned by Tick when some users' summaries
// failed. Those users are retried on the following ticks.
var ErrSummariesIncomplete = errors.New("monthly summaries incomplete")

// SummaryLoop checks the schedule on every tick and sends the previous
// month's summaries when a run is due.
type SummaryLoop struct {
	sender    SummarySender
	schedule  services.SummarySchedule
	interval  time.Duration
	statePath string
	now       func() time.Time
	lastRun   time.Time

	// pending holds users whose summary for pendingMonth still has to be
	// sent. It is not persisted.
	pending      []int64
	pendingMonth core.Date
}

// NewSummaryLoop builds a loop. When statePath is set the last run time
// is kept there so restarts do not resend a month.
func NewSummaryLoop(sender SummarySender, schedule services.SummarySchedule, interval time.Duration, statePath string) *SummaryLoop {
	if interval <= 0 {
		interval = time.Hour
	}
	l := &SummaryLoop{
		sender:    sender,
		schedule:  schedule,
		interval:  interval,
		statePath: statePath,
		now:       time.Now,
	}
	l.lastRun = l.loadState()
	return l
}

// Run ticks until ctx is cancelled.
func (l *SummaryLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	if _, err := l.Tick(ctx); err != nil {
		slog.ErrorContext(ctx, "Summary run failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := l.Tick(ctx); err != nil {
				slog.ErrorContext(ctx, "Summary run failed", "error", err)
			}
		}
	}
}

// Tick runs the summaries if due, or retries the users a previous run
// failed for, and reports whether it sent anything.
func (l *SummaryLoop) Tick(ctx context.Context) (bool, error) {
	now := l.now().UTC()

	if len(l.pending) > 0 && l.schedule.Month(now).String() != l.pendingMonth.String() {
		slog.WarnContext(ctx, "Giving up on monthly summaries",
			applog.FieldMonth, l.pendingMonth.MonthLabel(),
			"users", len(l.pending))
		l.pending = nil
	}

	var (
		month core.Date
		run   services.SummaryRun
		err   error
	)
	if len(l.pending) > 0 {
		month = l.pendingMonth
		slog.InfoContext(ctx, "Retrying monthly summaries", applog.FieldMonth, month.MonthLabel(), "users", len(l.pending))
		run, err = l.sender.Resend(ctx, month, l.pending)
	} else {
		if !l.schedule.IsDue(l.lastRun, now) {
			return false, nil
		}
		month = l.schedule.Month(now)
		slog.InfoContext(ctx, "Sending monthly summaries", applog.FieldMonth, month.MonthLabel())
		run, err = l.sender.SendAll(ctx, month)
	}
	if err != nil {
		return false, fmt.Errorf("send summaries for %s: %w", month.MonthLabel(), err)
	}

	slog.InfoContext(ctx, "Monthly summaries sent",
		applog.FieldMonth, month.MonthLabel(),
		"users", run.Users,
		"delivered", run.Delivered,
		"undelivered", run.Undelivered,
		"failed", run.Failed)

	if len(run.FailedUserIDs) > 0 {
		l.pending = run.FailedUserIDs
		l.pendingMonth = month
		return true, fmt.Errorf("%w: %d of %d users for %s",
			ErrSummariesIncomplete, len(run.FailedUserIDs), run.Users, month.MonthLabel())
	}

	l.pending = nil
	l.lastRun = now
	l.saveState(ctx)
	return true, nil
}

func (l *SummaryLoop) loadState() time.Time {
	if l.statePath == "" {
		return time.Time{}
	}
	data, err := os.ReadFile(l.statePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Could not read summary state", "path", l.statePath, "error", err)
		}
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		slog.Warn("Ignoring corrupt summary state", "path", l.statePath, "error", err)
		return time.Time{}
	}
	return t
}

func (l *SummaryLoop) saveState(ctx context.Context) {
	if l.statePath == "" {
		return
	}
	if err := os.WriteFile(l.statePath, []byte(l.lastRun.Format(time.RFC3339)), 0o644); err != nil {
		slog.WarnContext(ctx, "Could not save summary state", "path", l.statePath, "error", err)
	}
}
