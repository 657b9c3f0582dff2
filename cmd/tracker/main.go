package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"expensetracker/internal/alerts"
	"expensetracker/internal/amqp"
	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/notify"
	"expensetracker/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp, (*config.Config).ValidateServer)
	logger.Info("Starting tracker", "port", cfg.Port, "store", cfg.StoreDriver, "notify_mode", cfg.NotifyMode)

	store := cli.OpenStore(context.Background(), logger, cfg)

	// AMQP is optional for the API: without it nothing is exported and
	// alerts go straight to SMTP.
	var broker *amqp.Client
	var publisher notify.Publisher
	if cfg.AMQPURL != "" {
		broker = cli.ConnectAMQP(logger, cfg)
		publisher = broker
	}

	expenseOpts := services.ExpenseServiceOptions{
		Notifier:  cli.BuildNotifier(logger, cfg, publisher, amqp.KindBudgetAlert),
		Threshold: cfg.AlertThreshold,
	}
	if broker != nil {
		expenseOpts.Publisher = broker
		expenseOpts.ExportQueue = cfg.AMQPExportQueue
	}
	expenses := services.NewExpenseService(store, expenseOpts)

	caches := cache.NewManager()
	caches.Register(expenses.Categories())
	caches.StartCleanup(time.Minute)

	summaries := services.NewSummaryService(store,
		cli.BuildNotifier(logger, cfg, publisher, amqp.KindMonthlySummary),
		alerts.SummaryOptions{IncludeUnspentBudgets: cfg.SummaryIncludeUnspentBudgets},
		cfg.SummaryConcurrency)

	deps := apphttp.Deps{
		Users:     services.NewUserService(store),
		Expenses:  expenses,
		Groups:    services.NewGroupService(store, expenses),
		Summaries: summaries,
		JWT:       auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		Store:     store,
	}
	if broker != nil {
		deps.Broker = broker
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps, apphttp.Options{RateLimitPerMinute: cfg.RateLimitPerMinute})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", "error", err)
		}
		caches.Stop()
		if broker != nil {
			if err := broker.Close(); err != nil {
				logger.Warn("AMQP close failed", "error", err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn("Store close failed", "error", err)
		}
	})

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cli.Fatal(logger, "HTTP server failed", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
