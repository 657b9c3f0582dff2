package main

import (
	"context"
	"errors"
	"time"

	"expensetracker/internal/alerts"
	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	applog "expensetracker/internal/log"
	"expensetracker/internal/notify"
	"expensetracker/internal/services"
	"expensetracker/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentSummary, nil)
	logger.Info("Starting summary-worker",
		"day", cfg.SummaryDay,
		"interval", cfg.SummaryInterval,
		"concurrency", cfg.SummaryConcurrency)

	store := cli.OpenStore(context.Background(), logger, cfg)

	var broker *amqp.Client
	var publisher notify.Publisher
	if cfg.AMQPURL != "" {
		broker = cli.ConnectAMQP(logger, cfg)
		publisher = broker
	}

	summaries := services.NewSummaryService(store,
		cli.BuildNotifier(logger, cfg, publisher, amqp.KindMonthlySummary),
		alerts.SummaryOptions{IncludeUnspentBudgets: cfg.SummaryIncludeUnspentBudgets},
		cfg.SummaryConcurrency)

	loop := worker.NewSummaryLoop(summaries, services.SummarySchedule{Day: cfg.SummaryDay}, cfg.SummaryInterval, cfg.SummaryStatePath)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if broker != nil {
			if err := broker.Close(); err != nil {
				logger.Warn("AMQP close failed", "error", err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn("Store close failed", "error", err)
		}
	})

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Summary loop failed", err)
	}

	cli.WaitForShutdown(ctx, done)
}
