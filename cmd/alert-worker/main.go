package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/notify"
	"expensetracker/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker, func(c *config.Config) error {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.AMQPURL == "" {
			return fmt.Errorf("configuration validation failed:\n- AMQP_URL is required for the alert worker")
		}
		return nil
	})
	logger.Info("Starting alert-worker", applog.FieldQueue, cfg.AMQPAlertQueue)

	smtpCfg := cli.SMTPConfig(cfg)
	if !smtpCfg.Configured() {
		logger.Warn("SMTP credentials not set, alerts will be requeued once and then dropped")
	}
	alertWorker := worker.NewAlertWorker(notify.NewSMTP(smtpCfg))

	client := cli.ConnectAMQP(logger, cfg)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close failed", "error", err)
		}
	})

	if err := client.ConsumeAlerts(ctx, cfg.AMQPAlertQueue, alertWorker.HandleAlert); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Alert consumption failed", err)
	}

	cli.WaitForShutdown(ctx, done)
}
