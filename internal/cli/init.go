// Package cli provides common initialization for the binaries under cmd/.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensetracker/internal/amqp"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/notify"
	"expensetracker/internal/storage"
)

// Bootstrap loads .env and the configuration, installs the default
// logger for component and validates with validate. Exits the process
// on validation failure.
func Bootstrap(component string, validate func(*config.Config) error) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// SetupLogger builds the structured logger from LOG_LEVEL and LOG_FORMAT
// and sets it as the default logger.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Format:    cfg.LogFormat,
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// StoreOptions maps the configuration onto storage options.
func StoreOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Dialect:       storage.Dialect(cfg.StoreDriver),
		SQLitePath:    cfg.SQLiteDBPath,
		DatabaseURL:   cfg.DatabaseURL,
		RetryAttempts: cfg.StoreRetryAttempts,
		RetryBackoff:  cfg.StoreRetryBackoff,
		OpTimeout:     cfg.StoreTimeout,
		Categories:    cfg.DefaultCategories,
	}
}

// OpenStore opens, migrates and seeds the configured store.
// Exits the process on failure.
func OpenStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) *storage.Repository {
	repo, err := storage.Open(ctx, StoreOptions(cfg))
	if err != nil {
		logger.Error("Failed to open store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	return repo
}

// ConnectAMQP connects and declares the configured queues.
// Exits the process on failure.
func ConnectAMQP(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPAlertQueue, cfg.AMQPExportQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err, "exchange", cfg.AMQPExchange)
		os.Exit(1)
	}
	return client
}

// SMTPConfig maps the configuration onto the mail notifier settings.
func SMTPConfig(cfg *config.Config) notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
}

// BuildNotifier picks the notifier for NOTIFY_MODE. Queue mode needs a
// publisher and falls back to SMTP without one. kind tags queued messages.
func BuildNotifier(logger *applog.Logger, cfg *config.Config, publisher notify.Publisher, kind string) notify.Notifier {
	switch cfg.NotifyMode {
	case config.NotifyNone:
		logger.Info("Notifications disabled")
		return notify.Nop{}
	case config.NotifyQueue:
		if publisher != nil {
			logger.Info("Notifications routed through AMQP", applog.FieldQueue, cfg.AMQPAlertQueue, "kind", kind)
			return notify.NewQueue(publisher, cfg.AMQPAlertQueue, kind)
		}
		logger.Warn("No AMQP publisher available, delivering notifications over SMTP")
	}

	smtpCfg := SMTPConfig(cfg)
	if !smtpCfg.Configured() {
		logger.Warn("SMTP credentials not set, notifications will not be delivered")
	}
	return notify.NewSMTP(smtpCfg)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Fatal logs err and exits.
func Fatal(logger *applog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
