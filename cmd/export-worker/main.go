package main

import (
	"context"
	"errors"
	"time"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentSheets, (*config.Config).ValidateExport)
	logger.Info("Starting export-worker", applog.FieldQueue, cfg.AMQPExportQueue, "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exporter, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	exportWorker := worker.NewExportWorker(exporter)

	client := cli.ConnectAMQP(logger, cfg)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close failed", "error", err)
		}
	})

	if err := client.ConsumeExpenseRecorded(ctx, cfg.AMQPExportQueue, exportWorker.HandleExpenseRecorded); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Export consumption failed", err)
	}

	cli.WaitForShutdown(ctx, done)
}
