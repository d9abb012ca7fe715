package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bankdash/internal/amqp"
	"bankdash/internal/cli"
	"bankdash/internal/log"
	"bankdash/internal/sheets"
	gsheet "bankdash/internal/sheets/google"
	memsheet "bankdash/internal/sheets/memory"
	"bankdash/internal/worker"
)

const statsInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the activity worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	var exporter sheets.ActivityExporter
	if cfg.SheetsEnabled() {
		opts, err := gsheet.OptionsFromConfig(cfg)
		if err != nil {
			logger.Error("Invalid Google Sheets configuration", log.FieldError, err)
			os.Exit(1)
		}
		client, err := gsheet.New(ctx, opts)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleActivitySheet)
	} else {
		exporter = memsheet.New()
		logger.Info("Google Sheets disabled, keeping activity in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	activity := worker.NewActivityWorker(exporter, logger)

	logger.Info("Starting bankdash-worker",
		"queue", cfg.AMQPQueue,
		log.FieldOperation, log.OpStartup)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeTransfers(gctx, activity.HandleTransferMessage)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				processed, failed := activity.Stats()
				fields := []any{"processed", processed, "failed", failed}
				if rows, ok, err := activity.ExportedRows(gctx); err != nil {
					logger.Warn("Failed to count exported rows", log.FieldError, err)
				} else if ok {
					fields = append(fields, "exported_rows", rows)
				}
				logger.Info("Activity export stats", fields...)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	processed, failed := activity.Stats()
	logger.Info("Worker stopped gracefully", "processed", processed, "failed", failed)
}
