// Command paydo-worker consumes ledger events and mirrors transactions into
// Elasticsearch and Google Sheets.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"paydo/internal/amqp"
	"paydo/internal/cli"
	"paydo/internal/config"
	applog "paydo/internal/log"
	"paydo/internal/search"
	"paydo/internal/sheets"
	"paydo/internal/worker"
)

const (
	handlerTimeout  = 30 * time.Second
	reconnectDelay  = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, applog.ComponentWorker)
	logger.Info("Starting paydo-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	sinks, err := buildSinks(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize sinks", applog.FieldError, err)
		os.Exit(1)
	}
	if len(sinks) == 0 {
		logger.Warn("No sinks configured, events will be acknowledged and dropped")
	}
	syncWorker := worker.NewSyncWorker(handlerTimeout, sinks...)

	client, err := amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		amqp.WithPrefetch(cfg.AMQPPrefetch))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close AMQP client", applog.FieldError, err)
		}
	})

	logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue, "sinks", syncWorker.Sinks())
	consume(ctx, logger, client, syncWorker)
	<-done
	logger.Info("Worker stopped gracefully")
}

// consume keeps the consumer running until ctx is done, reconnecting after
// broker failures.
func consume(ctx context.Context, logger *applog.Logger, client *amqp.Client, w *worker.SyncWorker) {
	for {
		err := client.ConsumeEvents(ctx, w.HandleEvent)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed, retrying", applog.FieldError, err, "delay", reconnectDelay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// buildSinks creates every sink enabled by cfg.
func buildSinks(ctx context.Context, cfg *config.Config) ([]worker.Sink, error) {
	var sinks []worker.Sink

	if len(cfg.ElasticsearchURLs) > 0 {
		ix, err := search.NewIndexer(cfg.ElasticsearchURLs, cfg.ElasticsearchIndex)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ix)
	}

	if cfg.GoogleSpreadsheetID != "" {
		ex, err := sheets.NewExporter(ctx, sheets.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ex)
	}

	return sinks, nil
}
