package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"reportsvc/internal/amqp"
	"reportsvc/internal/config"
	"reportsvc/internal/core"
	"reportsvc/internal/log"
	"reportsvc/internal/storage"
	"reportsvc/internal/worker"
)

func main() {
	// Load .env for local development; in containers the environment is
	// already populated.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.ParseLevel(cfg.LogLevel), log.ComponentWorker)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("starting report-worker")

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to open storage", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, amqp.Queues{
		Created: cfg.QueueCreated,
		Updated: cfg.QueueUpdated,
		Deleted: cfg.QueueDeleted,
	})
	if err != nil {
		logger.Error("failed to connect to broker", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	proc := worker.NewProcessor(store, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range []core.EventKind{core.EventCreated, core.EventUpdated, core.EventDeleted} {
		kind := kind
		g.Go(func() error {
			logger.Info("consuming", log.FieldQueue, amqpClient.QueueFor(kind))
			return amqpClient.Consume(ctx, kind, proc.Handle)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("report-worker shut down")
}
