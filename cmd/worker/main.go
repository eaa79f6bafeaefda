package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"beaconattend/internal/config"
	"beaconattend/internal/observability"
	"beaconattend/internal/queue"
	"beaconattend/internal/scanner"
	"beaconattend/internal/store"
)

// Worker consumes scan events from the queue and appends them to the scan log.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := observability.NewLogger("attendance-worker", false, "info")
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := observability.NewLogger("attendance-worker", cfg.Production(), cfg.LogLevel)

	if cfg.QueueBackend == "memory" {
		logger.Fatal().Msg("QUEUE_BACKEND=memory is served in-process by the api; the worker needs redis or nats")
	}
	if cfg.StoreBackend == "memory" {
		logger.Fatal().Msg("STORE_BACKEND=memory cannot be shared with the api; the worker needs postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migrate failed")
	}

	redisClient, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis config invalid")
	}
	defer redisClient.Close()

	q, closeQueue, err := queue.Open(queue.Backend{
		Kind:    cfg.QueueBackend,
		Redis:   redisClient.Client,
		NATSURL: cfg.NATSURL,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("queue init failed")
	}
	defer closeQueue()

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("queue consume init failed")
	}

	scanner.NewRecorder(scanner.NewPostgresLog(db.Client), logger).Run(ctx, messages)
}
