package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"beaconattend/internal/attendance"
	"beaconattend/internal/config"
	"beaconattend/internal/dashboard"
	"beaconattend/internal/directory"
	"beaconattend/internal/handler"
	"beaconattend/internal/httpmiddleware"
	"beaconattend/internal/observability"
	"beaconattend/internal/queue"
	"beaconattend/internal/scanner"
	"beaconattend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := observability.NewLogger("attendance-api", false, "info")
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := observability.NewLogger("attendance-api", cfg.Production(), cfg.LogLevel)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.RegisterMetrics()
	health := map[string]handler.HealthCheck{}

	var (
		repo    directory.Repository
		ledger  attendance.Ledger
		scanLog scanner.Log
	)
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		repo = directory.NewMemoryRepository()
		ledger = attendance.NewMemoryLedger()
		scanLog = scanner.NewMemoryLog()
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		repo = directory.NewPostgresRepository(db.Client)
		ledger = attendance.NewPostgresLedger(db.Client)
		scanLog = scanner.NewPostgresLog(db.Client)
		health["db"] = db.Healthy
	}

	redisClient, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	cache := redisClient.Client
	if cfg.QueueBackend == "redis" || redisClient.Healthy(ctx) {
		health["redis"] = redisClient.Healthy
	} else {
		logger.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable, dashboard cache disabled")
		cache = nil
	}

	q, closeQueue, err := queue.Open(queue.Backend{
		Kind:    cfg.QueueBackend,
		Redis:   redisClient.Client,
		NATSURL: cfg.NATSURL,
	}, logger)
	if err != nil {
		return err
	}
	defer closeQueue()

	recorderDone := make(chan struct{})
	if cfg.QueueBackend == "memory" {
		// no separate worker can see an in-process queue
		msgs, err := q.Consume(ctx)
		if err != nil {
			return err
		}
		go func() {
			scanner.NewRecorder(scanLog, logger).Run(ctx, msgs)
			close(recorderDone)
		}()
	} else {
		close(recorderDone)
	}

	dirSvc := directory.NewService(repo, validator.New(), logger)
	attSvc := attendance.NewService(repo, ledger, logger)
	h := handler.New(handler.Deps{
		Directory:  dirSvc,
		Attendance: attSvc,
		Scans: scanner.NewOrchestrator(
			scanner.New(cfg.ScannerURL, cfg.ScannerTimeout),
			q,
			cfg.DefaultScanSeconds,
			logger,
		),
		ScanLog:   scanLog,
		Dashboard: dashboard.NewService(dirSvc, attSvc, cache, cfg.DashboardCacheTTL, logger),
		Health:    health,
	}, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.AccessLog(logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Register(r)

	if cfg.FrontendDir != "" {
		r.StaticFile("/", filepath.Join(cfg.FrontendDir, "index.html"))
		r.Static("/static", filepath.Join(cfg.FrontendDir, "static"))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ScannerTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Str("queue", cfg.QueueBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced shutdown")
	}
	stop()
	<-recorderDone

	logger.Info().Msg("server exited")
	return nil
}
