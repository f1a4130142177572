package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/bus"
	"github.com/streampulse/notify/internal/config"
	"github.com/streampulse/notify/internal/db"
	"github.com/streampulse/notify/internal/enrich"
	"github.com/streampulse/notify/internal/metrics"
	"github.com/streampulse/notify/internal/pending"
	"github.com/streampulse/notify/internal/queue"
	"github.com/streampulse/notify/internal/repository"
	"github.com/streampulse/notify/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- pending-event store ----
	rdb, err := pending.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()
	store := pending.NewRedisStore(rdb)

	// ---- pub/sub bus ----
	natsBus, err := bus.ConnectNATS(cfg.NATSURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to nats", zap.Error(err))
	}
	defer natsBus.Close()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	q := queue.New(cfg.QueueCapacity)
	repo := repository.NewPgNotificationRepository(pool)
	directory := repository.NewPgDirectoryRepository(pool)

	assets := enrich.NewAssets(cfg.AssetBaseURL)
	if !assets.Configured() {
		logger.Warn("ASSET_BASE_URL not set, notifications will omit asset URLs")
	}
	enricher := enrich.New(directory, assets, logger)

	// ---- worker pool ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onEnriched, onParked, onPublishFailure := m.WorkerHooks()
	workerPool := worker.NewPool(cfg, cfg.WorkerCount, worker.Deps{
		Queue:    q,
		Store:    store,
		Enricher: enricher,
		Repo:     repo,
		Bus:      natsBus,
	}, logger, worker.MetricHooks{
		OnEnriched:       onEnriched,
		OnParked:         onParked,
		OnPublishFailure: onPublishFailure,
	})
	workerPool.Start(workerCtx)

	poller := worker.NewPoller(store, q, cfg.PollInterval, logger)
	go poller.Run(workerCtx)

	monitor := worker.NewParkedMonitor(store, cfg.MonitorInterval, m.DepthHook(), logger)
	go monitor.Run(workerCtx)

	// ---- metrics HTTP server ----
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("worker metrics server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop discovery and signal workers to finish their current event.
	cancelWorkers()

	// 2. Wait for in-flight enrichment to complete. Each worker finishes
	//    the event it holds before returning.
	workerPool.Wait()

	// 3. Stop the metrics endpoint.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}

	logger.Info("worker stopped cleanly")
}
