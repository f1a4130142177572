package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/api"
	"github.com/streampulse/notify/internal/bus"
	"github.com/streampulse/notify/internal/config"
	"github.com/streampulse/notify/internal/db"
	"github.com/streampulse/notify/internal/domain"
	"github.com/streampulse/notify/internal/gateway"
	"github.com/streampulse/notify/internal/metrics"
	"github.com/streampulse/notify/internal/pending"
	"github.com/streampulse/notify/internal/repository"
	"github.com/streampulse/notify/internal/service"
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

	// Schema ownership lives with the worker; the gateway only reads and
	// deletes, so it does not migrate.

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
	repo := repository.NewPgNotificationRepository(pool)
	svc := service.NewNotificationService(store, repo, logger, func(kind domain.EventKind) {
		m.EventsRecorded.WithLabelValues(string(kind)).Inc()
	})

	// ---- realtime hub ----
	hub := gateway.NewHub(natsBus, cfg.SendBufferSize, logger, gateway.Hooks{
		OnConnect:    func() { m.GatewayConnections.Inc() },
		OnDisconnect: func() { m.GatewayConnections.Dec() },
		OnDropped:    func() { m.GatewayDropped.Inc() },
	})
	ws := gateway.NewWSHandler(hub, cfg, logger)

	// ---- HTTP server ----
	router := api.NewRouter(svc, store, ws, reg, logger)
	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: cfg.ReadTimeout,
		// No WriteTimeout: it would sever long-lived WebSocket
		// connections. Per-write deadlines are set in the write pump.
	}

	go func() {
		logger.Info("gateway starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new requests and close WebSocket handshakes.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Drop remaining realtime connections; clients reconnect with
	//    backoff and recover missed messages from the durable history.
	hub.Shutdown()

	logger.Info("gateway stopped cleanly")
}
