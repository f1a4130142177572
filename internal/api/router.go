package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/streampulse/notify/internal/api/handler"
	apimw "github.com/streampulse/notify/internal/api/middleware"
	"github.com/streampulse/notify/internal/pending"
	"github.com/streampulse/notify/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
// The realtime WebSocket endpoint is passed in as a plain http.Handler so
// this package does not depend on the gateway internals.
func NewRouter(
	svc *service.NotificationService,
	store pending.Store,
	ws http.Handler,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	nh := handler.NewNotificationHandler(svc, logger)
	eh := handler.NewEventHandler(svc, logger)
	ph := handler.NewPipelineHandler(store)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Realtime transport; the WebSocket handshake bypasses RequestSize
	// concerns as it carries no body.
	if ws != nil {
		r.Handle("/ws", ws)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Producer-facing event recording
		r.Post("/events", eh.Record)

		// Client-facing history fetch and clear
		r.Get("/notifications", nh.List)
		r.Delete("/notifications", nh.Clear)

		// JSON pipeline snapshot
		r.Get("/pipeline", ph.GetSnapshot)
	})

	return r
}
