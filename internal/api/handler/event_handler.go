package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/streampulse/notify/internal/api/middleware"
	"github.com/streampulse/notify/internal/domain"
	"github.com/streampulse/notify/internal/service"
)

// EventHandler is the producer-facing recording endpoint. The CRUD services
// that own follows, tips, and subscriptions call it at the moment of the
// state change; the response is sent as soon as the pending event is
// durably acknowledged, never waiting on enrichment.
type EventHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewEventHandler(svc *service.NotificationService, logger *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// Record handles POST /api/v1/events
//
// @Summary  Durably record a pending social event
// @Tags     events
// @Accept   json
// @Param    body  body  domain.PendingEvent  true  "Pending event; id must be stable per logical occurrence"
// @Success  202
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/events [post]
func (h *EventHandler) Record(w http.ResponseWriter, r *http.Request) {
	var ev domain.PendingEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.svc.Record(r.Context(), &ev); err != nil {
		h.logger.Warn("record event failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
