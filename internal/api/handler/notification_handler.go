package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	apimw "github.com/streampulse/notify/internal/api/middleware"
	"github.com/streampulse/notify/internal/domain"
	"github.com/streampulse/notify/internal/service"
)

// NotificationHandler serves the paginated history fetch and the clear
// operation consumed by the client notification store.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/notifications
//
// @Summary  Paginated notification history, newest-first
// @Tags     notifications
// @Produce  json
// @Param    user   query     string  true   "Recipient user ID"
// @Param    type   query     string  false  "Filter by event kind"
// @Param    page   query     int     false  "Page number (default 1)"
// @Param    limit  query     int     false  "Items per page (default 20, max 100)"
// @Success  200    {object}  map[string]any
// @Failure  422    {object}  map[string]string
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	filter := parseListFilter(r)

	notifications, total, err := h.svc.List(r.Context(), userID, filter)
	if err != nil {
		h.logger.Warn("list notifications failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  notifications,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// Clear handles DELETE /api/v1/notifications
//
// @Summary  Delete a user's notifications, optionally by kind
// @Tags     notifications
// @Produce  json
// @Param    user  query     string  true   "Recipient user ID"
// @Param    type  query     string  false  "Restrict deletion to one event kind"
// @Success  200   {object}  map[string]int64
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/notifications [delete]
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")

	var kind *domain.EventKind
	if s := r.URL.Query().Get("type"); s != "" {
		k := domain.EventKind(s)
		kind = &k
	}

	deleted, err := h.svc.Clear(r.Context(), userID, kind)
	if err != nil {
		h.logger.Warn("clear notifications failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func parseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	filter := domain.ListFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if s := q.Get("type"); s != "" {
		k := domain.EventKind(s)
		filter.Type = &k
	}
	return filter
}
