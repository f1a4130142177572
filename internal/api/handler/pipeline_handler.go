package handler

import (
	"net/http"

	"github.com/streampulse/notify/internal/pending"
)

// PipelineHandler serves a human-readable JSON snapshot of the pipeline's
// discovery state. Raw Prometheus metrics (counters, histograms) are
// available at /metrics via promhttp.Handler and are separate from this
// endpoint.
type PipelineHandler struct {
	store pending.Store
}

func NewPipelineHandler(store pending.Store) *PipelineHandler {
	return &PipelineHandler{store: store}
}

// GetSnapshot handles GET /api/v1/pipeline
//
// @Summary  Pending and parked depth snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/pipeline [get]
func (h *PipelineHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	pendingIDs, err := h.store.PendingIDs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read pending index")
		return
	}
	parkedIDs, err := h.store.ParkedIDs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read parked set")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"pending": len(pendingIDs),
		"parked":  len(parkedIDs),
	})
}
