package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/stickerlab/sticker-engine/pkg/services"
)

// StatsHandler serves the aggregate usage snapshot to the reporting
// collaborator.
type StatsHandler struct {
	usage  services.UsageService
	logger *zap.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(usage services.UsageService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{usage: usage, logger: logger}
}

// RegisterRoutes registers the stats handler's routes on the given mux.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/stats", h.Stats)
}

// Stats handles GET /stats requests.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "only GET is supported")
		return
	}

	snapshot, err := h.usage.StatsSnapshot(r.Context())
	if err != nil {
		h.logger.Error("Failed to build stats snapshot", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "stats_unavailable", "failed to build stats snapshot")
		return
	}

	if err := WriteJSON(w, http.StatusOK, snapshot); err != nil {
		h.logger.Error("Failed to encode stats response", zap.Error(err))
	}
}
