package api

import (
	"errors"
	"net/http"
	"time"

	"cartwise-orchestrator/internal/application"
	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

// SyncHandler exposes manual sync triggers for operators and the admin UI.
type SyncHandler struct {
	service *application.SyncService
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewSyncHandler creates the sync handler
func NewSyncHandler(service *application.SyncService, m *metrics.Metrics, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		metrics: m,
		logger:  logger,
	}
}

// HandleFullSync processes POST /api/sync for one merchant
func (h *SyncHandler) HandleFullSync(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		respondError(w, http.StatusBadRequest, "shop parameter is required")
		return
	}

	start := time.Now()
	result, err := h.service.FullSync(r.Context(), shop)
	h.metrics.SyncDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, domain.ErrUnknownMerchant) {
			h.metrics.SyncRuns.WithLabelValues("caller_error").Inc()
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.metrics.SyncRuns.WithLabelValues("failure").Inc()
		h.logger.Error().Err(err).Str("shop", shop).Msg("Manual sync failed")
		respondError(w, http.StatusBadGateway, "sync failed")
		return
	}

	h.metrics.SyncRuns.WithLabelValues("success").Inc()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

// HandleSyncAll processes POST /api/sync/all across every active merchant
func (h *SyncHandler) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	report := h.service.SyncAllMerchants(r.Context())

	for range report.Succeeded {
		h.metrics.SyncRuns.WithLabelValues("success").Inc()
	}
	for range report.Failed {
		h.metrics.SyncRuns.WithLabelValues("failure").Inc()
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"report":  report,
	})
}
