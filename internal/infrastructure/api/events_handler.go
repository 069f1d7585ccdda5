package api

import (
	"encoding/json"
	"net/http"

	"cartwise-orchestrator/internal/application"
	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

// EventsHandler records storefront interaction analytics.
type EventsHandler struct {
	service *application.EventsService
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewEventsHandler creates the events handler
func NewEventsHandler(service *application.EventsService, m *metrics.Metrics, logger zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		service: service,
		metrics: m,
		logger:  logger,
	}
}

type eventRequest struct {
	Shop           string                 `json:"shop"`
	CustomerID     string                 `json:"customer_id"`
	Kind           string                 `json:"kind"`
	ProductID      string                 `json:"product_id"`
	RecommendedIDs []string               `json:"recommended_ids"`
	Placement      string                 `json:"placement"`
	Position       int                    `json:"position"`
	OrderValue     float64                `json:"order_value"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// HandleRecord processes POST /api/events. The response echoes the customer
// id (generated guest id included) for the widget to persist client-side.
func (h *EventsHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event, err := h.service.Record(r.Context(), &domain.RecommendationEvent{
		MerchantDomain: req.Shop,
		CustomerID:     req.CustomerID,
		Kind:           req.Kind,
		ProductID:      req.ProductID,
		RecommendedIDs: req.RecommendedIDs,
		Placement:      req.Placement,
		Position:       req.Position,
		OrderValue:     req.OrderValue,
		Metadata:       req.Metadata,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.metrics.EventsRecorded.WithLabelValues(event.Kind).Inc()

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"event_id":    event.ID,
		"customer_id": event.CustomerID,
	})
}

// HandleSummary processes GET /api/events/summary
func (h *EventsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		respondError(w, http.StatusBadRequest, "shop parameter is required")
		return
	}

	counts, err := h.service.Summary(r.Context(), shop)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to summarize events")
		respondError(w, http.StatusInternalServerError, "failed to summarize events")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"shop":    shop,
		"counts":  counts,
	})
}
