package api

import (
	"net/http"
	"strconv"
	"strings"

	"cartwise-orchestrator/internal/application"
	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/infrastructure/metrics"
	"cartwise-orchestrator/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

// RecommendHandler serves the storefront widget's app-proxy requests.
// Signature verification is always enforced in production and
// opportunistically whenever a signature is present otherwise.
type RecommendHandler struct {
	service    *application.RecommendationService
	verifier   *shopify.ProxyVerifier
	metrics    *metrics.Metrics
	production bool
	logger     zerolog.Logger
}

// NewRecommendHandler creates the app-proxy recommendation handler
func NewRecommendHandler(
	service *application.RecommendationService,
	verifier *shopify.ProxyVerifier,
	m *metrics.Metrics,
	production bool,
	logger zerolog.Logger,
) *RecommendHandler {
	return &RecommendHandler{
		service:    service,
		verifier:   verifier,
		metrics:    m,
		production: production,
		logger:     logger,
	}
}

// HandleRecommendations processes GET /apps/recommendations
func (h *RecommendHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if h.production || query.Get("signature") != "" {
		if err := h.verifier.Verify(query); err != nil {
			h.logger.Warn().Err(err).Msg("App proxy signature verification failed")
			respondError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	shop := query.Get("shop")
	if shop == "" {
		shop = r.Header.Get("X-Shopify-Shop-Domain")
	}
	if shop == "" {
		respondError(w, http.StatusBadRequest, "shop parameter is required")
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	req := domain.RecommendationRequest{
		MerchantDomain:   shop,
		CurrentProductID: query.Get("product_id"),
		CustomerID:       query.Get("customer_id"),
		ViewedIDs:        splitIDs(query.Get("history")),
		CartIDs:          splitIDs(query.Get("cart")),
		Location:         query.Get("location"),
		Limit:            limit,
	}
	if prefs := query.Get("preferences"); prefs != "" {
		req.Preferences = parsePreferences(prefs)
	}

	items, outcome := h.service.Recommend(r.Context(), req)
	h.metrics.RecommendationRequests.WithLabelValues(string(outcome)).Inc()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"recommendations": items,
		"count":           len(items),
		"fallback":        outcome != application.OutcomePrimary,
	})
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

// parsePreferences reads "vegan,sustainable" style hints into the engine's
// preference flags
func parsePreferences(raw string) map[string]interface{} {
	prefs := make(map[string]interface{})
	for _, hint := range strings.Split(raw, ",") {
		if hint = strings.TrimSpace(hint); hint != "" {
			prefs[hint] = true
		}
	}
	return prefs
}
