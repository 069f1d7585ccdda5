package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cartwise-orchestrator/internal/application"
	"cartwise-orchestrator/internal/domain"

	"github.com/rs/zerolog"
)

// SettingsHandler serves the admin settings API consumed by the merchant
// dashboard.
type SettingsHandler struct {
	service *application.SettingsService
	logger  zerolog.Logger
}

// NewSettingsHandler creates the settings handler
func NewSettingsHandler(service *application.SettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGet processes GET /api/settings
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		respondError(w, http.StatusBadRequest, "shop parameter is required")
		return
	}

	settings, err := h.service.Get(r.Context(), shop)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to load settings")
		respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"settings": settings,
	})
}

// HandleSave processes PUT /api/settings
func (h *SettingsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		respondError(w, http.StatusBadRequest, "shop parameter is required")
		return
	}

	var incoming domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	saved, err := h.service.Save(r.Context(), shop, &incoming)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidMode) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to save settings")
		respondError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"settings": saved,
	})
}
