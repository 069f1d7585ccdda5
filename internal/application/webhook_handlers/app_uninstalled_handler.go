package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler deactivates a merchant on uninstall. The merchant
// record is soft-deleted (active=false) so audit history and recorded
// events survive a reinstall; engine-side state is cleared so the engine
// stops ranking for a shop that no longer has the app.
type AppUninstalledHandler struct {
	merchants ports.MerchantRepository
	engine    ports.EngineClient
	logger    zerolog.Logger
}

// NewAppUninstalledHandler creates an app uninstalled webhook handler
func NewAppUninstalledHandler(merchants ports.MerchantRepository, engine ports.EngineClient, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		merchants: merchants,
		engine:    engine,
		logger:    logger,
	}
}

// CanHandle returns true for the uninstall topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle processes an app uninstalled webhook event
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.Shop
	if shopDomain == "" {
		var payload map[string]interface{}
		if err := json.Unmarshal(event.Payload, &payload); err == nil {
			if d, ok := payload["domain"].(string); ok {
				shopDomain = d
			} else if d, ok := payload["myshopify_domain"].(string); ok {
				shopDomain = d
			}
		}
	}
	if shopDomain == "" {
		return fmt.Errorf("uninstall webhook has no shop domain")
	}

	if err := h.merchants.SetActive(ctx, shopDomain, false); err != nil {
		return fmt.Errorf("failed to deactivate merchant: %w", err)
	}

	if err := h.engine.Clear(ctx, shopDomain); err != nil {
		h.logger.Warn().
			Err(err).
			Str("shop", shopDomain).
			Msg("Failed to clear engine data on uninstall")
	}

	h.logger.Info().
		Str("shop", shopDomain).
		Msg("Merchant deactivated after uninstall")

	return nil
}
