package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"cartwise-orchestrator/internal/application"
	"cartwise-orchestrator/internal/domain"

	"github.com/rs/zerolog"
)

// ShopRedactHandler processes the shop/redact compliance webhook, delivered
// 48 hours after uninstall. Unlike uninstall itself this is a full erasure:
// local mirror, recorded events, and engine state all go.
type ShopRedactHandler struct {
	syncService *application.SyncService
	logger      zerolog.Logger
}

// NewShopRedactHandler creates a shop redact webhook handler
func NewShopRedactHandler(syncService *application.SyncService, logger zerolog.Logger) *ShopRedactHandler {
	return &ShopRedactHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// CanHandle returns true for the shop redact topic
func (h *ShopRedactHandler) CanHandle(topic string) bool {
	return topic == "shop/redact"
}

// Handle erases all stored data for the redacted shop
func (h *ShopRedactHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.Shop
	if shopDomain == "" {
		var payload struct {
			ShopDomain string `json:"shop_domain"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err == nil {
			shopDomain = payload.ShopDomain
		}
	}
	if shopDomain == "" {
		return fmt.Errorf("shop redact webhook has no shop domain")
	}

	h.logger.Info().Str("shop", shopDomain).Msg("Processing shop redact request")
	return h.syncService.EraseMerchantData(ctx, shopDomain)
}
