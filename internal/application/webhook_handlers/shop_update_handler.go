package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"cartwise-orchestrator/internal/domain"

	"github.com/rs/zerolog"
)

// ShopUpdateHandler records shop profile changes for operator visibility.
type ShopUpdateHandler struct {
	logger zerolog.Logger
}

// NewShopUpdateHandler creates a shop update webhook handler
func NewShopUpdateHandler(logger zerolog.Logger) *ShopUpdateHandler {
	return &ShopUpdateHandler{logger: logger}
}

// CanHandle returns true for the shop update topic
func (h *ShopUpdateHandler) CanHandle(topic string) bool {
	return topic == "shop/update"
}

// Handle processes a shop update webhook event
func (h *ShopUpdateHandler) Handle(_ context.Context, event *domain.WebhookEvent) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to parse shop update payload: %w", err)
	}

	name, _ := payload["name"].(string)
	plan, _ := payload["plan_name"].(string)

	h.logger.Info().
		Str("shop", event.Shop).
		Str("name", name).
		Str("plan", plan).
		Msg("Shop profile updated")

	return nil
}
