package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"cartwise-orchestrator/internal/application"
	"cartwise-orchestrator/internal/domain"

	"github.com/rs/zerolog"
)

// ProductHandler feeds product lifecycle webhooks into the sync
// orchestrator: create/update upserts a single product, delete removes it.
type ProductHandler struct {
	syncService *application.SyncService
	logger      zerolog.Logger
}

// NewProductHandler creates a product webhook handler
func NewProductHandler(syncService *application.SyncService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// CanHandle returns true for product lifecycle topics
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == "products/create" ||
		topic == "products/update" ||
		topic == "products/delete"
}

// Handle processes a product webhook event
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to parse product webhook payload: %w", err)
	}

	if event.Shop == "" {
		return fmt.Errorf("product webhook has no shop domain")
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Msg("Processing product webhook event")

	if event.Topic == "products/delete" {
		id, ok := payload["id"]
		if !ok {
			return fmt.Errorf("product delete webhook has no id")
		}
		return h.syncService.DeleteProduct(ctx, event.Shop, rawID(id))
	}

	return h.syncService.SyncProduct(ctx, event.Shop, payload)
}

func rawID(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
