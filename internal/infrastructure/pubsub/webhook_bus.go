package pubsub

import (
	"context"
	"sync"

	"cartwise-orchestrator/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookBus decouples webhook acknowledgment from processing. The HTTP
// handler publishes a verified event and returns 200 immediately; a
// background worker drains the queue and dispatches to handlers. A handler
// failure is logged, never propagated back to the platform, so redelivery
// storms cannot start.
type WebhookBus struct {
	events chan *domain.WebhookEvent
	logger zerolog.Logger

	closeOnce sync.Once
}

// NewWebhookBus creates a bus with the given queue capacity
func NewWebhookBus(capacity int, logger zerolog.Logger) *WebhookBus {
	if capacity <= 0 {
		capacity = 256
	}
	return &WebhookBus{
		events: make(chan *domain.WebhookEvent, capacity),
		logger: logger,
	}
}

// Publish enqueues a verified event without blocking the webhook response.
// When the queue is full the event is dropped and logged; the next full
// sync converges the mirror anyway.
func (b *WebhookBus) Publish(event *domain.WebhookEvent) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn().
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Msg("Webhook queue full, dropping event")
	}
}

// Run drains the queue until the context is cancelled, invoking dispatch
// for each event. Dispatch errors are logged with the event identity.
func (b *WebhookBus) Run(ctx context.Context, dispatch func(context.Context, *domain.WebhookEvent) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.events:
			if err := dispatch(ctx, event); err != nil {
				b.logger.Error().
					Err(err).
					Str("topic", event.Topic).
					Str("shop", event.Shop).
					Msg("Failed to process webhook event")
			}
		}
	}
}

// Depth reports the number of queued events
func (b *WebhookBus) Depth() int {
	return len(b.events)
}

// Close releases the queue
func (b *WebhookBus) Close() {
	b.closeOnce.Do(func() {
		close(b.events)
	})
}
