package pubsub

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cartwise-orchestrator/internal/domain"

	"github.com/rs/zerolog"
)

func TestBusDeliversPublishedEvents(t *testing.T) {
	bus := NewWebhookBus(8, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *domain.WebhookEvent, 1)
	go bus.Run(ctx, func(_ context.Context, event *domain.WebhookEvent) error {
		received <- event
		return nil
	})

	bus.Publish(&domain.WebhookEvent{Topic: "products/create", Shop: "demo.myshopify.com"})

	select {
	case event := <-received:
		if event.Topic != "products/create" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	// No consumer running; the queue fills and further publishes drop
	// instead of blocking the webhook response path.
	bus := NewWebhookBus(2, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			bus.Publish(&domain.WebhookEvent{Topic: "products/update"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	if bus.Depth() != 2 {
		t.Fatalf("expected queue depth 2, got %d", bus.Depth())
	}
}

func TestBusContinuesAfterDispatchError(t *testing.T) {
	bus := NewWebhookBus(8, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 2)
	go bus.Run(ctx, func(_ context.Context, event *domain.WebhookEvent) error {
		received <- event.Topic
		if event.Topic == "products/delete" {
			return fmt.Errorf("mirror write failed")
		}
		return nil
	})

	bus.Publish(&domain.WebhookEvent{Topic: "products/delete"})
	bus.Publish(&domain.WebhookEvent{Topic: "products/create"})

	for _, want := range []string{"products/delete", "products/create"} {
		select {
		case got := <-received:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("never received %s", want)
		}
	}
}
