package application

import (
	"context"
	"fmt"
	"testing"

	"cartwise-orchestrator/internal/domain"

	"github.com/rs/zerolog"
)

type stubHandler struct {
	topic   string
	handled []string
	err     error
}

func (h *stubHandler) CanHandle(topic string) bool {
	return topic == h.topic
}

func (h *stubHandler) Handle(_ context.Context, event *domain.WebhookEvent) error {
	h.handled = append(h.handled, event.Topic)
	return h.err
}

func TestDispatchRoutesByTopic(t *testing.T) {
	products := &stubHandler{topic: "products/create"}
	uninstall := &stubHandler{topic: "app/uninstalled"}

	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(products)
	d.RegisterHandler(uninstall)

	err := d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: "products/create", Shop: testShop})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if len(products.handled) != 1 {
		t.Fatalf("product handler not invoked: %v", products.handled)
	}
	if len(uninstall.handled) != 0 {
		t.Fatal("uninstall handler invoked for product topic")
	}
}

func TestDispatchUnclaimedTopicIsNotAnError(t *testing.T) {
	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(&stubHandler{topic: "products/create"})

	if err := d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: "orders/create"}); err != nil {
		t.Fatalf("unclaimed topic must not fail: %v", err)
	}
}

func TestDispatchPropagatesHandlerFailure(t *testing.T) {
	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(&stubHandler{topic: "products/delete", err: fmt.Errorf("mirror write failed")})

	if err := d.Dispatch(context.Background(), &domain.WebhookEvent{Topic: "products/delete"}); err == nil {
		t.Fatal("expected handler failure to propagate")
	}
}
