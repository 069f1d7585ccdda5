package statestore

import (
	"context"
	"testing"
	"time"

	"cartwise-orchestrator/internal/domain"
)

func TestMemoryStoreConsumeExactlyOnce(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	session := &domain.Session{
		Shop:      "demo.myshopify.com",
		State:     "state-token",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Consume(ctx, "state-token")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if got == nil || got.Shop != "demo.myshopify.com" {
		t.Fatalf("unexpected session: %+v", got)
	}

	// Replay of the same token must fail closed.
	got, err = store.Consume(ctx, "state-token")
	if err != nil {
		t.Fatalf("second Consume errored: %v", err)
	}
	if got != nil {
		t.Fatal("state token redeemed twice")
	}
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := NewMemoryStateStore()

	got, err := store.Consume(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("Consume errored: %v", err)
	}
	if got != nil {
		t.Fatalf("unknown token yielded a session: %+v", got)
	}
}

func TestMemoryStoreExpiredSession(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	store.Put(ctx, &domain.Session{
		Shop:      "demo.myshopify.com",
		State:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Second),
	})

	got, err := store.Consume(ctx, "stale-token")
	if err != nil {
		t.Fatalf("Consume errored: %v", err)
	}
	if got != nil {
		t.Fatal("expired session must not be redeemable")
	}
}
