package ports

import (
	"context"

	"cartwise-orchestrator/internal/domain"
)

// StateStore holds in-flight OAuth sessions keyed by state token with a
// bounded TTL. Consume removes the session atomically so a token can be
// redeemed at most once.
type StateStore interface {
	Put(ctx context.Context, session *domain.Session) error
	Consume(ctx context.Context, state string) (*domain.Session, error)
}
