package application

import (
	"context"
	"fmt"
	"time"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventsService records storefront interaction analytics. The collection is
// append-only; events survive merchant uninstall and only vanish on bulk
// merchant-data erasure.
type EventsService struct {
	events ports.EventRepository
	logger zerolog.Logger
}

// NewEventsService creates an events service
func NewEventsService(events ports.EventRepository, logger zerolog.Logger) *EventsService {
	return &EventsService{
		events: events,
		logger: logger,
	}
}

// Record validates and appends one event. A missing customer id gets a
// generated anonymous guest id which the caller persists client-side and
// sends back on subsequent events.
func (s *EventsService) Record(ctx context.Context, event *domain.RecommendationEvent) (*domain.RecommendationEvent, error) {
	if event.MerchantDomain == "" {
		return nil, fmt.Errorf("merchant domain is required")
	}
	if !domain.ValidEventKind(event.Kind) {
		return nil, fmt.Errorf("invalid event kind: %q", event.Kind)
	}

	event.ID = uuid.NewString()
	if event.CustomerID == "" {
		event.CustomerID = "guest-" + uuid.NewString()
	}
	event.ProductID = domain.NormalizeProductID(event.ProductID)
	event.RecommendedIDs = domain.NormalizeProductIDs(event.RecommendedIDs)
	event.CreatedAt = time.Now()

	if err := s.events.Insert(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

// Summary returns per-kind event counts for a merchant
func (s *EventsService) Summary(ctx context.Context, shopDomain string) (map[string]int64, error) {
	if shopDomain == "" {
		return nil, fmt.Errorf("merchant domain is required")
	}
	return s.events.CountByKind(ctx, shopDomain)
}
