package ports

import (
	"context"

	"cartwise-orchestrator/internal/domain"
)

// MerchantRepository persists installed merchants keyed by shop domain.
type MerchantRepository interface {
	Save(ctx context.Context, merchant *domain.Merchant) error
	Get(ctx context.Context, shopDomain string) (*domain.Merchant, error)
	ListActive(ctx context.Context) ([]*domain.Merchant, error)
	SetActive(ctx context.Context, shopDomain string, active bool) error
	StampLastSync(ctx context.Context, shopDomain string) error
}

// ProductRepository persists the local catalog mirror. Product ids are
// always in normalized GID form; (merchant, product id) is unique.
type ProductRepository interface {
	ReplaceAll(ctx context.Context, shopDomain string, products []*domain.Product) error
	Upsert(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, shopDomain string, productID string) error
	Get(ctx context.Context, shopDomain string, productID string) (*domain.Product, error)
	ListByMerchant(ctx context.Context, shopDomain string) ([]*domain.Product, error)
	CountByMerchant(ctx context.Context, shopDomain string) (int64, error)
	DeleteByMerchant(ctx context.Context, shopDomain string) error
}

// SettingsRepository persists per-merchant recommendation settings.
type SettingsRepository interface {
	Save(ctx context.Context, settings *domain.Settings) error
	Get(ctx context.Context, shopDomain string) (*domain.Settings, error)
}

// EventRepository appends recommendation interaction events.
type EventRepository interface {
	Insert(ctx context.Context, event *domain.RecommendationEvent) error
	CountByKind(ctx context.Context, shopDomain string) (map[string]int64, error)
	DeleteByMerchant(ctx context.Context, shopDomain string) error
}
