package ports

import (
	"context"

	"cartwise-orchestrator/internal/domain"
)

// CatalogProduct is a raw product record as the platform delivers it, either
// a GraphQL catalog node or a webhook payload. Field shapes drift across API
// versions (tags as list or delimited string, several possible image
// fields), so the transform layer resolves attributes from the raw map
// rather than a fixed struct.
type CatalogProduct map[string]interface{}

// CatalogClient reads a merchant's live catalog and manages webhook
// subscriptions over the platform's GraphQL API.
type CatalogClient interface {
	// FetchAllProducts pages through the full catalog with cursor
	// pagination, pausing briefly between pages to respect rate limits.
	FetchAllProducts(ctx context.Context, shopDomain, accessToken string) ([]CatalogProduct, error)

	ListWebhookSubscriptions(ctx context.Context, shopDomain, accessToken string) ([]domain.WebhookSubscription, error)
	CreateWebhookSubscription(ctx context.Context, shopDomain, accessToken, topic, address string) (*domain.WebhookSubscription, error)
	DeleteWebhookSubscription(ctx context.Context, shopDomain, accessToken, subscriptionID string) error
}

// OAuthClient exchanges an authorization code for an access token and
// validates stored tokens against the platform.
type OAuthClient interface {
	ExchangeToken(ctx context.Context, shopDomain, code string) (token string, scopes string, err error)
	ValidateToken(ctx context.Context, shopDomain, accessToken string) (bool, error)
}
