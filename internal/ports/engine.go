package ports

import (
	"context"

	"cartwise-orchestrator/internal/domain"
)

// RegisterResult summarizes an engine-side catalog registration.
type RegisterResult struct {
	Registered int            `json:"registered"`
	Categories map[string]int `json:"categories"`
}

// RecommendQuery is the engine's personalized recommendation request.
type RecommendQuery struct {
	MerchantDomain   string
	CurrentProductID string
	History          *domain.UserHistory
	Location         string
	Preferences      map[string]interface{}
	Settings         *domain.Settings
	K                int
	ExcludeCurrent   bool
	ExcludeViewed    bool
	ExcludePurchased bool
}

// PopularQuery is the engine's cold-start popular-items request.
type PopularQuery struct {
	MerchantDomain string
	Category       string
	Location       string
	Preferences    map[string]interface{}
	K              int
}

// EngineClient talks to the external recommendation engine. Clear is a
// distinct operation from registering an empty product list: the engine
// drops all merchant state only on Clear.
type EngineClient interface {
	Register(ctx context.Context, shopDomain string, products []*domain.Product) (*RegisterResult, error)
	Recommend(ctx context.Context, query RecommendQuery) ([]domain.RecommendedItem, error)
	Popular(ctx context.Context, query PopularQuery) ([]domain.RecommendedItem, error)
	Clear(ctx context.Context, shopDomain string) error
	Health(ctx context.Context) error
}
