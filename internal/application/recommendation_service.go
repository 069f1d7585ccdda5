package application

import (
	"context"
	"fmt"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"github.com/rs/zerolog"
)

// RecommendOutcome labels how a recommendation response was produced.
type RecommendOutcome string

const (
	OutcomePrimary  RecommendOutcome = "primary"
	OutcomeFallback RecommendOutcome = "fallback"
	OutcomeEmpty    RecommendOutcome = "empty"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// RecommendationService serves storefront widget queries. It merges
// transient client signals with merchant settings, queries the engine, and
// degrades through popular-items down to an explicit empty result; a widget
// never sees a hard failure for an unlucky query.
type RecommendationService struct {
	products ports.ProductRepository
	settings ports.SettingsRepository
	engine   ports.EngineClient
	logger   zerolog.Logger
}

// NewRecommendationService creates the request handler's service
func NewRecommendationService(
	products ports.ProductRepository,
	settings ports.SettingsRepository,
	engine ports.EngineClient,
	logger zerolog.Logger,
) *RecommendationService {
	return &RecommendationService{
		products: products,
		settings: settings,
		engine:   engine,
		logger:   logger,
	}
}

// Recommend resolves one widget query end to end.
func (s *RecommendationService) Recommend(ctx context.Context, req domain.RecommendationRequest) ([]domain.RecommendedItem, RecommendOutcome) {
	current := domain.NormalizeProductID(req.CurrentProductID)
	viewed := domain.NormalizeProductIDs(req.ViewedIDs)
	cart := domain.NormalizeProductIDs(req.CartIDs)

	history := &domain.UserHistory{Viewed: viewed, Cart: cart}

	// Pivot rule: with no current-product context the first cart item
	// anchors the query. First cart item, not most-recent-viewed.
	pivot := current
	if pivot == "" && len(cart) > 0 {
		pivot = cart[0]
	}

	settings := s.loadSettings(ctx, req.MerchantDomain)

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	query := ports.RecommendQuery{
		MerchantDomain:   req.MerchantDomain,
		CurrentProductID: pivot,
		History:          history,
		Location:         req.Location,
		Preferences:      req.Preferences,
		Settings:         settings,
		K:                limit,
		ExcludeCurrent:   current != "",
		ExcludeViewed:    settings.Filters.ExcludeViewed,
		ExcludePurchased: settings.Filters.ExcludePurchased,
	}

	items, err := s.engine.Recommend(ctx, query)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("shop", req.MerchantDomain).
			Msg("Engine recommend failed, falling back to popular items")
		return s.popularFallback(ctx, req, limit)
	}

	if current == "" && len(viewed) > 0 {
		items = s.prependRecentlyViewed(ctx, req.MerchantDomain, viewed, items, limit)
	}

	s.enrichURLs(ctx, req.MerchantDomain, items)
	return items, OutcomePrimary
}

func (s *RecommendationService) loadSettings(ctx context.Context, shopDomain string) *domain.Settings {
	settings, err := s.settings.Get(ctx, shopDomain)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Failed to load settings, using defaults")
	}
	if settings == nil {
		return domain.DefaultSettings(shopDomain)
	}
	return settings
}

// popularFallback answers with merchant-scoped popular items; when that also
// yields nothing the response is an explicit empty list, never an error.
func (s *RecommendationService) popularFallback(ctx context.Context, req domain.RecommendationRequest, limit int) ([]domain.RecommendedItem, RecommendOutcome) {
	items, err := s.engine.Popular(ctx, ports.PopularQuery{
		MerchantDomain: req.MerchantDomain,
		Location:       req.Location,
		Preferences:    req.Preferences,
		K:              limit,
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("shop", req.MerchantDomain).
			Msg("Popular fallback also failed, returning empty result")
		return []domain.RecommendedItem{}, OutcomeEmpty
	}

	s.enrichURLs(ctx, req.MerchantDomain, items)
	return items, OutcomeFallback
}

// prependRecentlyViewed boosts recency for cold segments: history items the
// engine omitted are looked up in the mirror and prepended with maximal
// relevance, then the merged list is cut to the limit.
func (s *RecommendationService) prependRecentlyViewed(ctx context.Context, shopDomain string, viewed []string, items []domain.RecommendedItem, limit int) []domain.RecommendedItem {
	returned := make(map[string]struct{}, len(items))
	for _, item := range items {
		returned[item.ProductID] = struct{}{}
	}

	var prepend []domain.RecommendedItem
	for _, id := range viewed {
		if _, ok := returned[id]; ok {
			continue
		}
		product, err := s.products.Get(ctx, shopDomain, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("shop", shopDomain).Str("product", id).Msg("Failed to look up viewed product")
			continue
		}
		if product == nil {
			continue
		}
		prepend = append(prepend, domain.RecommendedItem{
			ProductID: product.ProductID,
			Title:     product.Title,
			Price:     product.Price,
			Image:     product.Image,
			Tags:      product.Tags,
			Score:     1.0,
			Reason:    domain.ReasonRecentlyViewed,
		})
	}

	merged := append(prepend, items...)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// enrichURLs resolves each item's storefront URL from the mirrored handle.
// An unresolvable handle yields an empty URL, not a failed response.
func (s *RecommendationService) enrichURLs(ctx context.Context, shopDomain string, items []domain.RecommendedItem) {
	for i := range items {
		product, err := s.products.Get(ctx, shopDomain, items[i].ProductID)
		if err != nil || product == nil || product.Handle == "" {
			items[i].URL = ""
			continue
		}
		items[i].URL = fmt.Sprintf("https://%s/products/%s", shopDomain, product.Handle)
	}
}
