package application

import (
	"context"
	"fmt"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"github.com/rs/zerolog"
)

// SyncService coordinates the three independently-updated stores: the
// merchant's live catalog, the local mirror, and the recommendation engine's
// index. Every operation converges the downstream views from the mirror,
// never from a partial external fetch, so re-running with the same inputs is
// idempotent at merchant scope. Overlapping triggers on one merchant resolve
// last-write-wins through the store's atomic replace/upsert operations.
type SyncService struct {
	merchants     ports.MerchantRepository
	products      ports.ProductRepository
	events        ports.EventRepository
	catalog       ports.CatalogClient
	engine        ports.EngineClient
	oauth         ports.OAuthClient
	encryptionSvc ports.EncryptionService
	reconciler    *WebhookReconciler
	logger        zerolog.Logger

	validateTokens bool
}

// NewSyncService creates the sync orchestrator
func NewSyncService(
	merchants ports.MerchantRepository,
	products ports.ProductRepository,
	events ports.EventRepository,
	catalog ports.CatalogClient,
	engine ports.EngineClient,
	oauth ports.OAuthClient,
	encryptionSvc ports.EncryptionService,
	reconciler *WebhookReconciler,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		merchants:      merchants,
		products:       products,
		events:         events,
		catalog:        catalog,
		engine:         engine,
		oauth:          oauth,
		encryptionSvc:  encryptionSvc,
		reconciler:     reconciler,
		logger:         logger,
		validateTokens: oauth != nil,
	}
}

// requireMerchant resolves an active-or-inactive merchant with a decrypted
// access token. An unknown merchant is a caller bug and propagates.
func (s *SyncService) requireMerchant(ctx context.Context, shopDomain string) (*domain.Merchant, string, error) {
	merchant, err := s.merchants.Get(ctx, shopDomain)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get merchant: %w", err)
	}
	if merchant == nil {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrUnknownMerchant, shopDomain)
	}
	if merchant.AccessToken == "" {
		return nil, "", fmt.Errorf("merchant has no access token: %s", shopDomain)
	}

	token, err := s.encryptionSvc.Decrypt(merchant.AccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decrypt access token: %w", err)
	}

	return merchant, token, nil
}

// FullSync mirrors a merchant's entire live catalog and pushes the result to
// the recommendation engine. The engine is only updated after the mirror
// write commits, so a transform bug surfaces in the mirror before it can
// reach rankings.
func (s *SyncService) FullSync(ctx context.Context, shopDomain string) (*domain.SyncResult, error) {
	_, token, err := s.requireMerchant(ctx, shopDomain)
	if err != nil {
		return nil, err
	}

	raw, err := s.catalog.FetchAllProducts(ctx, shopDomain, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	products := make([]*domain.Product, 0, len(raw))
	for _, record := range raw {
		product := TransformProduct(shopDomain, record)
		if product.ProductID == "" {
			s.logger.Warn().
				Str("shop", shopDomain).
				Msg("Skipping catalog record with no product id")
			continue
		}
		products = append(products, product)
	}

	if err := s.products.ReplaceAll(ctx, shopDomain, products); err != nil {
		return nil, fmt.Errorf("failed to replace local mirror: %w", err)
	}

	if err := s.pushToEngine(ctx, shopDomain, products); err != nil {
		return nil, err
	}

	if err := s.merchants.StampLastSync(ctx, shopDomain); err != nil {
		return nil, fmt.Errorf("failed to stamp last sync: %w", err)
	}

	s.logger.Info().
		Str("shop", shopDomain).
		Int("products", len(products)).
		Msg("Full sync completed")

	return &domain.SyncResult{MerchantDomain: shopDomain, Products: len(products)}, nil
}

// SyncProduct upserts one product from a webhook payload, then re-pushes the
// merchant's full list. The engine has no partial-update primitive, so every
// touch-point does a full-list replace; wasteful per event but consistent,
// and acceptable at expected catalog sizes.
func (s *SyncService) SyncProduct(ctx context.Context, shopDomain string, raw ports.CatalogProduct) error {
	if _, _, err := s.requireMerchant(ctx, shopDomain); err != nil {
		return err
	}

	product := TransformProduct(shopDomain, raw)
	if product.ProductID == "" {
		return fmt.Errorf("product payload has no id")
	}

	if err := s.products.Upsert(ctx, product); err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	all, err := s.products.ListByMerchant(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to read local mirror: %w", err)
	}

	return s.pushToEngine(ctx, shopDomain, all)
}

// DeleteProduct removes one product from the mirror. When the merchant is
// left with zero products the engine is told to clear its data outright; an
// empty register is not the same operation under the engine's contract.
func (s *SyncService) DeleteProduct(ctx context.Context, shopDomain string, externalID string) error {
	if _, _, err := s.requireMerchant(ctx, shopDomain); err != nil {
		return err
	}

	productID := domain.NormalizeProductID(externalID)
	if productID == "" {
		return fmt.Errorf("product id is required")
	}

	if err := s.products.Delete(ctx, shopDomain, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	count, err := s.products.CountByMerchant(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count == 0 {
		if err := s.engine.Clear(ctx, shopDomain); err != nil {
			return fmt.Errorf("failed to clear engine data: %w", err)
		}
		return nil
	}

	remaining, err := s.products.ListByMerchant(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to read local mirror: %w", err)
	}

	return s.pushToEngine(ctx, shopDomain, remaining)
}

// pushToEngine registers the full product list, or clears the merchant when
// the list is empty
func (s *SyncService) pushToEngine(ctx context.Context, shopDomain string, products []*domain.Product) error {
	if len(products) == 0 {
		if err := s.engine.Clear(ctx, shopDomain); err != nil {
			return fmt.Errorf("failed to clear engine data: %w", err)
		}
		return nil
	}

	if _, err := s.engine.Register(ctx, shopDomain, products); err != nil {
		return fmt.Errorf("failed to register products with engine: %w", err)
	}
	return nil
}

// SyncAllMerchants runs subscription reconciliation and a full sync for
// every active merchant, strictly sequentially to keep external rate-limit
// behavior predictable. One merchant's failure is recorded with its identity
// and never aborts the loop.
func (s *SyncService) SyncAllMerchants(ctx context.Context) *domain.BatchSyncReport {
	report := &domain.BatchSyncReport{}

	merchants, err := s.merchants.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list merchants for batch sync")
		return report
	}

	for _, merchant := range merchants {
		shopDomain := merchant.Domain

		// Reconciliation runs first and independently: a stale callback
		// address must heal even when the catalog sync below fails.
		if s.reconciler != nil {
			if _, token, err := s.requireMerchant(ctx, shopDomain); err == nil {
				if _, err := s.reconciler.EnsureSubscriptions(ctx, shopDomain, token); err != nil {
					s.logger.Warn().
						Err(err).
						Str("shop", shopDomain).
						Msg("Subscription reconciliation failed")
				}
			}
		}

		if s.validateTokens {
			if _, token, err := s.requireMerchant(ctx, shopDomain); err == nil {
				valid, err := s.oauth.ValidateToken(ctx, shopDomain, token)
				if err == nil && !valid {
					s.logger.Warn().
						Str("shop", shopDomain).
						Msg("Deactivating merchant with revoked token")
					if err := s.merchants.SetActive(ctx, shopDomain, false); err != nil {
						s.logger.Error().Err(err).Str("shop", shopDomain).Msg("Failed to deactivate merchant")
					}
					continue
				}
			}
		}

		result, err := s.FullSync(ctx, shopDomain)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("shop", shopDomain).
				Msg("Merchant sync failed")
			report.Failed = append(report.Failed, domain.SyncResult{
				MerchantDomain: shopDomain,
				Err:            err,
				Error:          err.Error(),
			})
			continue
		}

		report.Succeeded = append(report.Succeeded, *result)
	}

	s.logger.Info().
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Msg("Batch sync completed")

	return report
}

// EraseMerchantData wipes a merchant everywhere: engine state, local mirror,
// and recorded events. The merchant record stays soft-deleted for audit
// history. This is the only operation that removes events.
func (s *SyncService) EraseMerchantData(ctx context.Context, shopDomain string) error {
	if err := s.engine.Clear(ctx, shopDomain); err != nil {
		s.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Failed to clear engine data during erase")
	}
	if err := s.products.DeleteByMerchant(ctx, shopDomain); err != nil {
		return fmt.Errorf("failed to delete merchant products: %w", err)
	}
	if s.events != nil {
		if err := s.events.DeleteByMerchant(ctx, shopDomain); err != nil {
			return fmt.Errorf("failed to delete merchant events: %w", err)
		}
	}
	if err := s.merchants.SetActive(ctx, shopDomain, false); err != nil {
		return fmt.Errorf("failed to deactivate merchant: %w", err)
	}
	s.logger.Info().Str("shop", shopDomain).Msg("Merchant data erased")
	return nil
}
