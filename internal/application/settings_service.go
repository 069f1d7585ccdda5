package application

import (
	"context"
	"fmt"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"github.com/rs/zerolog"
)

// SettingsService serves the admin settings API.
type SettingsService struct {
	settings ports.SettingsRepository
	logger   zerolog.Logger
}

// NewSettingsService creates a settings service
func NewSettingsService(settings ports.SettingsRepository, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		settings: settings,
		logger:   logger,
	}
}

// Get returns a merchant's settings, or the system defaults when none are
// saved. Defaults are not persisted on read.
func (s *SettingsService) Get(ctx context.Context, shopDomain string) (*domain.Settings, error) {
	settings, err := s.settings.Get(ctx, shopDomain)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return domain.DefaultSettings(shopDomain), nil
	}
	return settings, nil
}

// Save persists a merchant's settings. In autopilot mode the filter and
// weight sets are forcibly overwritten with the system defaults on every
// save, regardless of what the caller sent for those fields. Manual-mode
// weights persist verbatim; the presenting UI owns the sum-to-100%
// constraint.
func (s *SettingsService) Save(ctx context.Context, shopDomain string, incoming *domain.Settings) (*domain.Settings, error) {
	if incoming.Mode != domain.ModeAutopilot && incoming.Mode != domain.ModeManual {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, incoming.Mode)
	}

	incoming.MerchantDomain = shopDomain

	if incoming.Mode == domain.ModeAutopilot {
		incoming.Filters = domain.DefaultFilters()
		incoming.Weights = domain.DefaultWeights()
	}

	if err := s.settings.Save(ctx, incoming); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("shop", shopDomain).
		Str("mode", incoming.Mode).
		Msg("Settings saved")

	return incoming, nil
}
