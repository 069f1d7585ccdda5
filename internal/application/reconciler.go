package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultWebhookTopics is the desired subscription set: every topic the
// orchestrator consumes, all delivered to the single webhook endpoint.
func DefaultWebhookTopics() map[string]string {
	return map[string]string{
		"products/create": "/webhooks/shopify",
		"products/update": "/webhooks/shopify",
		"products/delete": "/webhooks/shopify",
		"app/uninstalled": "/webhooks/shopify",
		"shop/update":     "/webhooks/shopify",
	}
}

// WebhookReconciler diffs desired against registered webhook subscriptions
// and converges them. The public base URL changes across deployments and
// tunnels, and a subscription pointing at a dead address silently stops
// delivering; running this on every install and startup pass is the
// self-healing mechanism for that drift.
type WebhookReconciler struct {
	catalog ports.CatalogClient
	baseURL string
	topics  map[string]string
	logger  zerolog.Logger
}

// NewWebhookReconciler creates a reconciler for the given public base URL
func NewWebhookReconciler(catalog ports.CatalogClient, baseURL string, logger zerolog.Logger) *WebhookReconciler {
	return &WebhookReconciler{
		catalog: catalog,
		baseURL: strings.TrimRight(baseURL, "/"),
		topics:  DefaultWebhookTopics(),
		logger:  logger,
	}
}

// EnsureSubscriptions reconciles one merchant's subscriptions: stale
// addresses are deleted, duplicate matches are pruned to exactly one, and
// missing topics are created at the desired address.
func (r *WebhookReconciler) EnsureSubscriptions(ctx context.Context, shopDomain, accessToken string) (domain.ReconcileResult, error) {
	var result domain.ReconcileResult

	existing, err := r.catalog.ListWebhookSubscriptions(ctx, shopDomain, accessToken)
	if err != nil {
		return result, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	byTopic := make(map[string][]domain.WebhookSubscription)
	for _, sub := range existing {
		byTopic[sub.Topic] = append(byTopic[sub.Topic], sub)
	}

	// Deterministic topic order keeps logs and counts stable across runs.
	topics := make([]string, 0, len(r.topics))
	for topic := range r.topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		desired := r.baseURL + r.topics[topic]

		var matches, stale []domain.WebhookSubscription
		for _, sub := range byTopic[topic] {
			if sameAddress(sub.Address, desired) {
				matches = append(matches, sub)
			} else {
				stale = append(stale, sub)
			}
		}

		for _, sub := range stale {
			if err := r.catalog.DeleteWebhookSubscription(ctx, shopDomain, accessToken, sub.ID); err != nil {
				return result, fmt.Errorf("failed to delete stale subscription for %s: %w", topic, err)
			}
			result.Removed++
			r.logger.Info().
				Str("shop", shopDomain).
				Str("topic", topic).
				Str("address", sub.Address).
				Msg("Removed stale webhook subscription")
		}

		if len(matches) > 0 {
			// Keep exactly one; extra duplicates deliver the same event
			// twice and get pruned.
			for _, sub := range matches[1:] {
				if err := r.catalog.DeleteWebhookSubscription(ctx, shopDomain, accessToken, sub.ID); err != nil {
					return result, fmt.Errorf("failed to prune duplicate subscription for %s: %w", topic, err)
				}
				result.Removed++
			}
			result.Unchanged++
			continue
		}

		if _, err := r.catalog.CreateWebhookSubscription(ctx, shopDomain, accessToken, topic, desired); err != nil {
			return result, fmt.Errorf("failed to create subscription for %s: %w", topic, err)
		}
		result.Created++
		r.logger.Info().
			Str("shop", shopDomain).
			Str("topic", topic).
			Str("address", desired).
			Msg("Created webhook subscription")
	}

	return result, nil
}

// sameAddress compares callback addresses ignoring trailing slashes
func sameAddress(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}
