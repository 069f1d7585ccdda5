package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the orchestrator's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	SyncRuns     *prometheus.CounterVec
	SyncDuration prometheus.Histogram

	WebhooksReceived *prometheus.CounterVec

	RecommendationRequests *prometheus.CounterVec

	EventsRecorded *prometheus.CounterVec
}

// New creates and registers the orchestrator's collectors on a dedicated
// registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		SyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cartwise_sync_runs_total",
			Help: "Full catalog sync runs by result.",
		}, []string{"result"}),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cartwise_sync_duration_seconds",
			Help:    "Duration of full catalog syncs.",
			Buckets: prometheus.DefBuckets,
		}),
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cartwise_webhooks_received_total",
			Help: "Verified webhook deliveries by topic.",
		}, []string{"topic"}),
		RecommendationRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cartwise_recommendation_requests_total",
			Help: "Storefront recommendation requests by outcome.",
		}, []string{"outcome"}),
		EventsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cartwise_events_recorded_total",
			Help: "Recommendation interaction events by kind.",
		}, []string{"kind"}),
	}
}

// Handler exposes the registry for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
