package domain

import "time"

// Recommendation event kinds recorded by the storefront widget.
const (
	EventShown       = "shown"
	EventClicked     = "clicked"
	EventAddedToCart = "added_to_cart"
	EventPurchased   = "purchased"
	EventViewed      = "viewed"
)

// ValidEventKind reports whether kind is one of the recordable event kinds.
func ValidEventKind(kind string) bool {
	switch kind {
	case EventShown, EventClicked, EventAddedToCart, EventPurchased, EventViewed:
		return true
	}
	return false
}

// RecommendationEvent is one interaction recorded by the storefront widget.
// Events are append-only: they are never mutated and only removed by a bulk
// merchant-data erasure.
type RecommendationEvent struct {
	ID             string                 `json:"id" bson:"_id"`
	MerchantDomain string                 `json:"merchant_domain" bson:"merchant_domain"`
	CustomerID     string                 `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	Kind           string                 `json:"kind" bson:"kind"`
	ProductID      string                 `json:"product_id,omitempty" bson:"product_id,omitempty"`
	RecommendedIDs []string               `json:"recommended_ids,omitempty" bson:"recommended_ids,omitempty"`
	Placement      string                 `json:"placement,omitempty" bson:"placement,omitempty"`
	Position       int                    `json:"position,omitempty" bson:"position,omitempty"`
	OrderValue     float64                `json:"order_value,omitempty" bson:"order_value,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at" bson:"created_at"`
}
