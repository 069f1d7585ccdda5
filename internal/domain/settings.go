package domain

import (
	"errors"
	"time"
)

// Settings modes. In autopilot the system manages filters and weights; in
// manual mode the merchant controls them from the admin UI.
const (
	ModeAutopilot = "autopilot"
	ModeManual    = "manual"
)

// ErrInvalidMode reports a settings save with a mode outside the known set.
var ErrInvalidMode = errors.New("invalid settings mode")

// Settings holds per-merchant recommendation configuration, one-to-one with
// the merchant by shop domain.
type Settings struct {
	MerchantDomain string         `json:"merchant_domain" bson:"merchant_domain"`
	Mode           string         `json:"mode" bson:"mode"`
	Filters        FilterSettings `json:"filters" bson:"filters"`
	Weights        SignalWeights  `json:"weights" bson:"weights"`
	Design         DesignSettings `json:"design" bson:"design"`
	UpdatedAt      time.Time      `json:"updated_at" bson:"updated_at"`
}

// FilterSettings controls candidate filtering in the recommendation engine.
type FilterSettings struct {
	PriceProximityRange float64 `json:"priceProximityRange" bson:"price_proximity_range"`
	TagBoostWeight      float64 `json:"tagBoostWeight" bson:"tag_boost_weight"`
	LocationFilter      bool    `json:"locationFilter" bson:"location_filter"`
	Vegan               bool    `json:"vegan" bson:"vegan"`
	Sustainable         bool    `json:"sustainable" bson:"sustainable"`
	ExcludeViewed       bool    `json:"excludeViewed" bson:"exclude_viewed"`
	ExcludePurchased    bool    `json:"excludePurchased" bson:"exclude_purchased"`
	SameCategoryOnly    bool    `json:"sameCategoryOnly" bson:"same_category_only"`
}

// SignalWeights weighs the behavioral signals the engine blends into its
// query vector. The admin UI constrains the four values to sum to 100%; the
// backend persists manual-mode values verbatim.
type SignalWeights struct {
	CurrentProduct float64 `json:"currentProduct" bson:"current_product"`
	Purchased      float64 `json:"purchased" bson:"purchased"`
	AddedToCart    float64 `json:"addedToCart" bson:"added_to_cart"`
	Viewed         float64 `json:"viewed" bson:"viewed"`
}

// DesignSettings are storefront widget display preferences. The backend
// stores them opaquely for the widget to read back.
type DesignSettings struct {
	Placement    string `json:"placement,omitempty" bson:"placement,omitempty"`
	Heading      string `json:"heading,omitempty" bson:"heading,omitempty"`
	MaxItems     int    `json:"maxItems,omitempty" bson:"max_items,omitempty"`
	AccentColor  string `json:"accentColor,omitempty" bson:"accent_color,omitempty"`
	ShowPrices   bool   `json:"showPrices" bson:"show_prices"`
	ShowVendor   bool   `json:"showVendor" bson:"show_vendor"`
	CarouselMode bool   `json:"carouselMode" bson:"carousel_mode"`
}

// DefaultSettings returns the system-managed configuration applied to new
// merchants and forcibly re-applied on every autopilot save.
func DefaultSettings(merchantDomain string) *Settings {
	return &Settings{
		MerchantDomain: merchantDomain,
		Mode:           ModeAutopilot,
		Filters:        DefaultFilters(),
		Weights:        DefaultWeights(),
		Design: DesignSettings{
			Placement:  "product_page",
			Heading:    "You may also like",
			MaxItems:   10,
			ShowPrices: true,
		},
	}
}

// DefaultFilters returns the system default filter set.
func DefaultFilters() FilterSettings {
	return FilterSettings{
		PriceProximityRange: 0.30,
		TagBoostWeight:      0.15,
		LocationFilter:      true,
		ExcludePurchased:    true,
		SameCategoryOnly:    true,
	}
}

// DefaultWeights returns the system default signal weights.
func DefaultWeights() SignalWeights {
	return SignalWeights{
		CurrentProduct: 0.3,
		Purchased:      0.7,
		AddedToCart:    0.5,
		Viewed:         0.1,
	}
}
