package domain

// ReasonRecentlyViewed tags history items the request handler prepends when
// the engine's result set omits them for a cold segment.
const ReasonRecentlyViewed = "Recently viewed"

// UserHistory carries client-supplied transient behavioral signals, already
// normalized to GID form.
type UserHistory struct {
	Viewed    []string `json:"viewed,omitempty"`
	Purchased []string `json:"purchased,omitempty"`
	Cart      []string `json:"added_to_cart,omitempty"`
}

// Empty reports whether the history carries no signal at all.
func (h *UserHistory) Empty() bool {
	return h == nil || (len(h.Viewed) == 0 && len(h.Purchased) == 0 && len(h.Cart) == 0)
}

// RecommendationRequest is the storefront widget's query, decoded from an
// app-proxy request. Ids may arrive in bare numeric form and are normalized
// before any lookup.
type RecommendationRequest struct {
	MerchantDomain   string
	CurrentProductID string
	CustomerID       string
	ViewedIDs        []string
	CartIDs          []string
	Location         string
	Preferences      map[string]interface{}
	Limit            int
}

// RecommendedItem is one entry of a recommendation response, enriched with a
// storefront URL resolved from the local mirror.
type RecommendedItem struct {
	ProductID string   `json:"product_id"`
	Title     string   `json:"title"`
	Category  string   `json:"category,omitempty"`
	Price     string   `json:"price,omitempty"`
	Image     string   `json:"image,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Score     float64  `json:"score"`
	Reason    string   `json:"reason,omitempty"`
	URL       string   `json:"url"`
}

// SyncResult reports one merchant's full-sync outcome.
type SyncResult struct {
	MerchantDomain string `json:"merchant_domain"`
	Products       int    `json:"products"`
	Err            error  `json:"-"`
	Error          string `json:"error,omitempty"`
}

// BatchSyncReport aggregates per-merchant results of a sweep across all
// active merchants. One merchant's failure never aborts the batch.
type BatchSyncReport struct {
	Succeeded []SyncResult `json:"succeeded"`
	Failed    []SyncResult `json:"failed"`
}

// ReconcileResult counts subscription changes made by one reconciliation
// pass for a merchant.
type ReconcileResult struct {
	Created   int `json:"created"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}
