package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"github.com/rs/zerolog"
)

// Client talks to the external recommendation engine over HTTP. The request
// path runs with a short, strict timeout so a slow engine degrades into a
// fallback instead of hanging storefront requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates an engine client for the given base URL
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 3 * time.Second},
		logger:     logger,
	}
}

var _ ports.EngineClient = (*Client)(nil)

type engineProduct struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	ProductType string   `json:"product_type"`
	Tags        []string `json:"tags"`
	Price       string   `json:"price"`
	Image       string   `json:"image"`
}

type engineItem struct {
	ShopifyProductID string   `json:"shopify_product_id"`
	Title            string   `json:"title"`
	Category         string   `json:"category"`
	Price            string   `json:"price"`
	Image            string   `json:"image"`
	Tags             []string `json:"tags"`
	Score            float64  `json:"score"`
	Reason           string   `json:"reason"`
}

// engineSettings is the merchant_settings wire shape the engine's
// recommender reads. Its key names and nesting differ from the admin API's
// settings document, so the domain form is translated rather than
// serialized directly.
type engineSettings struct {
	Mode    string        `json:"mode"`
	Filters engineFilters `json:"filters"`
	Weights engineWeights `json:"weights"`
}

type engineWeights struct {
	CurrentProduct  float64 `json:"currentProduct"`
	PurchaseHistory float64 `json:"purchaseHistory"`
	CartItems       float64 `json:"cartItems"`
	BrowsingHistory float64 `json:"browsingHistory"`
}

type engineFilters struct {
	SameCategoryOnly bool                 `json:"sameCategoryOnly"`
	LocationFilter   engineToggle         `json:"locationFilter"`
	PriceProximity   enginePriceProximity `json:"priceProximity"`
	TagBoost         engineTagBoost       `json:"tagBoost"`
	EthicalFilter    engineEthicalFilter  `json:"ethicalFilter"`
}

type engineToggle struct {
	Enabled bool `json:"enabled"`
}

type enginePriceProximity struct {
	Enabled bool    `json:"enabled"`
	Range   float64 `json:"range"`
}

type engineTagBoost struct {
	Enabled bool    `json:"enabled"`
	Weight  float64 `json:"weight"`
}

type engineEthicalFilter struct {
	Enabled     bool `json:"enabled"`
	Vegan       bool `json:"vegan"`
	Sustainable bool `json:"sustainable"`
}

// toEngineSettings translates a merchant settings document into the
// engine's key names. A zero proximity range or tag-boost weight disables
// that stage; the ethical filter is enabled when either preference is set.
func toEngineSettings(s *domain.Settings) engineSettings {
	return engineSettings{
		Mode: s.Mode,
		Weights: engineWeights{
			CurrentProduct:  s.Weights.CurrentProduct,
			PurchaseHistory: s.Weights.Purchased,
			CartItems:       s.Weights.AddedToCart,
			BrowsingHistory: s.Weights.Viewed,
		},
		Filters: engineFilters{
			SameCategoryOnly: s.Filters.SameCategoryOnly,
			LocationFilter:   engineToggle{Enabled: s.Filters.LocationFilter},
			PriceProximity: enginePriceProximity{
				Enabled: s.Filters.PriceProximityRange > 0,
				Range:   s.Filters.PriceProximityRange,
			},
			TagBoost: engineTagBoost{
				Enabled: s.Filters.TagBoostWeight > 0,
				Weight:  s.Filters.TagBoostWeight,
			},
			EthicalFilter: engineEthicalFilter{
				Enabled:     s.Filters.Vegan || s.Filters.Sustainable,
				Vegan:       s.Filters.Vegan,
				Sustainable: s.Filters.Sustainable,
			},
		},
	}
}

func (i engineItem) toDomain() domain.RecommendedItem {
	return domain.RecommendedItem{
		ProductID: i.ShopifyProductID,
		Title:     i.Title,
		Category:  i.Category,
		Price:     i.Price,
		Image:     i.Image,
		Tags:      i.Tags,
		Score:     i.Score,
		Reason:    i.Reason,
	}
}

// post sends a JSON body and decodes the engine's response envelope into out
func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode engine request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read engine response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, engineErrorMessage(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode engine response: %w", err)
	}

	return nil
}

func engineErrorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return string(body)
}

// Register pushes a merchant's full transformed product list to the engine
func (c *Client) Register(ctx context.Context, shopDomain string, products []*domain.Product) (*ports.RegisterResult, error) {
	engineProducts := make([]engineProduct, 0, len(products))
	for _, p := range products {
		engineProducts = append(engineProducts, engineProduct{
			ID:          p.ProductID,
			Title:       p.Title,
			ProductType: p.ProductType,
			Tags:        p.Tags,
			Price:       p.Price,
			Image:       p.Image,
		})
	}

	body := map[string]interface{}{
		"merchant_id": shopDomain,
		"products":    engineProducts,
	}

	var out struct {
		Success    bool           `json:"success"`
		Error      string         `json:"error"`
		Registered int            `json:"registered"`
		Categories map[string]int `json:"categories"`
	}
	if err := c.post(ctx, "/api/merchant/register", body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("engine registration failed: %s", out.Error)
	}

	return &ports.RegisterResult{
		Registered: out.Registered,
		Categories: out.Categories,
	}, nil
}

// Recommend queries the engine for personalized recommendations
func (c *Client) Recommend(ctx context.Context, query ports.RecommendQuery) ([]domain.RecommendedItem, error) {
	body := map[string]interface{}{
		"merchant_id":       query.MerchantDomain,
		"k":                 query.K,
		"exclude_current":   query.ExcludeCurrent,
		"exclude_viewed":    query.ExcludeViewed,
		"exclude_purchased": query.ExcludePurchased,
	}
	if query.CurrentProductID != "" {
		body["current_product_id"] = query.CurrentProductID
	}
	if !query.History.Empty() {
		body["user_history"] = query.History
	}
	if query.Location != "" {
		body["user_location"] = query.Location
	}
	if len(query.Preferences) > 0 {
		body["user_preferences"] = query.Preferences
	}
	if query.Settings != nil {
		body["merchant_settings"] = toEngineSettings(query.Settings)
	}

	var out struct {
		Success         bool         `json:"success"`
		Error           string       `json:"error"`
		Recommendations []engineItem `json:"recommendations"`
	}
	if err := c.post(ctx, "/api/recommend", body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("engine recommend failed: %s", out.Error)
	}

	items := make([]domain.RecommendedItem, 0, len(out.Recommendations))
	for _, item := range out.Recommendations {
		items = append(items, item.toDomain())
	}
	return items, nil
}

// Popular queries the engine's cold-start popular-items endpoint
func (c *Client) Popular(ctx context.Context, query ports.PopularQuery) ([]domain.RecommendedItem, error) {
	body := map[string]interface{}{
		"merchant_id": query.MerchantDomain,
		"k":           query.K,
	}
	if query.Category != "" {
		body["category"] = query.Category
	}
	if query.Location != "" {
		body["user_location"] = query.Location
	}
	if len(query.Preferences) > 0 {
		body["user_preferences"] = query.Preferences
	}

	var out struct {
		Success  bool         `json:"success"`
		Error    string       `json:"error"`
		Products []engineItem `json:"products"`
	}
	if err := c.post(ctx, "/api/popular", body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("engine popular failed: %s", out.Error)
	}

	items := make([]domain.RecommendedItem, 0, len(out.Products))
	for _, item := range out.Products {
		items = append(items, item.toDomain())
	}
	return items, nil
}

// Clear drops all engine-side state for a merchant. This is distinct from
// registering an empty product list.
func (c *Client) Clear(ctx context.Context, shopDomain string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/merchant/"+shopDomain, nil)
	if err != nil {
		return fmt.Errorf("failed to create engine request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine clear failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, engineErrorMessage(body))
	}

	return nil
}

// Health probes the engine's health endpoint
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create engine request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine health returned status %d", resp.StatusCode)
	}

	return nil
}
