package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"github.com/rs/zerolog"
)

func testEngineClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, zerolog.Nop())
}

func TestRegisterSendsEngineShape(t *testing.T) {
	var captured map[string]interface{}
	client := testEngineClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/merchant/register" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":    true,
			"registered": 1,
			"categories": map[string]int{"Coffee Gear": 1},
		})
	})

	result, err := client.Register(context.Background(), "demo.myshopify.com", []*domain.Product{
		{
			ProductID:   "gid://shopify/Product/1",
			Title:       "Aeropress",
			ProductType: "Coffee Gear",
			Tags:        []string{"coffee"},
			Price:       "39.99",
		},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if result.Registered != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if captured["merchant_id"] != "demo.myshopify.com" {
		t.Fatalf("merchant_id missing: %v", captured)
	}
	products := captured["products"].([]interface{})
	first := products[0].(map[string]interface{})
	if first["id"] != "gid://shopify/Product/1" || first["product_type"] != "Coffee Gear" {
		t.Fatalf("product not in engine shape: %v", first)
	}
}

func TestRegisterFailureEnvelope(t *testing.T) {
	client := testEngineClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "no products provided",
		})
	})

	_, err := client.Register(context.Background(), "demo.myshopify.com", nil)
	if err == nil || !strings.Contains(err.Error(), "no products provided") {
		t.Fatalf("expected engine error surfaced, got %v", err)
	}
}

func TestRecommendMapsItems(t *testing.T) {
	var captured map[string]interface{}
	client := testEngineClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/recommend" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"recommendations": []map[string]interface{}{
				{
					"shopify_product_id": "gid://shopify/Product/2",
					"title":              "Chemex",
					"category":           "Coffee Gear",
					"score":              0.87,
					"reason":             "Similar to what you're viewing",
				},
			},
		})
	})

	items, err := client.Recommend(context.Background(), ports.RecommendQuery{
		MerchantDomain:   "demo.myshopify.com",
		CurrentProductID: "gid://shopify/Product/1",
		History:          &domain.UserHistory{Viewed: []string{"gid://shopify/Product/3"}},
		Settings:         domain.DefaultSettings("demo.myshopify.com"),
		K:                5,
		ExcludeCurrent:   true,
	})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if len(items) != 1 || items[0].ProductID != "gid://shopify/Product/2" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if items[0].Score != 0.87 {
		t.Fatalf("score lost in mapping: %f", items[0].Score)
	}

	if captured["current_product_id"] != "gid://shopify/Product/1" {
		t.Fatalf("pivot missing from request: %v", captured)
	}
	if captured["exclude_current"] != true {
		t.Fatalf("exclusion flag missing: %v", captured)
	}
	if captured["merchant_settings"] == nil {
		t.Fatal("settings not forwarded")
	}
	if captured["k"].(float64) != 5 {
		t.Fatalf("limit not forwarded: %v", captured["k"])
	}
}

func TestRecommendTranslatesSettingsToEngineKeys(t *testing.T) {
	var captured map[string]interface{}
	client := testEngineClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	settings := &domain.Settings{
		MerchantDomain: "demo.myshopify.com",
		Mode:           domain.ModeManual,
		Weights: domain.SignalWeights{
			CurrentProduct: 0.1,
			Purchased:      0.2,
			AddedToCart:    0.3,
			Viewed:         0.4,
		},
		Filters: domain.FilterSettings{
			PriceProximityRange: 0.25,
			TagBoostWeight:      0.2,
			LocationFilter:      true,
			Vegan:               true,
			SameCategoryOnly:    true,
		},
	}

	if _, err := client.Recommend(context.Background(), ports.RecommendQuery{
		MerchantDomain: "demo.myshopify.com",
		Settings:       settings,
		K:              10,
	}); err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	ms, ok := captured["merchant_settings"].(map[string]interface{})
	if !ok {
		t.Fatalf("merchant_settings missing: %v", captured)
	}

	weights, ok := ms["weights"].(map[string]interface{})
	if !ok {
		t.Fatalf("weights missing: %v", ms)
	}
	wantWeights := map[string]float64{
		"currentProduct":  0.1,
		"purchaseHistory": 0.2,
		"cartItems":       0.3,
		"browsingHistory": 0.4,
	}
	for key, want := range wantWeights {
		got, ok := weights[key].(float64)
		if !ok || got != want {
			t.Fatalf("weight %s = %v, want %v (weights: %v)", key, weights[key], want, weights)
		}
	}

	filters, ok := ms["filters"].(map[string]interface{})
	if !ok {
		t.Fatalf("filters missing: %v", ms)
	}
	if filters["sameCategoryOnly"] != true {
		t.Fatalf("sameCategoryOnly not forwarded: %v", filters)
	}

	prox, ok := filters["priceProximity"].(map[string]interface{})
	if !ok || prox["enabled"] != true || prox["range"].(float64) != 0.25 {
		t.Fatalf("priceProximity shape wrong: %v", filters["priceProximity"])
	}
	boost, ok := filters["tagBoost"].(map[string]interface{})
	if !ok || boost["enabled"] != true || boost["weight"].(float64) != 0.2 {
		t.Fatalf("tagBoost shape wrong: %v", filters["tagBoost"])
	}
	loc, ok := filters["locationFilter"].(map[string]interface{})
	if !ok || loc["enabled"] != true {
		t.Fatalf("locationFilter shape wrong: %v", filters["locationFilter"])
	}
	eth, ok := filters["ethicalFilter"].(map[string]interface{})
	if !ok || eth["enabled"] != true || eth["vegan"] != true || eth["sustainable"] != false {
		t.Fatalf("ethicalFilter shape wrong: %v", filters["ethicalFilter"])
	}
}

func TestRecommendSettingsDisableStagesAtZero(t *testing.T) {
	var captured map[string]interface{}
	client := testEngineClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	settings := &domain.Settings{
		MerchantDomain: "demo.myshopify.com",
		Mode:           domain.ModeManual,
	}

	if _, err := client.Recommend(context.Background(), ports.RecommendQuery{
		MerchantDomain: "demo.myshopify.com",
		Settings:       settings,
		K:              10,
	}); err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	filters := captured["merchant_settings"].(map[string]interface{})["filters"].(map[string]interface{})
	if prox := filters["priceProximity"].(map[string]interface{}); prox["enabled"] != false {
		t.Fatalf("zero range should disable price proximity: %v", prox)
	}
	if boost := filters["tagBoost"].(map[string]interface{}); boost["enabled"] != false {
		t.Fatalf("zero weight should disable tag boost: %v", boost)
	}
	if eth := filters["ethicalFilter"].(map[string]interface{}); eth["enabled"] != false {
		t.Fatalf("no preferences should disable ethical filter: %v", eth)
	}
}

func TestRecommendOmitsEmptyContext(t *testing.T) {
	var captured map[string]interface{}
	client := testEngineClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	if _, err := client.Recommend(context.Background(), ports.RecommendQuery{
		MerchantDomain: "demo.myshopify.com",
		History:        &domain.UserHistory{},
		K:              10,
	}); err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	for _, key := range []string{"current_product_id", "user_history", "user_location", "user_preferences"} {
		if _, present := captured[key]; present {
			t.Fatalf("empty %s must be omitted from the request", key)
		}
	}
}

func TestPopular(t *testing.T) {
	client := testEngineClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/popular" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"products": []map[string]interface{}{
				{"shopify_product_id": "gid://shopify/Product/9", "title": "Bestseller", "score": 0.6},
			},
		})
	})

	items, err := client.Popular(context.Background(), ports.PopularQuery{MerchantDomain: "demo.myshopify.com", K: 10})
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Bestseller" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestClearUsesDelete(t *testing.T) {
	var method, path string
	client := testEngineClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	if err := client.Clear(context.Background(), "demo.myshopify.com"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if method != http.MethodDelete || path != "/api/merchant/demo.myshopify.com" {
		t.Fatalf("unexpected request: %s %s", method, path)
	}
}

func TestHealth(t *testing.T) {
	client := testEngineClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
}

func TestEngineHTTPErrorIncludesMessage(t *testing.T) {
	client := testEngineClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "merchant_id is required"})
	})

	_, err := client.Register(context.Background(), "demo.myshopify.com", nil)
	if err == nil || !strings.Contains(err.Error(), "merchant_id is required") {
		t.Fatalf("expected engine error message, got %v", err)
	}
}
