package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClient(t *testing.T, handler http.HandlerFunc) *GraphQLClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewGraphQLClientWithOptions(zerolog.Nop(), RetryConfig{MaxRetries: 2, Backoff: time.Millisecond})
	client.BaseURL = server.URL
	client.PageDelay = time.Millisecond
	return client
}

func productsPage(ids []int, hasNext bool, cursor string) map[string]interface{} {
	edges := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		edges = append(edges, map[string]interface{}{
			"node": map[string]interface{}{
				"id":    fmt.Sprintf("gid://shopify/Product/%d", id),
				"title": fmt.Sprintf("Product %d", id),
				"variants": map[string]interface{}{
					"edges": []map[string]interface{}{
						{"node": map[string]interface{}{"id": fmt.Sprintf("gid://shopify/ProductVariant/%d", id), "price": "10.00"}},
					},
				},
			},
		})
	}
	return map[string]interface{}{
		"data": map[string]interface{}{
			"products": map[string]interface{}{
				"pageInfo": map[string]interface{}{"hasNextPage": hasNext, "endCursor": cursor},
				"edges":    edges,
			},
		},
	}
}

func TestFetchAllProductsPaginates(t *testing.T) {
	var requests int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++

		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		if req.Variables["after"] == nil {
			json.NewEncoder(w).Encode(productsPage([]int{1, 2}, true, "cursor-1"))
			return
		}
		if req.Variables["after"] != "cursor-1" {
			t.Errorf("unexpected cursor: %v", req.Variables["after"])
		}
		json.NewEncoder(w).Encode(productsPage([]int{3}, false, ""))
	})

	products, err := client.FetchAllProducts(context.Background(), "demo.myshopify.com", "shpat_test")
	if err != nil {
		t.Fatalf("FetchAllProducts failed: %v", err)
	}

	if requests != 2 {
		t.Fatalf("expected 2 page requests, got %d", requests)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}

	// Connection fields must come back flattened to plain lists.
	variants, ok := products[0]["variants"].([]interface{})
	if !ok {
		t.Fatalf("variants not flattened: %T", products[0]["variants"])
	}
	if len(variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(variants))
	}
}

func TestExecuteRetriesRateLimit(t *testing.T) {
	var requests int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(productsPage(nil, false, ""))
	})

	if _, err := client.FetchAllProducts(context.Background(), "demo.myshopify.com", "shpat_test"); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if requests != 2 {
		t.Fatalf("expected 2 attempts, got %d", requests)
	}
}

func TestExecuteGivesUpAfterRetryBudget(t *testing.T) {
	var requests int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchAllProducts(context.Background(), "demo.myshopify.com", "shpat_test")
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if requests != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", requests)
	}
}

func TestExecuteDoesNotRetryGraphQLErrors(t *testing.T) {
	var requests int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{{"message": "Field 'bogus' doesn't exist"}},
		})
	})

	_, err := client.FetchAllProducts(context.Background(), "demo.myshopify.com", "shpat_test")
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected permanent graphql error, got %v", err)
	}
	if requests != 1 {
		t.Fatalf("graphql errors must not retry, got %d attempts", requests)
	}
}

func TestCreateWebhookSubscriptionSurfacesUserErrors(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"webhookSubscriptionCreate": map[string]interface{}{
					"webhookSubscription": nil,
					"userErrors": []map[string]interface{}{
						{"field": []string{"webhookSubscription", "callbackUrl"}, "message": "Address is not allowed"},
					},
				},
			},
		})
	})

	_, err := client.CreateWebhookSubscription(context.Background(), "demo.myshopify.com", "shpat_test", "products/create", "http://localhost/webhooks")
	if err == nil || !strings.Contains(err.Error(), "Address is not allowed") {
		t.Fatalf("expected userErrors surfaced, got %v", err)
	}
}

func TestListWebhookSubscriptionsMapsTopics(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"webhookSubscriptions": map[string]interface{}{
					"edges": []map[string]interface{}{
						{"node": map[string]interface{}{
							"id":       "gid://shopify/WebhookSubscription/1",
							"topic":    "PRODUCTS_CREATE",
							"endpoint": map[string]interface{}{"callbackUrl": "https://app.example.com/webhooks/shopify"},
						}},
					},
				},
			},
		})
	})

	subs, err := client.ListWebhookSubscriptions(context.Background(), "demo.myshopify.com", "shpat_test")
	if err != nil {
		t.Fatalf("ListWebhookSubscriptions failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
	if subs[0].Topic != "products/create" {
		t.Fatalf("enum topic not mapped back: %s", subs[0].Topic)
	}
}

func TestTopicEnumRoundTrip(t *testing.T) {
	if got := topicToEnum("products/create"); got != "PRODUCTS_CREATE" {
		t.Fatalf("topicToEnum = %s", got)
	}
	if got := topicFromEnum("APP_UNINSTALLED"); got != "app/uninstalled" {
		t.Fatalf("topicFromEnum = %s", got)
	}
}
