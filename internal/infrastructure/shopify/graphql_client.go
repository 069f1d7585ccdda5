package shopify

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

const defaultAPIVersion = "2024-01"

// GraphQLClient implements CatalogClient against the Shopify Admin GraphQL
// API. Catalog reads use cursor pagination with a fixed inter-page delay;
// rate-limit and server errors are retried with linear backoff.
type GraphQLClient struct {
	// BaseURL overrides the per-shop admin endpoint when set. Empty in
	// normal operation; pointed at a local server in tests.
	BaseURL string

	// PageSize is the number of products requested per page.
	PageSize int

	// PageDelay is the pause between catalog pages.
	PageDelay time.Duration

	apiVersion string
	httpClient *http.Client
	retry      RetryConfig
	logger     zerolog.Logger
}

// NewGraphQLClient creates a catalog client with default paging and retry
// behavior
func NewGraphQLClient(logger zerolog.Logger) *GraphQLClient {
	return NewGraphQLClientWithOptions(logger, DefaultRetryConfig())
}

// NewGraphQLClientWithOptions creates a catalog client with a custom retry
// policy
func NewGraphQLClientWithOptions(logger zerolog.Logger, retry RetryConfig) *GraphQLClient {
	return &GraphQLClient{
		PageSize:   50,
		PageDelay:  200 * time.Millisecond,
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      retry,
		logger:     logger,
	}
}

var _ ports.CatalogClient = (*GraphQLClient)(nil)

func (c *GraphQLClient) endpoint(shopDomain string) string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/") + "/admin/api/" + c.apiVersion + "/graphql.json"
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, c.apiVersion)
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// execute posts one GraphQL document and decodes the data payload into out.
// HTTP 429 and 5xx responses are retried with linear backoff up to the
// configured bound; top-level GraphQL errors are permanent.
func (c *GraphQLClient) execute(ctx context.Context, shopDomain, accessToken, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode graphql request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.retry.Backoff
			c.logger.Warn().
				Str("shop", shopDomain).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying Shopify GraphQL request")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shopDomain), bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create graphql request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Shopify-Access-Token", accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("graphql request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read graphql response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("shopify api returned status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("shopify api returned status %d: %s", resp.StatusCode, string(respBody))
		}

		var envelope struct {
			Data   json.RawMessage `json:"data"`
			Errors []graphqlError  `json:"errors"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("failed to decode graphql response: %w", err)
		}
		if len(envelope.Errors) > 0 {
			messages := make([]string, 0, len(envelope.Errors))
			for _, e := range envelope.Errors {
				messages = append(messages, e.Message)
			}
			return fmt.Errorf("graphql errors: %s", strings.Join(messages, "; "))
		}

		if out != nil {
			if err := json.Unmarshal(envelope.Data, out); err != nil {
				return fmt.Errorf("failed to decode graphql data: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("shopify request failed after %d retries: %w", c.retry.MaxRetries, lastErr)
}

const productsQuery = `query($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        title
        productType
        vendor
        handle
        tags
        featuredImage { url }
        variants(first: 50) {
          edges {
            node {
              id
              title
              sku
              price
              compareAtPrice
            }
          }
        }
      }
    }
  }
}`

// FetchAllProducts pages through the merchant's full catalog. Connection
// shapes (variants edges) are flattened so the transform layer sees plain
// lists regardless of whether a record came from GraphQL or a webhook.
func (c *GraphQLClient) FetchAllProducts(ctx context.Context, shopDomain, accessToken string) ([]ports.CatalogProduct, error) {
	var all []ports.CatalogProduct
	var cursor string

	for {
		variables := map[string]interface{}{"first": c.PageSize}
		if cursor != "" {
			variables["after"] = cursor
		}

		var data struct {
			Products struct {
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
				Edges []struct {
					Node map[string]interface{} `json:"node"`
				} `json:"edges"`
			} `json:"products"`
		}

		if err := c.execute(ctx, shopDomain, accessToken, productsQuery, variables, &data); err != nil {
			return nil, fmt.Errorf("failed to fetch products page: %w", err)
		}

		for _, edge := range data.Products.Edges {
			all = append(all, flattenConnections(edge.Node))
		}

		if !data.Products.PageInfo.HasNextPage {
			break
		}
		cursor = data.Products.PageInfo.EndCursor

		select {
		case <-time.After(c.PageDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.logger.Info().
		Str("shop", shopDomain).
		Int("products", len(all)).
		Msg("Fetched full catalog")

	return all, nil
}

// flattenConnections rewrites GraphQL connection fields ({edges:[{node}]})
// into plain lists in place
func flattenConnections(node map[string]interface{}) ports.CatalogProduct {
	for key, value := range node {
		conn, ok := value.(map[string]interface{})
		if !ok {
			continue
		}
		edges, ok := conn["edges"].([]interface{})
		if !ok {
			continue
		}
		flat := make([]interface{}, 0, len(edges))
		for _, e := range edges {
			if edge, ok := e.(map[string]interface{}); ok {
				if inner, ok := edge["node"]; ok {
					flat = append(flat, inner)
				}
			}
		}
		node[key] = flat
	}
	return node
}

const webhookSubscriptionsQuery = `query {
  webhookSubscriptions(first: 100) {
    edges {
      node {
        id
        topic
        endpoint {
          __typename
          ... on WebhookHttpEndpoint {
            callbackUrl
          }
        }
      }
    }
  }
}`

// ListWebhookSubscriptions returns all registered subscriptions for a shop
func (c *GraphQLClient) ListWebhookSubscriptions(ctx context.Context, shopDomain, accessToken string) ([]domain.WebhookSubscription, error) {
	var data struct {
		WebhookSubscriptions struct {
			Edges []struct {
				Node struct {
					ID       string `json:"id"`
					Topic    string `json:"topic"`
					Endpoint struct {
						CallbackURL string `json:"callbackUrl"`
					} `json:"endpoint"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"webhookSubscriptions"`
	}

	if err := c.execute(ctx, shopDomain, accessToken, webhookSubscriptionsQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list webhook subscriptions: %w", err)
	}

	subscriptions := make([]domain.WebhookSubscription, 0, len(data.WebhookSubscriptions.Edges))
	for _, edge := range data.WebhookSubscriptions.Edges {
		subscriptions = append(subscriptions, domain.WebhookSubscription{
			ID:      edge.Node.ID,
			Topic:   topicFromEnum(edge.Node.Topic),
			Address: edge.Node.Endpoint.CallbackURL,
		})
	}

	return subscriptions, nil
}

const webhookSubscriptionCreateMutation = `mutation($topic: WebhookSubscriptionTopic!, $webhookSubscription: WebhookSubscriptionInput!) {
  webhookSubscriptionCreate(topic: $topic, webhookSubscription: $webhookSubscription) {
    webhookSubscription {
      id
    }
    userErrors {
      field
      message
    }
  }
}`

// CreateWebhookSubscription registers a callback address for a topic. Any
// non-empty userErrors is surfaced as a failure with the joined messages.
func (c *GraphQLClient) CreateWebhookSubscription(ctx context.Context, shopDomain, accessToken, topic, address string) (*domain.WebhookSubscription, error) {
	variables := map[string]interface{}{
		"topic": topicToEnum(topic),
		"webhookSubscription": map[string]interface{}{
			"callbackUrl": address,
			"format":      "JSON",
		},
	}

	var data struct {
		WebhookSubscriptionCreate struct {
			WebhookSubscription *struct {
				ID string `json:"id"`
			} `json:"webhookSubscription"`
			UserErrors []userError `json:"userErrors"`
		} `json:"webhookSubscriptionCreate"`
	}

	if err := c.execute(ctx, shopDomain, accessToken, webhookSubscriptionCreateMutation, variables, &data); err != nil {
		return nil, fmt.Errorf("failed to create webhook subscription: %w", err)
	}
	if err := joinUserErrors(data.WebhookSubscriptionCreate.UserErrors); err != nil {
		return nil, fmt.Errorf("webhook subscription create rejected: %w", err)
	}
	if data.WebhookSubscriptionCreate.WebhookSubscription == nil {
		return nil, fmt.Errorf("webhook subscription create returned no subscription")
	}

	return &domain.WebhookSubscription{
		ID:      data.WebhookSubscriptionCreate.WebhookSubscription.ID,
		Topic:   topic,
		Address: address,
	}, nil
}

const webhookSubscriptionDeleteMutation = `mutation($id: ID!) {
  webhookSubscriptionDelete(id: $id) {
    deletedWebhookSubscriptionId
    userErrors {
      field
      message
    }
  }
}`

// DeleteWebhookSubscription removes a subscription by id
func (c *GraphQLClient) DeleteWebhookSubscription(ctx context.Context, shopDomain, accessToken, subscriptionID string) error {
	variables := map[string]interface{}{"id": subscriptionID}

	var data struct {
		WebhookSubscriptionDelete struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"webhookSubscriptionDelete"`
	}

	if err := c.execute(ctx, shopDomain, accessToken, webhookSubscriptionDeleteMutation, variables, &data); err != nil {
		return fmt.Errorf("failed to delete webhook subscription: %w", err)
	}
	if err := joinUserErrors(data.WebhookSubscriptionDelete.UserErrors); err != nil {
		return fmt.Errorf("webhook subscription delete rejected: %w", err)
	}

	return nil
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func joinUserErrors(errs []userError) error {
	if len(errs) == 0 {
		return nil
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}

// topicToEnum maps "products/create" to the GraphQL enum PRODUCTS_CREATE
func topicToEnum(topic string) string {
	return strings.ToUpper(strings.ReplaceAll(topic, "/", "_"))
}

// topicFromEnum maps PRODUCTS_CREATE back to "products/create"
func topicFromEnum(enum string) string {
	return strings.ToLower(strings.Replace(enum, "_", "/", 1))
}
