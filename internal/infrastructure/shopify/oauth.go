package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cartwise-orchestrator/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// OAuthClient exchanges authorization codes and validates stored tokens.
type OAuthClient struct {
	// TokenURLBase overrides the per-shop token endpoint when set; used by
	// tests against a local server.
	TokenURLBase string

	apiKey     string
	apiSecret  string
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewOAuthClient creates an OAuth client for the app's API credentials
func NewOAuthClient(apiKey, apiSecret string, logger zerolog.Logger) *OAuthClient {
	return &OAuthClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

var _ ports.OAuthClient = (*OAuthClient)(nil)

// BuildAuthURL constructs the authorization URL the merchant is redirected to
func (c *OAuthClient) BuildAuthURL(shop string, scopes []string, redirectURI, state string) string {
	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.apiKey,
		url.QueryEscape(strings.Join(scopes, ",")),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)
}

// ExchangeToken redeems an authorization code for an access token and the
// granted scope string
func (c *OAuthClient) ExchangeToken(ctx context.Context, shopDomain, code string) (string, string, error) {
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shopDomain)
	if c.TokenURLBase != "" {
		tokenURL = strings.TrimSuffix(c.TokenURLBase, "/") + "/admin/oauth/access_token"
	}

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", "", fmt.Errorf("failed to decode token response: %w", err)
	}

	return tokenResponse.AccessToken, tokenResponse.Scope, nil
}

// ValidateToken makes a lightweight shop read to check whether a stored
// token is still honored. Shopify tokens do not expire but can be revoked;
// only an authentication failure marks the token invalid, transient errors
// assume validity.
func (c *OAuthClient) ValidateToken(ctx context.Context, shopDomain, accessToken string) (bool, error) {
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return false, fmt.Errorf("failed to create client: %w", err)
	}

	if _, err := client.Shop.Get(ctx, nil); err != nil {
		errStr := strings.ToLower(err.Error())
		if strings.Contains(errStr, "401") ||
			strings.Contains(errStr, "unauthorized") ||
			strings.Contains(errStr, "invalid api key or access token") ||
			strings.Contains(errStr, "forbidden") {
			c.logger.Warn().
				Str("shop", shopDomain).
				Msg("Access token is invalid or revoked")
			return false, nil
		}

		c.logger.Warn().
			Err(err).
			Str("shop", shopDomain).
			Msg("Token validation errored, assuming token is valid")
		return true, nil
	}

	return true, nil
}
