package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// WebhookVerifier checks the HMAC signature Shopify attaches to webhook
// deliveries. The digest is computed over the raw request body bytes, never
// a reparsed JSON string.
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier creates a verifier for the given shared secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify checks the base64 HMAC-SHA256 header against the raw payload using
// a constant-time comparison
func (v *WebhookVerifier) Verify(payload []byte, hmacHeader string) error {
	if hmacHeader == "" {
		return fmt.Errorf("missing hmac header")
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	provided, err := base64.StdEncoding.DecodeString(hmacHeader)
	if err != nil {
		return fmt.Errorf("malformed hmac header: %w", err)
	}

	if !hmac.Equal(expected, provided) {
		return fmt.Errorf("hmac mismatch")
	}

	return nil
}

// ProxyVerifier checks app-proxy request signatures. Shopify computes the
// signature over the sorted, concatenated query parameters excluding the
// signature itself, hex-encoded.
type ProxyVerifier struct {
	secret string
}

// NewProxyVerifier creates a verifier for the given shared secret
func NewProxyVerifier(secret string) *ProxyVerifier {
	return &ProxyVerifier{secret: secret}
}

// Verify checks the signature query parameter against the remaining
// parameters using a constant-time comparison
func (v *ProxyVerifier) Verify(query url.Values) error {
	signature := query.Get("signature")
	if signature == "" {
		return fmt.Errorf("missing signature parameter")
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(query[k], ","))
	}
	message := strings.Join(parts, "")

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(message))
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("malformed signature parameter: %w", err)
	}

	if !hmac.Equal(expected, provided) {
		return fmt.Errorf("signature mismatch")
	}

	return nil
}
