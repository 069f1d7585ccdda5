package domain

// WebhookEvent is an inbound platform event after signature verification.
// Payload holds the raw request body bytes.
type WebhookEvent struct {
	Topic    string `json:"topic"`
	Shop     string `json:"shop"`
	Payload  []byte `json:"payload"`
	Verified bool   `json:"verified"`
}

// WebhookSubscription mirrors one externally-registered webhook subscription
// as reported by the platform's subscription list query.
type WebhookSubscription struct {
	ID      string `json:"id"`
	Topic   string `json:"topic"`
	Address string `json:"address"`
}
