package shopify

import "time"

// RetryConfig bounds retries against the platform API. Only rate-limit and
// server-error responses are retried; GraphQL business errors never are.
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryConfig returns the standard retry policy: three attempts with
// linear backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}
