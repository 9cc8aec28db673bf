package domain

import "time"

// AuthorizationAttempt is one browser consent round-trip for a provider.
// It is created when a connect starts and discarded once its result has
// been consumed by the exchanger.
type AuthorizationAttempt struct {
	ID          string
	Provider    ProviderID
	RedirectURI string
	// State is the anti-forgery value echoed back on the redirect.
	State     string
	CreatedAt time.Time
}

// CallbackResult is what the redirect listener captured for an attempt.
// Exactly one of Code or Err is set.
type CallbackResult struct {
	Code string
	Err  error
}
