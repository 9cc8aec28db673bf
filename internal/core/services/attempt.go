package services

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

// stateLength is the number of random bytes in the anti-forgery state.
const stateLength = 32

// generateState creates a random state parameter for CSRF protection.
func generateState() (string, error) {
	bytes := make([]byte, stateLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// newAttempt starts an authorization attempt for a provider.
func newAttempt(provider domain.ProviderID, redirectURI string, now time.Time) (*domain.AuthorizationAttempt, error) {
	state, err := generateState()
	if err != nil {
		return nil, err
	}
	return &domain.AuthorizationAttempt{
		ID:          uuid.NewString(),
		Provider:    provider,
		RedirectURI: redirectURI,
		State:       state,
		CreatedAt:   now,
	}, nil
}
