package domain

import "time"

// TokenPair holds the credentials currently issued for one provider.
// A pair is always replaced as a whole; it is never updated field by field.
type TokenPair struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type,omitempty"`
	// Expiry is when the access token expires. Zero means unknown.
	Expiry time.Time `json:"expiry,omitempty"`
}

// IsZero returns true if the pair carries no access token.
func (t TokenPair) IsZero() bool {
	return t.AccessToken == ""
}

// HasRefreshToken returns true if a refresh token is available.
func (t TokenPair) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// IsExpired returns true if the token expires within skew of now.
// A pair with no known expiry never expires locally.
func (t TokenPair) IsExpired(now time.Time, skew time.Duration) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return !now.Add(skew).Before(t.Expiry)
}

// WithFallbackRefresh returns the pair with previous's refresh token carried
// over when the provider did not reissue one.
func (t TokenPair) WithFallbackRefresh(previous TokenPair) TokenPair {
	if t.RefreshToken == "" {
		t.RefreshToken = previous.RefreshToken
	}
	return t
}
