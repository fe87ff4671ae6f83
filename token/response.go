package token

import (
	"fmt"
	"strings"
)

// TokenResponse is the credential payload returned by the backend's login and
// refresh endpoints.
type TokenResponse struct {
	// AccessToken is sent as "Authorization: Bearer <accessToken>" on every call.
	AccessToken string `json:"accessToken"`

	// RefreshToken is opaque and rotates on each exchange.
	RefreshToken string `json:"refreshToken"`

	// ExpiresIn is the access token lifetime in seconds. The session store
	// subtracts a safety margin before recording the expiry.
	ExpiresIn int `json:"expiresIn"`
}

// Validate fails when any field the session store depends on is missing.
func (t *TokenResponse) Validate() error {
	if t == nil {
		return fmt.Errorf("token response is missing")
	}
	if strings.TrimSpace(t.AccessToken) == "" {
		return fmt.Errorf("accessToken is required")
	}
	if strings.TrimSpace(t.RefreshToken) == "" {
		return fmt.Errorf("refreshToken is required")
	}
	if t.ExpiresIn <= 0 {
		return fmt.Errorf("expiresIn must be positive, got %d", t.ExpiresIn)
	}
	return nil
}
