package session

import (
	"time"
)

// ExpiryMargin is subtracted from the backend's expiresIn so a request is never
// sent with a token about to expire mid-flight.
const ExpiryMargin = 60 * time.Second

// Session holds the current credentials. The zero value is the empty session.
type Session struct {
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
}

// Valid reports whether the access token may be presented at now.
func (s Session) Valid(now time.Time) bool {
	return s.AccessToken != "" && !s.ExpiresAt.IsZero() && now.Before(s.ExpiresAt)
}

// CanRefresh reports whether a refresh token is available for an exchange.
func (s Session) CanRefresh() bool {
	return s.RefreshToken != ""
}

func (s Session) IsEmpty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}
