package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrNoExpiry = errors.New("token has no exp claim")

// ExpiryFromJWT reads the exp claim of an access token without verifying its
// signature. The client never holds the signing key; the value is only used to
// decide whether a persisted credential is still worth presenting.
func ExpiryFromJWT(rawToken string) (time.Time, error) {
	if strings.TrimSpace(rawToken) == "" {
		return time.Time{}, fmt.Errorf("token is empty")
	}

	claims := jwtlib.RegisteredClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Claims are the access token claims issued by the development backend.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwtlib.RegisteredClaims
}

// ParseVerified validates rawToken with signer and returns its claims.
func ParseVerified(rawToken string, signer Signer) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwtlib.ParseWithClaims(rawToken, claims, signer.GetVerificationKey,
		jwtlib.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now
