package devbackend

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/pool-admin/internal/config"
	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/token"
	"github.com/jrsteele09/pool-admin/users"
)

const issuerName = "pool-admin-dev"

// issuer signs access tokens, hands out refresh tokens and remembers the
// access tokens revoked by logout.
type issuer struct {
	signer    token.Signer
	refresh   *refreshManager
	revoked   token.RevocationList
	accessTTL time.Duration
	now       func() time.Time
}

func newIssuer(cfg config.DevBackendConfig, now func() time.Time) (*issuer, error) {
	secret := []byte(cfg.GetDevSigningSecret())
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, apierrors.Wrapf(err, "[newIssuer] generate signing secret")
		}
	}
	accessTTL := cfg.GetDefaultAccessTokenExpiry()
	return &issuer{
		signer:    token.NewHMACSigner(secret),
		refresh:   newRefreshManager(newInMemoryRefreshTokenRepo(), cfg, now),
		revoked:   token.NewMemoryRevocationList(accessTTL, now),
		accessTTL: accessTTL,
		now:       now,
	}, nil
}

func (i *issuer) accessToken(u *users.User) (string, error) {
	now := i.now()
	claims := token.Claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuerName,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}
	return i.signer.Sign(claims)
}

func (i *issuer) expiresIn() int {
	return int(i.accessTTL / time.Second)
}

// Issue starts a new credential pair for u.
func (i *issuer) Issue(u *users.User) (*token.TokenResponse, error) {
	access, err := i.accessToken(u)
	if err != nil {
		return nil, apierrors.Wrapf(err, "[issuer.Issue] sign access token")
	}
	refresh, err := i.refresh.Create(u.ID)
	if err != nil {
		return nil, err
	}
	return &token.TokenResponse{AccessToken: access, RefreshToken: refresh, ExpiresIn: i.expiresIn()}, nil
}

// Exchange rotates refreshToken and signs a new access token for its owner.
func (i *issuer) Exchange(refreshToken string, lookup func(id string) (*users.User, error)) (*token.TokenResponse, error) {
	userID, next, err := i.refresh.Rotate(refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := lookup(userID)
	if err != nil {
		return nil, errInvalidRefreshToken
	}
	access, err := i.accessToken(u)
	if err != nil {
		return nil, apierrors.Wrapf(err, "[issuer.Exchange] sign access token")
	}
	return &token.TokenResponse{AccessToken: access, RefreshToken: next, ExpiresIn: i.expiresIn()}, nil
}

// Verify checks signature, expiry, issuer and revocation.
func (i *issuer) Verify(raw string) (*token.Claims, error) {
	claims, err := token.ParseVerified(raw, i.signer)
	if err != nil {
		return nil, err
	}
	if claims.Issuer != issuerName {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if i.revoked.IsRevoked(claims.ID) {
		return nil, fmt.Errorf("token has been revoked")
	}
	return claims, nil
}

// Revoke invalidates the access token described by claims and the owner's
// refresh token.
func (i *issuer) Revoke(claims *token.Claims) {
	i.revoked.Prune()
	i.revoked.Revoke(claims)
	i.refresh.RevokeUser(claims.Subject)
}
