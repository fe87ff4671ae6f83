package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/pool-admin/token"
	"github.com/stretchr/testify/require"
)

func TestTokenResponseValidate(t *testing.T) {
	ok := &token.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}
	require.NoError(t, ok.Validate())

	require.Error(t, (&token.TokenResponse{RefreshToken: "r", ExpiresIn: 900}).Validate())
	require.Error(t, (&token.TokenResponse{AccessToken: "a", ExpiresIn: 900}).Validate())
	require.Error(t, (&token.TokenResponse{AccessToken: "a", RefreshToken: "r"}).Validate())
	var missing *token.TokenResponse
	require.Error(t, missing.Validate())
}

func TestExpiryFromJWT(t *testing.T) {
	signer := token.NewHMACSigner([]byte("secret"))
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)

	raw, err := signer.Sign(jwtlib.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwtlib.NewNumericDate(exp),
	})
	require.NoError(t, err)

	got, err := token.ExpiryFromJWT(raw)
	require.NoError(t, err)
	require.True(t, exp.Equal(got))

	noExp, err := signer.Sign(jwtlib.RegisteredClaims{Subject: "user-1"})
	require.NoError(t, err)
	_, err = token.ExpiryFromJWT(noExp)
	require.ErrorIs(t, err, token.ErrNoExpiry)

	_, err = token.ExpiryFromJWT("mock-token")
	require.Error(t, err)
	_, err = token.ExpiryFromJWT("")
	require.Error(t, err)
}

func TestParseVerified(t *testing.T) {
	signer := token.NewHMACSigner([]byte("secret"))
	raw, err := signer.Sign(token.Claims{
		Role: "CSM",
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "user-1",
			ID:        "jti-1",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	require.NoError(t, err)

	claims, err := token.ParseVerified(raw, signer)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "CSM", claims.Role)

	_, err = token.ParseVerified(raw, token.NewHMACSigner([]byte("other")))
	require.Error(t, err)

	expired, err := signer.Sign(token.Claims{RegisteredClaims: jwtlib.RegisteredClaims{
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	require.NoError(t, err)
	_, err = token.ParseVerified(expired, signer)
	require.ErrorIs(t, err, jwtlib.ErrTokenExpired)
}

func TestMemoryRevocationList(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	list := token.NewMemoryRevocationList(15*time.Minute, clock)

	claimsFor := func(id string, issued, exp time.Time) *token.Claims {
		c := &token.Claims{}
		c.ID = id
		if !issued.IsZero() {
			c.IssuedAt = jwtlib.NewNumericDate(issued)
		}
		if !exp.IsZero() {
			c.ExpiresAt = jwtlib.NewNumericDate(exp)
		}
		return c
	}

	list.Revoke(claimsFor("live", now, now.Add(10*time.Minute)))
	list.Revoke(claimsFor("long-lived", now, now.Add(24*time.Hour)))
	list.Revoke(claimsFor("no-exp", time.Time{}, time.Time{}))
	list.Revoke(claimsFor("lapsed", now.Add(-time.Hour), now.Add(-time.Minute)))
	list.Revoke(claimsFor("", now, now.Add(time.Hour)))
	list.Revoke(nil)

	require.Equal(t, 3, list.Len())
	require.True(t, list.IsRevoked("live"))
	require.True(t, list.IsRevoked("long-lived"))
	require.True(t, list.IsRevoked("no-exp"))
	require.False(t, list.IsRevoked("lapsed"))
	require.False(t, list.IsRevoked(""))

	now = now.Add(11 * time.Minute)
	require.False(t, list.IsRevoked("live"))
	require.Equal(t, 2, list.Len())

	// Entries never outlive one access token lifetime.
	now = now.Add(4 * time.Minute)
	require.Equal(t, 2, list.Prune())
	require.Zero(t, list.Len())
	require.False(t, list.IsRevoked("long-lived"))
}
