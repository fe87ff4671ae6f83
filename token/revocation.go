package token

import (
	"sync"
	"time"
)

// RevocationList remembers access tokens invalidated by logout. An entry is
// only kept while the token it names could still pass verification.
type RevocationList interface {
	Revoke(claims *Claims)
	IsRevoked(jti string) bool
	Prune() int
}

// MemoryRevocationList holds revoked token IDs for at most one access token
// lifetime.
type MemoryRevocationList struct {
	mu        sync.Mutex
	until     map[string]time.Time
	accessTTL time.Duration
	now       func() time.Time
}

var _ RevocationList = (*MemoryRevocationList)(nil)

// NewMemoryRevocationList bounds every entry by accessTTL, the lifetime the
// issuer gives its access tokens.
func NewMemoryRevocationList(accessTTL time.Duration, now func() time.Time) *MemoryRevocationList {
	if now == nil {
		now = NowTimeFunc
	}
	return &MemoryRevocationList{
		until:     make(map[string]time.Time),
		accessTTL: accessTTL,
		now:       now,
	}
}

// Revoke records claims.ID until the token expires. Tokens without an exp
// claim, or with one further out than accessTTL from issue, are kept for
// accessTTL from when they were issued or, failing that, from now.
func (l *MemoryRevocationList) Revoke(claims *Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	until := l.retainUntil(claims)
	if !until.After(l.now()) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.until[claims.ID] = until
}

func (l *MemoryRevocationList) retainUntil(claims *Claims) time.Time {
	start := l.now()
	if claims.IssuedAt != nil {
		start = claims.IssuedAt.Time
	}
	bound := start.Add(l.accessTTL)
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(bound) {
		return claims.ExpiresAt.Time
	}
	return bound
}

// IsRevoked reports whether jti is on the list. Lapsed entries are dropped
// on the way.
func (l *MemoryRevocationList) IsRevoked(jti string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.until[jti]
	if !ok {
		return false
	}
	if !l.now().Before(until) {
		delete(l.until, jti)
		return false
	}
	return true
}

// Prune drops lapsed entries and returns how many it removed.
func (l *MemoryRevocationList) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for jti, until := range l.until {
		if !now.Before(until) {
			delete(l.until, jti)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, lapsed or not.
func (l *MemoryRevocationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.until)
}
