package devbackend

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/pool-admin/internal/config"
	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
)

// StoredRefreshToken is the server-side record behind an opaque refresh token.
// The client only ever sees Token.
type StoredRefreshToken struct {
	Token  string
	UserID string
	Iat    time.Time
}

type RefreshTokenRepo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	GetByUserID(userID string) (*StoredRefreshToken, error)
}

type inMemoryRefreshTokenRepo struct {
	tokens  map[string]*StoredRefreshToken
	userIDs map[string]string // user ID to token
	lock    sync.RWMutex
}

var _ RefreshTokenRepo = (*inMemoryRefreshTokenRepo)(nil)

func newInMemoryRefreshTokenRepo() *inMemoryRefreshTokenRepo {
	return &inMemoryRefreshTokenRepo{
		tokens:  make(map[string]*StoredRefreshToken),
		userIDs: make(map[string]string),
	}
}

func (r *inMemoryRefreshTokenRepo) Upsert(rt *StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	cp := *rt
	r.tokens[rt.Token] = &cp
	r.userIDs[rt.UserID] = rt.Token
	return nil
}

func (r *inMemoryRefreshTokenRepo) Delete(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	rt, ok := r.tokens[token]
	if !ok {
		return apierrors.ErrNotFound
	}
	if r.userIDs[rt.UserID] == token {
		delete(r.userIDs, rt.UserID)
	}
	delete(r.tokens, token)
	return nil
}

func (r *inMemoryRefreshTokenRepo) Get(token string) (*StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, apierrors.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (r *inMemoryRefreshTokenRepo) GetByUserID(userID string) (*StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	token, ok := r.userIDs[userID]
	if !ok {
		return nil, apierrors.ErrNotFound
	}
	cp := *r.tokens[token]
	return &cp, nil
}

// refreshManager issues and rotates opaque refresh tokens. A user holds at
// most one live refresh token; issuing a new one revokes the previous.
type refreshManager struct {
	mu   sync.Mutex
	repo RefreshTokenRepo
	cfg  config.DevBackendConfig
	now  func() time.Time
}

var errInvalidRefreshToken = fmt.Errorf("invalid refresh token")

func newRefreshManager(repo RefreshTokenRepo, cfg config.DevBackendConfig, now func() time.Time) *refreshManager {
	return &refreshManager{repo: repo, cfg: cfg, now: now}
}

func (m *refreshManager) Create(userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(userID)
}

func (m *refreshManager) create(userID string) (string, error) {
	if existing, err := m.repo.GetByUserID(userID); err == nil {
		if err := m.repo.Delete(existing.Token); err != nil {
			return "", apierrors.Wrapf(err, "[refreshManager.Create] delete existing refresh token")
		}
	}

	tokenBytes := make([]byte, m.cfg.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", apierrors.Wrapf(err, "[refreshManager.Create] generate random bytes")
	}
	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{Token: tokenStr, UserID: userID, Iat: m.now()}); err != nil {
		return "", apierrors.Wrapf(err, "[refreshManager.Create] store refresh token")
	}
	return tokenStr, nil
}

// Rotate consumes token and returns its user with a replacement token. A token
// can be exchanged exactly once.
func (m *refreshManager) Rotate(token string) (userID, next string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rt, err := m.repo.Get(token)
	if err != nil {
		return "", "", errInvalidRefreshToken
	}
	if m.isExpired(rt) {
		_ = m.repo.Delete(token)
		return "", "", errInvalidRefreshToken
	}
	if err := m.repo.Delete(token); err != nil {
		return "", "", errInvalidRefreshToken
	}
	next, err = m.create(rt.UserID)
	if err != nil {
		return "", "", err
	}
	return rt.UserID, next, nil
}

// RevokeUser drops the live refresh token of userID, if any.
func (m *refreshManager) RevokeUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, err := m.repo.GetByUserID(userID); err == nil {
		_ = m.repo.Delete(rt.Token)
	}
}

func (m *refreshManager) isExpired(rt *StoredRefreshToken) bool {
	return m.now().Sub(rt.Iat) > m.cfg.GetDefaultRefreshTokenExpiry()
}
