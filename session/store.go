package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/rs/zerolog"
)

var errNotFound = apierrors.ErrNotFound

// Store owns the current session. It is the only shared mutable state in the
// client; the refresher and the auth controller write it, everything else reads.
type Store struct {
	mu        sync.RWMutex
	current   Session
	persister Persister
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPersister sets where the session is saved. The default keeps it in memory only.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// WithNowTime overrides the clock used for expiry checks.
func WithNowTime(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the store's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// NewStore creates an empty store. Call Restore to load a persisted session.
func NewStore(opts ...Option) *Store {
	s := &Store{
		persister: NopPersister{},
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Now is the clock the store measures expiry against.
func (s *Store) Now() time.Time {
	return s.now()
}

// Set records new credentials. The recorded expiry is now + expiresIn - ExpiryMargin.
// The in-memory session only changes once the credential has been persisted.
func (s *Store) Set(ctx context.Context, accessToken, refreshToken string, expiresIn int) (Session, error) {
	if accessToken == "" {
		return Session{}, fmt.Errorf("[Store.Set] access token is required")
	}
	if expiresIn < 0 {
		return Session{}, fmt.Errorf("[Store.Set] expiresIn must not be negative, got %d", expiresIn)
	}

	sess := Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    s.now().Add(time.Duration(expiresIn)*time.Second - ExpiryMargin),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persister.Save(ctx, sess); err != nil {
		return Session{}, apierrors.Wrapf(err, "[Store.Set] persist session")
	}
	s.current = sess
	s.log.Debug().Time("expires_at", sess.ExpiresAt).Msg("session updated")
	return sess, nil
}

// Clear empties the session and removes the persisted credential. The
// in-memory session is cleared even when the persisted copy cannot be removed.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Session{}
	if err := s.persister.Delete(ctx); err != nil {
		return apierrors.Wrapf(err, "[Store.Clear] delete persisted session")
	}
	s.log.Debug().Msg("session cleared")
	return nil
}

// Restore loads a previously persisted credential. A credential that can be
// neither presented nor refreshed is discarded.
func (s *Store) Restore(ctx context.Context) error {
	sess, err := s.persister.Load(ctx)
	if err != nil {
		if apierrors.Is(err, errNotFound) {
			return nil
		}
		return apierrors.Wrapf(err, "[Store.Restore] load persisted session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !sess.Valid(s.now()) && !sess.CanRefresh() {
		s.log.Debug().Msg("discarding expired persisted session")
		if err := s.persister.Delete(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to delete expired persisted session")
		}
		return nil
	}
	s.current = sess
	return nil
}
