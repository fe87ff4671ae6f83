package refresh

import (
	"context"
	"fmt"

	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/internal/metrics"
	"github.com/jrsteele09/pool-admin/session"
	"github.com/jrsteele09/pool-admin/token"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// flightKey is shared by every caller: there is at most one exchange in flight
// for the process, whatever token triggered it.
const flightKey = "refresh"

// Exchanger swaps a refresh token for a new credential set.
type Exchanger interface {
	Refresh(ctx context.Context, refreshToken string) (*token.TokenResponse, error)
}

// RefreshError is returned when no new credential could be obtained. It
// matches apierrors.ErrAuthentication.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

func (e *RefreshError) Is(target error) bool {
	return target == apierrors.ErrAuthentication
}

// Refresher coalesces concurrent refresh attempts into a single exchange.
type Refresher struct {
	store     *session.Store
	exchanger Exchanger
	group     singleflight.Group
	metrics   metrics.Recorder
	log       zerolog.Logger
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithMetrics records the outcome of each exchange.
func WithMetrics(m metrics.Recorder) Option {
	return func(r *Refresher) {
		r.metrics = m
	}
}

// WithLogger sets the refresher's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Refresher) {
		r.log = l
	}
}

// NewRefresher creates a refresher that exchanges the refresh token held in
// store and writes the result back to it.
func NewRefresher(store *session.Store, exchanger Exchanger, opts ...Option) *Refresher {
	r := &Refresher{
		store:     store,
		exchanger: exchanger,
		metrics:   metrics.Nop{},
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh obtains a new access token to replace staleAccessToken and returns
// the session holding it. When the store already holds a different, valid token
// the stale one has been replaced by an earlier exchange and that session is
// returned without a new exchange. Callers arriving while an exchange is
// running wait for and share its result.
func (r *Refresher) Refresh(ctx context.Context, staleAccessToken string) (session.Session, error) {
	if current, ok := r.alreadyReplaced(staleAccessToken); ok {
		return current, nil
	}

	// The exchange outlives any single caller's cancellation since other callers share it.
	ch := r.group.DoChan(flightKey, func() (any, error) {
		return r.exchange(context.WithoutCancel(ctx), staleAccessToken)
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.log.Debug().Msg("joined in-flight token refresh")
		}
		if res.Err != nil {
			return session.Session{}, res.Err
		}
		return res.Val.(session.Session), nil
	case <-ctx.Done():
		return session.Session{}, ctx.Err()
	}
}

func (r *Refresher) alreadyReplaced(staleAccessToken string) (session.Session, bool) {
	current := r.store.Get()
	return current, current.AccessToken != staleAccessToken && current.Valid(r.store.Now())
}

func (r *Refresher) exchange(ctx context.Context, staleAccessToken string) (session.Session, error) {
	// A flight that started after another completed must not exchange again.
	if current, ok := r.alreadyReplaced(staleAccessToken); ok {
		return current, nil
	}

	current := r.store.Get()
	if !current.CanRefresh() {
		return session.Session{}, &RefreshError{Err: apierrors.ErrNoRefreshToken}
	}

	r.log.Debug().Msg("exchanging refresh token")
	resp, err := r.exchanger.Refresh(ctx, current.RefreshToken)
	if err != nil {
		r.metrics.IncRefresh("failure")
		r.log.Warn().Err(err).Msg("refresh token exchange rejected")
		return session.Session{}, &RefreshError{Err: err}
	}

	sess, err := r.store.Set(ctx, resp.AccessToken, resp.RefreshToken, resp.ExpiresIn)
	if err != nil {
		r.metrics.IncRefresh("failure")
		return session.Session{}, &RefreshError{Err: err}
	}
	r.metrics.IncRefresh("success")
	return sess, nil
}
