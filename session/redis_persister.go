package session

import (
	"context"
	"encoding/json"
	"time"

	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRefreshWindow extends the key TTL past the access token expiry so the
// refresh token is still available for an exchange.
const DefaultRefreshWindow = 7 * 24 * time.Hour

// RedisPersister stores the session under a single key whose TTL follows the
// session expiry.
type RedisPersister struct {
	client        redis.UniversalClient
	key           string
	refreshWindow time.Duration
	now           func() time.Time
}

var _ Persister = (*RedisPersister)(nil)

func NewRedisPersister(client redis.UniversalClient, keyPrefix, profile string) *RedisPersister {
	if profile == "" {
		profile = "default"
	}
	return &RedisPersister{
		client:        client,
		key:           keyPrefix + profile,
		refreshWindow: DefaultRefreshWindow,
		now:           time.Now,
	}
}

func (p *RedisPersister) Key() string {
	return p.key
}

func (p *RedisPersister) ttl(sess Session) time.Duration {
	ttl := sess.ExpiresAt.Sub(p.now())
	if sess.CanRefresh() {
		ttl += p.refreshWindow
	}
	return ttl
}

func (p *RedisPersister) Save(ctx context.Context, sess Session) error {
	ttl := p.ttl(sess)
	if ttl <= 0 {
		return errors.New("[RedisPersister.Save] session is already expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "[RedisPersister.Save] marshal session")
	}
	return errors.Wrap(p.client.Set(ctx, p.key, data, ttl).Err(), "[RedisPersister.Save] redis set")
}

func (p *RedisPersister) Load(ctx context.Context) (Session, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, apierrors.ErrNotFound
		}
		return Session{}, errors.Wrap(err, "[RedisPersister.Load] redis get")
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, errors.Wrap(err, "[RedisPersister.Load] unmarshal session")
	}
	return sess, nil
}

func (p *RedisPersister) Delete(ctx context.Context) error {
	return errors.Wrap(p.client.Del(ctx, p.key).Err(), "[RedisPersister.Delete] redis del")
}
