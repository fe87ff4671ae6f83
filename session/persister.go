package session

import (
	"context"
)

// Persister keeps the credential across restarts. Load returns
// apierrors.ErrNotFound when nothing has been saved.
type Persister interface {
	Save(ctx context.Context, sess Session) error
	Load(ctx context.Context) (Session, error)
	Delete(ctx context.Context) error
}

// NopPersister keeps nothing.
type NopPersister struct{}

var _ Persister = NopPersister{}

func (NopPersister) Save(context.Context, Session) error { return nil }
func (NopPersister) Delete(context.Context) error        { return nil }

func (NopPersister) Load(context.Context) (Session, error) {
	return Session{}, errNotFound
}
