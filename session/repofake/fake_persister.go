package sessionrepofake

import (
	"context"
	"sync"

	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/session"
)

var _ session.Persister = (*InMemoryPersister)(nil)

// InMemoryPersister records every call so tests can assert on store writes.
type InMemoryPersister struct {
	lock    sync.RWMutex
	stored  *session.Session
	saves   []session.Session
	deletes int

	SaveErr   error
	LoadErr   error
	DeleteErr error
}

func NewInMemoryPersister() *InMemoryPersister {
	return &InMemoryPersister{}
}

func (p *InMemoryPersister) Save(_ context.Context, sess session.Session) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.SaveErr != nil {
		return p.SaveErr
	}
	p.saves = append(p.saves, sess)
	p.stored = &sess
	return nil
}

func (p *InMemoryPersister) Load(_ context.Context) (session.Session, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	if p.LoadErr != nil {
		return session.Session{}, p.LoadErr
	}
	if p.stored == nil {
		return session.Session{}, apierrors.ErrNotFound
	}
	return *p.stored, nil
}

func (p *InMemoryPersister) Delete(_ context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.deletes++
	if p.DeleteErr != nil {
		return p.DeleteErr
	}
	p.stored = nil
	return nil
}

// Saves returns every session written, oldest first.
func (p *InMemoryPersister) Saves() []session.Session {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return append([]session.Session(nil), p.saves...)
}

func (p *InMemoryPersister) Deletes() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.deletes
}

// Stored returns the persisted session and whether one exists.
func (p *InMemoryPersister) Stored() (session.Session, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.stored == nil {
		return session.Session{}, false
	}
	return *p.stored, true
}
