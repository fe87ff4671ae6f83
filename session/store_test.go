package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/pool-admin/session"
	sessionrepofake "github.com/jrsteele09/pool-admin/session/repofake"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*session.Store, *sessionrepofake.InMemoryPersister) {
	t.Helper()
	p := sessionrepofake.NewInMemoryPersister()
	s := session.NewStore(
		session.WithPersister(p),
		session.WithNowTime(func() time.Time { return fixedNow }),
	)
	return s, p
}

func TestSetAppliesExpiryMargin(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn int
		want      time.Time
	}{
		{"fifteen minutes", 900, fixedNow.Add(14 * time.Minute)},
		{"boundary sixty seconds", 60, fixedNow},
		{"shorter than margin", 30, fixedNow.Add(-30 * time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, p := newStore(t)
			sess, err := store.Set(context.Background(), "access", "refresh", tt.expiresIn)
			require.NoError(t, err)
			require.Equal(t, tt.want, sess.ExpiresAt)
			require.Equal(t, sess, store.Get())
			require.Len(t, p.Saves(), 1)
		})
	}
}

func TestSetBoundaryIsNotValid(t *testing.T) {
	store, _ := newStore(t)
	sess, err := store.Set(context.Background(), "access", "refresh", 60)
	require.NoError(t, err)
	require.False(t, sess.Valid(fixedNow))
	require.True(t, sess.CanRefresh())
}

func TestSetRejectsBadInput(t *testing.T) {
	store, p := newStore(t)

	_, err := store.Set(context.Background(), "", "refresh", 900)
	require.Error(t, err)
	_, err = store.Set(context.Background(), "access", "refresh", -1)
	require.Error(t, err)

	require.True(t, store.Get().IsEmpty())
	require.Empty(t, p.Saves())
}

func TestSetDoesNotChangeSessionWhenPersistFails(t *testing.T) {
	store, p := newStore(t)
	_, err := store.Set(context.Background(), "first", "refresh", 900)
	require.NoError(t, err)

	p.SaveErr = errors.New("disk full")
	_, err = store.Set(context.Background(), "second", "refresh", 900)
	require.Error(t, err)
	require.Equal(t, "first", store.Get().AccessToken)
}

func TestClear(t *testing.T) {
	store, p := newStore(t)
	_, err := store.Set(context.Background(), "access", "refresh", 900)
	require.NoError(t, err)

	require.NoError(t, store.Clear(context.Background()))
	require.True(t, store.Get().IsEmpty())
	_, ok := p.Stored()
	require.False(t, ok)
	require.Equal(t, 1, p.Deletes())
}

func TestClearEmptiesMemoryEvenWhenDeleteFails(t *testing.T) {
	store, p := newStore(t)
	_, err := store.Set(context.Background(), "access", "refresh", 900)
	require.NoError(t, err)

	p.DeleteErr = errors.New("permission denied")
	require.Error(t, store.Clear(context.Background()))
	require.True(t, store.Get().IsEmpty())
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing persisted", func(t *testing.T) {
		store, _ := newStore(t)
		require.NoError(t, store.Restore(ctx))
		require.True(t, store.Get().IsEmpty())
	})

	t.Run("valid session", func(t *testing.T) {
		store, p := newStore(t)
		want := session.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: fixedNow.Add(time.Minute)}
		require.NoError(t, p.Save(ctx, want))

		require.NoError(t, store.Restore(ctx))
		require.Equal(t, want, store.Get())
	})

	t.Run("expired but refreshable", func(t *testing.T) {
		store, p := newStore(t)
		want := session.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: fixedNow.Add(-time.Minute)}
		require.NoError(t, p.Save(ctx, want))

		require.NoError(t, store.Restore(ctx))
		require.Equal(t, want, store.Get())
	})

	t.Run("expired without refresh token is discarded", func(t *testing.T) {
		store, p := newStore(t)
		require.NoError(t, p.Save(ctx, session.Session{AccessToken: "a", ExpiresAt: fixedNow.Add(-time.Minute)}))

		require.NoError(t, store.Restore(ctx))
		require.True(t, store.Get().IsEmpty())
		_, ok := p.Stored()
		require.False(t, ok)
	})

	t.Run("load failure", func(t *testing.T) {
		store, p := newStore(t)
		p.LoadErr = errors.New("corrupt")
		require.Error(t, store.Restore(ctx))
	})
}
