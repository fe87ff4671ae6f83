package refresh_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/session"
	sessionrepofake "github.com/jrsteele09/pool-admin/session/repofake"
	"github.com/jrsteele09/pool-admin/token"
	"github.com/jrsteele09/pool-admin/token/refresh"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeExchanger struct {
	calls   atomic.Int32
	release chan struct{}
	resp    *token.TokenResponse
	err     error
	gotRT   atomic.Value
}

func (f *fakeExchanger) Refresh(ctx context.Context, refreshToken string) (*token.TokenResponse, error) {
	f.calls.Add(1)
	f.gotRT.Store(refreshToken)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type refresherFixture struct {
	store     *session.Store
	persister *sessionrepofake.InMemoryPersister
	exchanger *fakeExchanger
	refresher *refresh.Refresher
}

func newFixture(t *testing.T) *refresherFixture {
	t.Helper()
	p := sessionrepofake.NewInMemoryPersister()
	store := session.NewStore(
		session.WithPersister(p),
		session.WithNowTime(func() time.Time { return fixedNow }),
	)
	ex := &fakeExchanger{resp: &token.TokenResponse{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 900}}
	return &refresherFixture{
		store:     store,
		persister: p,
		exchanger: ex,
		refresher: refresh.NewRefresher(store, ex),
	}
}

func (f *refresherFixture) seed(t *testing.T, access, refreshToken string, expiresIn int) {
	t.Helper()
	_, err := f.store.Set(context.Background(), access, refreshToken, expiresIn)
	require.NoError(t, err)
}

func TestRefreshComputesExpiry(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn int
		want      time.Time
	}{
		{"fifteen minutes", 900, fixedNow.Add(14 * time.Minute)},
		{"boundary", 60, fixedNow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, "a1", "r1", 0)
			f.exchanger.resp = &token.TokenResponse{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: tt.expiresIn}

			got, err := f.refresher.Refresh(context.Background(), "a1")
			require.NoError(t, err)
			require.Equal(t, "a2", got.AccessToken)

			sess := f.store.Get()
			require.Equal(t, "a2", sess.AccessToken)
			require.Equal(t, "r2", sess.RefreshToken)
			require.Equal(t, tt.want, sess.ExpiresAt)
			require.Equal(t, "r1", f.exchanger.gotRT.Load())
		})
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.refresher.Refresh(context.Background(), "")
	require.ErrorIs(t, err, apierrors.ErrNoRefreshToken)
	require.ErrorIs(t, err, apierrors.ErrAuthentication)

	var refreshErr *refresh.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	require.Zero(t, f.exchanger.calls.Load())
}

func TestRefreshRejectedByBackend(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a1", "r1", 0)
	f.exchanger.err = &apierrors.APIError{Kind: apierrors.KindAuthentication, StatusCode: 401, Message: "refresh token revoked"}

	_, err := f.refresher.Refresh(context.Background(), "a1")
	require.ErrorIs(t, err, apierrors.ErrAuthentication)
	require.Equal(t, "refresh token revoked", apierrors.MessageOf(err))
	require.Equal(t, "a1", f.store.Get().AccessToken)
}

func TestRefreshServerErrorIsStillAuthenticationFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a1", "r1", 0)
	f.exchanger.err = errors.New("connection reset")

	_, err := f.refresher.Refresh(context.Background(), "a1")
	require.ErrorIs(t, err, apierrors.ErrAuthentication)
}

func TestConcurrentRefreshesShareOneExchange(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a1", "r1", 0)
	f.exchanger.release = make(chan struct{})

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	tokens := make(chan string, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := f.refresher.Refresh(context.Background(), "a1")
			errs <- err
			tokens <- sess.AccessToken
		}()
	}

	require.Eventually(t, func() bool { return f.exchanger.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(f.exchanger.release)
	wg.Wait()
	close(errs)
	close(tokens)

	for err := range errs {
		require.NoError(t, err)
	}
	for tok := range tokens {
		require.Equal(t, "a2", tok)
	}
	require.EqualValues(t, 1, f.exchanger.calls.Load())
	require.Len(t, f.persister.Saves(), 2)
}

func TestLateCallerWithStaleTokenDoesNotExchangeAgain(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a1", "r1", 0)

	_, err := f.refresher.Refresh(context.Background(), "a1")
	require.NoError(t, err)
	late, err := f.refresher.Refresh(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, "a2", late.AccessToken)

	require.EqualValues(t, 1, f.exchanger.calls.Load())
}

func TestCallerCancellationDoesNotAbortSharedExchange(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a1", "r1", 0)
	f.exchanger.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.refresher.Refresh(ctx, "a1")
		done <- err
	}()

	require.Eventually(t, func() bool { return f.exchanger.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(f.exchanger.release)
	require.Eventually(t, func() bool { return f.store.Get().AccessToken == "a2" }, time.Second, time.Millisecond)
}
