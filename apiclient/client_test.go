package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/pool-admin/apiclient"
	"github.com/jrsteele09/pool-admin/authapi"
	"github.com/jrsteele09/pool-admin/internal/config"
	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/session"
	"github.com/jrsteele09/pool-admin/token/refresh"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

type bookingList struct {
	Bookings []string `json:"bookings"`
}

type pipelineFixture struct {
	mux          *http.ServeMux
	server       *httptest.Server
	store        *session.Store
	client       *apiclient.Client
	refreshCalls atomic.Int32
	refreshFail  atomic.Bool
	refreshTTL   atomic.Int32
	authFailures atomic.Int32
	sleeps       []time.Duration
	sleepMu      sync.Mutex
}

func newPipelineFixture(t *testing.T, opts ...apiclient.Option) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{mux: http.NewServeMux()}
	f.mux.HandleFunc("POST "+authapi.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		if f.refreshFail.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"refresh token revoked"}`))
			return
		}
		ttl := f.refreshTTL.Load()
		if ttl == 0 {
			ttl = 900
		}
		_, _ = w.Write([]byte(`{"accessToken":"new","refreshToken":"r2","expiresIn":` + strconv.Itoa(int(ttl)) + `}`))
	})
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	f.store = session.NewStore()
	refresher := refresh.NewRefresher(f.store, authapi.New(f.server.URL))

	cfg := config.New().WithAPIURL(f.server.URL)
	base := []apiclient.Option{
		apiclient.WithAuthFailureHandler(func(ctx context.Context, err error) {
			f.authFailures.Add(1)
		}),
		apiclient.WithSleeper(func(ctx context.Context, d time.Duration) error {
			f.sleepMu.Lock()
			defer f.sleepMu.Unlock()
			f.sleeps = append(f.sleeps, d)
			return nil
		}),
	}
	f.client = apiclient.New(cfg, f.store, refresher, append(base, opts...)...)
	return f
}

func (f *pipelineFixture) seed(t *testing.T, access, refreshToken string, expiresIn int) {
	t.Helper()
	_, err := f.store.Set(context.Background(), access, refreshToken, expiresIn)
	require.NoError(t, err)
}

func (f *pipelineFixture) recordedSleeps() []time.Duration {
	f.sleepMu.Lock()
	defer f.sleepMu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}

func writeBookings(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(bookingList{Bookings: []string{"b1", "b2"}})
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	const n = 8
	f := newPipelineFixture(t)
	f.seed(t, "old", "r1", 900)

	var oldHits, newHits atomic.Int32
	barrier := make(chan struct{})
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer old":
			// Hold every stale request until all of them have arrived.
			if oldHits.Add(1) == n {
				close(barrier)
			}
			<-barrier
			w.WriteHeader(http.StatusUnauthorized)
		case "Bearer new":
			newHits.Add(1)
			writeBookings(w)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
			if err == nil && len(out.Bookings) != 2 {
				err = apierrors.New("unexpected body")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, f.refreshCalls.Load())
	require.EqualValues(t, n, oldHits.Load())
	require.EqualValues(t, n, newHits.Load())
	require.Zero(t, f.authFailures.Load())
	require.Equal(t, "new", f.store.Get().AccessToken)
}

func TestSecond401IsNotRetriedAgain(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "old", "r1", 900)

	var hits atomic.Int32
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	})

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.ErrorIs(t, err, apierrors.ErrAuthentication)
	require.EqualValues(t, 2, hits.Load())
	require.EqualValues(t, 1, f.refreshCalls.Load())
	require.EqualValues(t, 1, f.authFailures.Load())
}

func TestAuthRetryUsesShortLivedRefreshedToken(t *testing.T) {
	for _, ttl := range []int32{60, 30} {
		t.Run(strconv.Itoa(int(ttl)), func(t *testing.T) {
			f := newPipelineFixture(t)
			f.seed(t, "old", "r1", 900)
			f.refreshTTL.Store(ttl)

			var mu sync.Mutex
			var auths []string
			f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				auths = append(auths, r.Header.Get("Authorization"))
				mu.Unlock()
				if r.Header.Get("Authorization") != "Bearer new" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				writeBookings(w)
			})

			out, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
			require.NoError(t, err)
			require.Len(t, out.Bookings, 2)
			require.EqualValues(t, 1, f.refreshCalls.Load())
			require.Zero(t, f.authFailures.Load())

			mu.Lock()
			defer mu.Unlock()
			require.Equal(t, []string{"Bearer old", "Bearer new"}, auths)
		})
	}
}

func TestRateRetryAfterAuthRetryKeepsRefreshedToken(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "old", "r1", 900)
	f.refreshTTL.Store(60)

	var mu sync.Mutex
	var auths []string
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		n := len(auths)
		mu.Unlock()
		switch {
		case r.Header.Get("Authorization") != "Bearer new":
			w.WriteHeader(http.StatusUnauthorized)
		case n == 2:
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			writeBookings(w)
		}
	})

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, f.refreshCalls.Load())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"Bearer old", "Bearer new", "Bearer new"}, auths)
}

func TestFailedRefreshPropagatesAndTriggersTeardown(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "old", "r1", 900)
	f.refreshFail.Store(true)

	var hits atomic.Int32
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.ErrorIs(t, err, apierrors.ErrAuthentication)

	var refreshErr *refresh.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	require.EqualValues(t, 1, hits.Load())
	require.EqualValues(t, 1, f.authFailures.Load())
}

func TestNoRefreshTokenPropagates(t *testing.T) {
	f := newPipelineFixture(t)

	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.ErrorIs(t, err, apierrors.ErrNoRefreshToken)
	require.Zero(t, f.refreshCalls.Load())
	require.EqualValues(t, 1, f.authFailures.Load())
}

func TestRateLimitRetriesOnceAfterRetryAfter(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "a1", "r1", 900)

	var hits atomic.Int32
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeBookings(w)
	})

	out, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.NoError(t, err)
	require.Len(t, out.Bookings, 2)
	require.EqualValues(t, 2, hits.Load())

	sleeps := f.recordedSleeps()
	require.Len(t, sleeps, 1)
	require.GreaterOrEqual(t, sleeps[0], 2*time.Second)
}

func TestSecond429Propagates(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "a1", "r1", 900)

	var hits atomic.Int32
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.ErrorIs(t, err, apierrors.ErrRateLimit)
	require.EqualValues(t, 2, hits.Load())
	require.Len(t, f.recordedSleeps(), 1)
}

func Test429WithoutRetryAfterPropagates(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "a1", "r1", 900)

	var hits atomic.Int32
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.ErrorIs(t, err, apierrors.ErrRateLimit)
	require.EqualValues(t, 1, hits.Load())
	require.Empty(t, f.recordedSleeps())
}

func TestRateLimitWaitsInRealTime(t *testing.T) {
	f := newPipelineFixture(t)
	f.client = apiclient.New(config.New().WithAPIURL(f.server.URL), f.store, refresh.NewRefresher(f.store, authapi.New(f.server.URL)))
	f.seed(t, "a1", "r1", 900)

	var hits atomic.Int32
	var first, second atomic.Int64
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			first.Store(time.Now().UnixNano())
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		second.Store(time.Now().UnixNano())
		writeBookings(w)
	})

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Duration(second.Load()-first.Load()), time.Second)
}

func TestRateLimitWaitHonoursCancellation(t *testing.T) {
	f := newPipelineFixture(t)
	f.client = apiclient.New(config.New().WithAPIURL(f.server.URL), f.store, refresh.NewRefresher(f.store, authapi.New(f.server.URL)))
	f.seed(t, "a1", "r1", 900)

	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := apiclient.Get[bookingList](ctx, f.client, "/bookings", nil)
	require.ErrorIs(t, err, apierrors.ErrRateLimit)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestHeaders(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "a1", "r1", 900)

	headers := make(chan http.Header, 1)
	f.mux.HandleFunc("POST /bookings/b1/assign", func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "tech-1", body["technicianId"])
		w.WriteHeader(http.StatusNoContent)
	})

	before := time.Now().UnixMilli()
	err := f.client.Do(context.Background(), apiclient.Request{
		Method: http.MethodPost,
		Path:   "bookings/b1/assign",
		Body:   map[string]string{"technicianId": "tech-1"},
		Header: http.Header{"X-Client": []string{"cli"}},
	}, &struct{}{})
	require.NoError(t, err)

	got := <-headers
	require.Equal(t, "Bearer a1", got.Get("Authorization"))
	require.Equal(t, "application/json", got.Get("Content-Type"))
	require.Equal(t, "cli", got.Get("X-Client"))

	_, err = ulid.ParseStrict(got.Get(apiclient.HeaderRequestID))
	require.NoError(t, err)

	ts, err := strconv.ParseInt(got.Get(apiclient.HeaderRequestTimestamp), 10, 64)
	require.NoError(t, err)
	require.GreaterOrEqual(t, ts, before)
	require.LessOrEqual(t, ts, time.Now().UnixMilli())
}

func TestExpiredTokenIsRefreshedBeforeSending(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "old", "r1", 0)

	auths := make(chan string, 1)
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		auths <- r.Header.Get("Authorization")
		writeBookings(w)
	})

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer new", <-auths)
	require.EqualValues(t, 1, f.refreshCalls.Load())
}

func TestExpiredTokenRefreshedToShortLivedTokenIsStillSent(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "old", "r1", 0)
	f.refreshTTL.Store(60)

	auths := make(chan string, 1)
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		auths <- r.Header.Get("Authorization")
		writeBookings(w)
	})

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer new", <-auths)
	require.EqualValues(t, 1, f.refreshCalls.Load())
}

func TestExpiredTokenSentWithoutCredentialWhenRefreshFails(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "old", "r1", 0)
	f.refreshFail.Store(true)

	auths := make(chan string, 1)
	f.mux.HandleFunc("GET /public/status", func(w http.ResponseWriter, r *http.Request) {
		auths <- r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"bookings":[]}`))
	})

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/public/status", nil)
	require.NoError(t, err)
	require.Empty(t, <-auths)
}

func TestErrorStatusesPropagate(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
		msg    string
	}{
		{"forbidden", http.StatusForbidden, `{"message":"missing bookings:write"}`, apierrors.ErrAuthorization, "missing bookings:write"},
		{"unprocessable", http.StatusUnprocessableEntity, `{"message":"technicianId is required"}`, apierrors.ErrValidation, "technicianId is required"},
		{"server", http.StatusInternalServerError, ``, apierrors.ErrServer, "Internal Server Error"},
		{"not found", http.StatusNotFound, `{"error":"no such booking"}`, apierrors.ErrUnknown, "no such booking"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			f.seed(t, "a1", "r1", 900)
			var hits atomic.Int32
			f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.msg, apierrors.MessageOf(err))
			require.EqualValues(t, 1, hits.Load())

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			require.NotEmpty(t, apiErr.RequestID)
		})
	}
}

type strictBookings struct {
	Bookings []string `json:"bookings"`
}

func (s *strictBookings) Validate() error {
	if s.Bookings == nil {
		return apierrors.New("bookings is required")
	}
	return nil
}

func TestResponseShapeMismatchFailsClosed(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "a1", "r1", 900)
	f.mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	_, err := apiclient.Get[strictBookings](context.Background(), f.client, "/bookings", nil)
	require.ErrorIs(t, err, apierrors.ErrValidation)
}

func TestNetworkFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.seed(t, "a1", "r1", 900)
	f.server.Close()

	_, err := apiclient.Get[bookingList](context.Background(), f.client, "/bookings", nil)
	require.ErrorIs(t, err, apierrors.ErrNetwork)
}

func TestTokenSource(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.client.TokenSource(context.Background()).Token()
	require.ErrorIs(t, err, apierrors.ErrSessionExpired)
	require.ErrorIs(t, err, apierrors.ErrAuthentication)

	f.seed(t, "old", "r1", 0)
	tok, err := f.client.TokenSource(context.Background()).Token()
	require.NoError(t, err)
	require.Equal(t, "new", tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())
	require.True(t, tok.Valid())
}
