// Package devbackend is a loopback stand-in for the admin API, used when
// USE_REAL_API is false. It speaks the same auth and admin contract as the
// real backend so the client core runs unchanged against it.
package devbackend

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/pool-admin/internal/config"
	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/session"
	"github.com/jrsteele09/pool-admin/token"
	"github.com/jrsteele09/pool-admin/users"
	fakeuserrepo "github.com/jrsteele09/pool-admin/users/repofake"
	"github.com/rs/zerolog"
)

type Server struct {
	mux    *http.ServeMux
	routes []string

	users    users.UserRepo
	issuer   *issuer
	fixtures *fixtures
	hub      *hub

	cookieName    string
	throttleEvery int
	retryAfter    time.Duration
	requests      atomic.Int64
	now           func() time.Time
	log           zerolog.Logger
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithUserRepo replaces the seeded user repository.
func WithUserRepo(repo users.UserRepo) Option {
	return func(s *Server) {
		s.users = repo
	}
}

func WithCookieName(name string) Option {
	return func(s *Server) {
		s.cookieName = name
	}
}

// WithThrottle makes every nth API request fail with 429 and Retry-After.
func WithThrottle(every int, retryAfter time.Duration) Option {
	return func(s *Server) {
		s.throttleEvery = every
		s.retryAfter = retryAfter
	}
}

func New(cfg config.DevBackendConfig, opts ...Option) (*Server, error) {
	now := func() time.Time { return token.NowTimeFunc() }

	s := &Server{
		mux:        http.NewServeMux(),
		fixtures:   newFixtures(now()),
		hub:        newHub(),
		cookieName: session.DefaultCookieName,
		now:        now,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	iss, err := newIssuer(cfg, now)
	if err != nil {
		return nil, err
	}
	s.issuer = iss

	if s.users == nil {
		u, err := seedUser(now())
		if err != nil {
			return nil, err
		}
		repo := fakeuserrepo.NewFakeUserRepo()
		if err := repo.Upsert(u); err != nil {
			return nil, apierrors.Wrapf(err, "[devbackend.New] seed user")
		}
		s.users = repo
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	auth := s.RequireAuth()

	s.RegisterRouteFunc(RouteAuthLogin, ChainMiddleware(s.handleLogin, s.APIMiddleware()...))
	s.RegisterRouteFunc(RouteAuthRefresh, ChainMiddleware(s.handleRefresh, s.APIMiddleware()...))
	s.RegisterRouteFunc(RouteAuthLogout, ChainMiddleware(s.handleLogout, s.APIMiddleware(auth)...))
	s.RegisterRouteFunc(RouteSession, ChainMiddleware(s.handleSession, s.APIMiddleware(auth)...))

	api := func(h http.HandlerFunc, permission string) http.HandlerFunc {
		mw := s.APIMiddleware(s.ThrottleMiddleware, auth)
		if permission != "" {
			mw = append(mw, s.RequirePermission(permission))
		}
		return ChainMiddleware(h, mw...)
	}
	s.RegisterRouteFunc(RouteCustomers, api(s.handleListCustomers, ""))
	s.RegisterRouteFunc(RouteCustomerSearch, api(s.handleSearchCustomers, ""))
	s.RegisterRouteFunc(RouteCustomer, api(s.handleGetCustomer, ""))
	s.RegisterRouteFunc(RouteBookings, api(s.handleListBookings, users.PermBookingsRead))
	s.RegisterRouteFunc(RouteBooking, api(s.handleGetBooking, users.PermBookingsRead))
	s.RegisterRouteFunc(RouteBookingAssign, api(s.handleAssignBooking, users.PermBookingsWrite))
	s.RegisterRouteFunc(RouteReportAnalytics, api(s.handleReportAnalytics, ""))

	s.RegisterRouteFunc(RouteRealtimeBookings, ChainMiddleware(s.handleRealtime, s.APIMiddleware(auth)...))
}

// Routes lists the registered "METHOD /path" patterns.
func (s *Server) Routes() []string {
	return slices.Clone(s.routes)
}

func (s *Server) logRoutes() {
	for _, route := range s.routes {
		method, path, _ := strings.Cut(route, " ")
		s.log.Debug().Str("method", method).Str("path", path).Msg("dev backend route")
	}
}

// Start listens on addr and serves until ctx is done. It returns the base URL
// clients should use.
func (s *Server) Start(ctx context.Context, addr string) (string, <-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, apierrors.Wrapf(err, "[Server.Start] listen on %s", addr)
	}
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	done := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()
	go func() {
		<-ctx.Done()
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	baseURL := "http://" + ln.Addr().String()
	s.log.Info().Str("url", baseURL).Msg("development backend listening")
	return baseURL, done, nil
}
