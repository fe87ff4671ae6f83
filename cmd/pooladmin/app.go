package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/pool-admin/adminapi"
	"github.com/jrsteele09/pool-admin/apiclient"
	"github.com/jrsteele09/pool-admin/auth"
	"github.com/jrsteele09/pool-admin/authapi"
	"github.com/jrsteele09/pool-admin/devbackend"
	"github.com/jrsteele09/pool-admin/internal/config"
	"github.com/jrsteele09/pool-admin/internal/logging"
	"github.com/jrsteele09/pool-admin/internal/metrics"
	"github.com/jrsteele09/pool-admin/session"
	"github.com/jrsteele09/pool-admin/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var errNotLoggedIn = errors.New("not logged in, run 'pooladmin login' first")

// app is the client stack shared by every command.
type app struct {
	cfg        config.Config
	log        zerolog.Logger
	store      *session.Store
	authClient *authapi.Client
	api        *apiclient.Client
	admin      *adminapi.Client
	controller *auth.Controller

	closers []func() error
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}

// newApp wires the session store, token refresher, request pipeline and auth
// controller. Without the real API a development backend is started first and
// the client is pointed at it.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg, log: logging.New(cfg.GetEnv(), cfg.GetLogLevel())}

	if !cfg.UseRealAPI() {
		srv, err := devbackend.New(cfg,
			devbackend.WithLogger(a.log.With().Str("component", "devbackend").Logger()),
			devbackend.WithCookieName(cfg.GetCookieName()),
		)
		if err != nil {
			return nil, err
		}
		devCtx, stop := context.WithCancel(ctx)
		baseURL, done, err := srv.Start(devCtx, cfg.GetDevAddr())
		if err != nil {
			stop()
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			stop()
			return <-done
		})
		a.cfg = cfg.WithAPIURL(baseURL)
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheus(metrics.WithRegistry(registry))
	if addr := a.cfg.GetMetricsAddr(); addr != "" {
		a.serveMetrics(addr, registry)
	}

	persister, clientOpts, err := a.persister()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store = session.NewStore(
		session.WithPersister(persister),
		session.WithLogger(a.log),
	)
	a.authClient = authapi.New(a.cfg.GetAPIURL(),
		authapi.WithHTTPClient(&http.Client{Timeout: a.cfg.GetRequestTimeout()}),
		authapi.WithLogger(a.log),
	)
	refresher := refresh.NewRefresher(a.store, a.authClient,
		refresh.WithMetrics(recorder),
		refresh.WithLogger(a.log),
	)
	clientOpts = append(clientOpts, apiclient.WithMetrics(recorder), apiclient.WithLogger(a.log))
	a.api = apiclient.New(a.cfg, a.store, refresher, clientOpts...)
	a.admin = adminapi.New(a.api, adminapi.WithLogger(a.log))

	a.controller = auth.NewController(auth.NewRemoteBackend(a.admin, a.authClient), a.store,
		auth.WithLogger(a.log),
		auth.WithNavigator(auth.NavigatorFunc(func(path string) {
			a.log.Debug().Str("path", path).Msg("navigate")
		})),
	)
	a.api.SetAuthFailureHandler(a.controller.Expire)
	return a, nil
}

// persister selects where the credential survives between invocations.
func (a *app) persister() (session.Persister, []apiclient.Option, error) {
	switch a.cfg.GetCredentialStore() {
	case config.CredentialStoreCookie:
		jar, err := session.NewCookieJar()
		if err != nil {
			return nil, nil, err
		}
		p, err := session.NewCookiePersister(jar, a.cfg.GetAppURL(), a.cfg.GetCookieName())
		if err != nil {
			return nil, nil, err
		}
		return p, []apiclient.Option{apiclient.WithCookieJar(jar)}, nil
	case config.CredentialStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.GetRedisAddr(),
			Password: a.cfg.GetRedisPassword(),
			DB:       a.cfg.GetRedisDB(),
		})
		a.closers = append(a.closers, client.Close)
		return session.NewRedisPersister(client, a.cfg.GetRedisKeyPrefix(), ""), nil, nil
	default:
		return session.NewFilePersister(a.cfg.GetDataFolder()), nil, nil
	}
}

func (a *app) serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Str("addr", addr).Msg("metrics listener stopped")
		}
	}()
	a.closers = append(a.closers, srv.Close)
}

// start restores the persisted credential and fails unless it resolves to an
// authenticated operator.
func (a *app) start(ctx context.Context) error {
	a.controller.Start(ctx)
	if a.controller.State() != auth.StateAuthenticated {
		return errNotLoggedIn
	}
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("shutdown")
		}
	}
}
