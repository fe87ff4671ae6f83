package auth

import (
	"context"
	"sync"

	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/session"
	"github.com/jrsteele09/pool-admin/users"
	"github.com/rs/zerolog"
)

type State int

const (
	StateUnresolved State = iota // initial, and while a login or resolution is pending
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// Navigator receives the redirects decided by the controller.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Snapshot is a consistent view of the controller state.
type Snapshot struct {
	State    State
	User     *users.User
	Err      string
	Location string
}

// Controller owns the authenticated identity and keeps the current location
// consistent with it.
type Controller struct {
	mu        sync.RWMutex
	state     State
	user      *users.User
	errMsg    string
	location  string
	listeners map[int]func(Snapshot)
	nextID    int

	backend   Backend
	store     *session.Store
	navigator Navigator
	routes    Routes
	log       zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithNavigator sets what is told about redirects.
func WithNavigator(n Navigator) Option {
	return func(c *Controller) {
		c.navigator = n
	}
}

// WithRoutes replaces DefaultRoutes.
func WithRoutes(r Routes) Option {
	return func(c *Controller) {
		c.routes = r
	}
}

// WithLocation sets the view the controller starts on.
func WithLocation(path string) Option {
	return func(c *Controller) {
		c.location = normalizePath(path)
	}
}

// WithLogger sets the controller's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// NewController creates a controller in the unresolved state. Call Start to
// resolve the current identity.
func NewController(backend Backend, store *session.Store, opts ...Option) *Controller {
	c := &Controller{
		state:     StateUnresolved,
		location:  RouteDashboard,
		listeners: make(map[int]func(Snapshot)),
		backend:   backend,
		store:     store,
		navigator: NavigatorFunc(func(string) {}),
		routes:    DefaultRoutes(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start restores any persisted credential and resolves the current identity.
// A failed resolution is the normal first-visit outcome and is not reported.
func (c *Controller) Start(ctx context.Context) {
	if err := c.store.Restore(ctx); err != nil {
		c.log.Warn().Err(err).Msg("could not restore persisted session")
	}
	c.resolve(ctx)
}

// Refresh re-resolves the identity against the backend.
func (c *Controller) Refresh(ctx context.Context) {
	c.resolve(ctx)
}

func (c *Controller) resolve(ctx context.Context) {
	user, err := c.backend.Session(ctx)
	if err == nil {
		err = user.Validate()
	}
	if err != nil {
		c.log.Debug().Err(err).Msg("no active session")
		c.transition(func() {
			c.state = StateAnonymous
			c.user = nil
		})
		return
	}
	c.transition(func() {
		c.state = StateAuthenticated
		c.user = user.Clone()
		c.errMsg = ""
	})
}

// Login authenticates with the backend. On failure the session store is left
// untouched and Err holds the backend's message.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	c.transition(func() {
		c.state = StateUnresolved
		c.errMsg = ""
	})

	resp, err := c.backend.Login(ctx, email, password)
	if err != nil {
		c.log.Info().Err(err).Str("email", email).Msg("login failed")
		c.failLogin(err)
		return err
	}
	if _, err := c.store.Set(ctx, resp.AccessToken, resp.RefreshToken, resp.ExpiresIn); err != nil {
		c.log.Error().Err(err).Msg("could not store session after login")
		c.failLogin(err)
		return err
	}

	c.log.Info().Str("user_id", resp.User.ID).Str("role", string(resp.User.Role)).Msg("logged in")
	c.transition(func() {
		c.state = StateAuthenticated
		c.user = resp.User.Clone()
		c.location = c.routes.Default
	})
	c.navigator.Navigate(c.routes.Default)
	return nil
}

func (c *Controller) failLogin(err error) {
	msg := apierrors.MessageOf(err)
	if msg == "" {
		msg = "Login failed"
	}
	c.transition(func() {
		c.state = StateAnonymous
		c.user = nil
		c.errMsg = msg
	})
}

// Logout always ends anonymous with an empty session store. The backend is
// told on a best-effort basis; its failure is only logged.
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.backend.Logout(ctx, c.store.Get().AccessToken); err != nil {
		c.log.Warn().Err(err).Msg("backend logout failed")
	}
	clearErr := c.store.Clear(ctx)
	if clearErr != nil {
		c.log.Error().Err(clearErr).Msg("could not remove persisted session")
	}

	c.transition(func() {
		c.state = StateAnonymous
		c.user = nil
		c.errMsg = ""
		c.location = c.routes.Login
	})
	c.navigator.Navigate(c.routes.Login)
	return clearErr
}

// Expire tears the session down after an authentication failure the request
// pipeline could not recover from. The redirect to login is silent.
func (c *Controller) Expire(ctx context.Context, cause error) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error().Err(err).Msg("could not remove persisted session")
	}

	c.mu.RLock()
	authenticated := c.state == StateAuthenticated
	c.mu.RUnlock()
	// A pending start or login settles the state itself.
	if !authenticated {
		return
	}

	c.log.Info().Err(cause).Msg("session expired")
	c.transition(func() {
		c.state = StateAnonymous
		c.user = nil
	})
}

// Navigate records a location change and applies the route guard.
func (c *Controller) Navigate(path string) {
	c.transition(func() {
		c.location = normalizePath(path)
	})
}

// ClearError dismisses the last login error.
func (c *Controller) ClearError() {
	c.transition(func() {
		c.errMsg = ""
	})
}

// Subscribe registers fn for every state change and returns a function that
// removes it.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// State returns the current authentication state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// User returns a copy of the authenticated user, or nil.
func (c *Controller) User() *users.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user.Clone()
}

// Err returns the message of the last failed login, or an empty string.
func (c *Controller) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errMsg
}

// Location returns the path of the current view.
func (c *Controller) Location() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.location
}

// Snapshot returns a consistent copy of the controller's state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.state,
		User:     c.user.Clone(),
		Err:      c.errMsg,
		Location: c.location,
	}
}

// transition applies mutate, evaluates the guard and then notifies the
// navigator and listeners outside the lock.
func (c *Controller) transition(mutate func()) {
	c.mu.Lock()
	mutate()
	redirect, ok := Guard(c.state, c.location, c.routes)
	if ok {
		c.location = redirect
	}
	snap := c.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	if ok {
		c.log.Debug().Str("to", redirect).Str("state", snap.State.String()).Msg("route guard redirect")
		c.navigator.Navigate(redirect)
	}
	for _, fn := range listeners {
		fn(snap)
	}
}
