// Package realtime keeps a websocket session open against a backend
// namespace and dispatches the events it pushes.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Lifecycle events delivered to handlers with no data.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

const (
	defaultReadLimit         = 1 << 20 // 1MiB
	defaultDialTimeout       = 10 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
	writeTimeout             = 5 * time.Second
)

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Handler func(ctx context.Context, data json.RawMessage)

type Connector struct {
	baseURL   string
	tokens    oauth2.TokenSource
	handlers  map[string][]Handler
	handlerMu sync.RWMutex

	connMu    sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool

	dialTimeout time.Duration
	heartbeat   time.Duration
	readLimit   int64
	httpClient  *http.Client
	log         zerolog.Logger
}

type Option func(*Connector)

func WithDialTimeout(d time.Duration) Option {
	return func(c *Connector) {
		c.dialTimeout = d
	}
}

// WithHeartbeat sets the ping interval. Zero disables pings.
func WithHeartbeat(d time.Duration) Option {
	return func(c *Connector) {
		c.heartbeat = d
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Connector) {
		c.httpClient = hc
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Connector) {
		c.log = l
	}
}

// NewConnector builds a connector for apiURL. Credentials are taken from
// tokens on every connect.
func NewConnector(apiURL string, tokens oauth2.TokenSource, opts ...Option) *Connector {
	c := &Connector{
		baseURL:     strings.TrimRight(apiURL, "/"),
		tokens:      tokens,
		handlers:    make(map[string][]Handler),
		dialTimeout: defaultDialTimeout,
		heartbeat:   defaultHeartbeatInterval,
		readLimit:   defaultReadLimit,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// On registers h for event. Handlers run on the read loop goroutine.
func (c *Connector) On(event string, h Handler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

func (c *Connector) Connected() bool {
	return c.connected.Load()
}

// NamespaceURL maps the API base URL onto the websocket scheme.
func NamespaceURL(apiURL, namespace string) (string, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return "", apierrors.Wrapf(err, "[NamespaceURL] parse %q", apiURL)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("[NamespaceURL] unsupported scheme %q", u.Scheme)
	}
	namespace = strings.Trim(namespace, "/")
	if namespace == "" {
		return "", fmt.Errorf("[NamespaceURL] namespace is required")
	}
	u.Path = u.Path + "/" + namespace
	return u.String(), nil
}

// Connect dials namespace and dispatches events until ctx is done or the
// server closes the connection. A normal close or cancellation returns nil.
func (c *Connector) Connect(ctx context.Context, namespace string) error {
	tok, err := c.tokens.Token()
	if err != nil {
		return apierrors.Wrapf(err, "[Connector.Connect] resolve credential")
	}
	if tok == nil || tok.AccessToken == "" {
		return apierrors.Wrapf(apierrors.ErrSessionExpired, "[Connector.Connect] no credential")
	}
	wsURL, err := NamespaceURL(c.baseURL, namespace)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", tok.Type()+" "+tok.AccessToken)

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	conn, resp, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		HTTPHeader: header,
		HTTPClient: c.httpClient,
	})
	cancel()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return &apierrors.APIError{
				Kind:       apierrors.KindFromStatus(resp.StatusCode),
				StatusCode: resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
				Method:     http.MethodGet,
				URL:        wsURL,
				Err:        err,
			}
		}
		return apierrors.NewNetworkError(http.MethodGet, wsURL, "", err)
	}
	conn.SetReadLimit(c.readLimit)

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.connected.Store(true)
	c.log.Info().Str("namespace", namespace).Msg("realtime connected")
	c.dispatch(ctx, Envelope{Event: EventConnect})

	runCtx, stop := context.WithCancel(ctx)
	defer func() {
		stop()
		c.connected.Store(false)
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
		c.log.Info().Str("namespace", namespace).Msg("realtime disconnected")
		c.dispatch(ctx, Envelope{Event: EventDisconnect})
	}()

	if c.heartbeat > 0 {
		go c.keepAlive(runCtx, conn)
	}
	return c.readLoop(runCtx, conn)
}

func (c *Connector) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		mt, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return apierrors.Wrapf(err, "[Connector.readLoop] read")
		}
		if mt != websocket.MessageText && mt != websocket.MessageBinary {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed realtime frame")
			continue
		}
		c.dispatch(ctx, env)
	}
}

func (c *Connector) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				c.log.Warn().Err(err).Msg("realtime heartbeat failed")
				_ = conn.Close(websocket.StatusGoingAway, "heartbeat failed")
				return
			}
		}
	}
}

func (c *Connector) dispatch(ctx context.Context, env Envelope) {
	c.handlerMu.RLock()
	handlers := append([]Handler(nil), c.handlers[env.Event]...)
	c.handlerMu.RUnlock()
	for _, h := range handlers {
		h(ctx, env.Data)
	}
}

var ErrNotConnected = errors.New("realtime connection is not open")

// Emit sends event with data marshalled as JSON.
func (c *Connector) Emit(ctx context.Context, event string, data any) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return apierrors.Wrapf(err, "[Connector.Emit] marshal %s", event)
	}
	b, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return apierrors.Wrapf(err, "[Connector.Emit] marshal envelope")
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, b)
}
