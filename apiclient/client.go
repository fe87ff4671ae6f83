package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/pool-admin/internal/config"
	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/internal/metrics"
	"github.com/jrsteele09/pool-admin/internal/utils"
	"github.com/jrsteele09/pool-admin/session"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const maxBodyBytes = 10 << 20

// Refresher replaces a rejected access token and returns the session holding
// its replacement.
type Refresher interface {
	Refresh(ctx context.Context, staleAccessToken string) (session.Session, error)
}

// AuthFailureFunc is called when an authentication failure survives the
// refresh-and-retry path. It is where the session is torn down.
type AuthFailureFunc func(ctx context.Context, err error)

// Client sends every backend call through the same pipeline: credential and
// tracing headers on the way out, refresh-and-retry on 401 and
// wait-and-retry on 429 on the way back.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	store         *session.Store
	refresher     Refresher
	onAuthFailure AuthFailureFunc
	sleep         Sleeper
	now           func() time.Time
	metrics       metrics.Recorder
	log           zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Apply it before WithCookieJar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCookieJar attaches jar so cookies set by the backend are sent back.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.httpClient.Jar = jar
	}
}

// WithAuthFailureHandler sets the hook called when a 401 cannot be recovered.
func WithAuthFailureHandler(fn AuthFailureFunc) Option {
	return func(c *Client) {
		c.onAuthFailure = fn
	}
}

// WithSleeper overrides how the client waits out a Retry-After.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

// WithNowTime overrides the client's clock.
func WithNowTime(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithMetrics records request outcomes and retries.
func WithMetrics(m metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the client's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a client for the API at cfg's base URL. Credentials come from
// store and rejected ones are replaced through refresher.
func New(cfg config.APIConfig, store *session.Store, refresher Refresher, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(cfg.GetAPIURL(), "/"),
		httpClient:    &http.Client{Timeout: cfg.GetRequestTimeout()},
		store:         store,
		refresher:     refresher,
		onAuthFailure: func(context.Context, error) {},
		sleep:         sleepContext,
		now:           time.Now,
		metrics:       metrics.Nop{},
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAuthFailureHandler replaces the hook after construction, for when the
// session owner is built from this client.
func (c *Client) SetAuthFailureHandler(fn AuthFailureFunc) {
	c.onAuthFailure = fn
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and decodes a successful response into out, which may be nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var body []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return apierrors.Wrapf(err, "[Client.Do] marshal %s %s body", req.Method, req.Path)
		}
		body = data
	}
	return c.send(ctx, req, body, attempt{}, out)
}

func (c *Client) send(ctx context.Context, req Request, body []byte, att attempt, out any) error {
	accessToken := att.accessToken
	if accessToken == "" {
		accessToken = c.credential(ctx)
	}
	requestID := ulid.Make().String()

	httpReq, err := c.build(ctx, req, body, accessToken, requestID)
	if err != nil {
		return err
	}

	start := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(req, requestID, 0, start)
		return apierrors.NewNetworkError(req.Method, req.Path, requestID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observe(req, requestID, resp.StatusCode, start)
		return apierrors.NewNetworkError(req.Method, req.Path, requestID, err)
	}
	c.observe(req, requestID, resp.StatusCode, start)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return c.decode(req, requestID, resp.StatusCode, data, out)

	case resp.StatusCode == http.StatusUnauthorized:
		apiErr := apierrors.FromResponse(req.Method, req.Path, resp.StatusCode, data, requestID)
		if att.authRetried {
			c.log.Warn().Str("request_id", requestID).Str("path", req.Path).Msg("authentication failed after refresh")
			c.onAuthFailure(ctx, apiErr)
			return apiErr
		}
		refreshed, err := c.refresher.Refresh(ctx, accessToken)
		if err != nil {
			apiErr.Err = err
			c.log.Warn().Err(err).Str("request_id", requestID).Msg("token refresh failed")
			c.onAuthFailure(ctx, apiErr)
			return apiErr
		}
		c.metrics.IncRetry("auth")
		// The retry presents the refreshed token even if its local expiry
		// margin has already passed.
		return c.send(ctx, req, body, att.afterAuthRetry(refreshed.AccessToken), out)

	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr := apierrors.FromResponse(req.Method, req.Path, resp.StatusCode, data, requestID)
		delay, ok := retryAfter(resp.Header.Get("Retry-After"), c.now())
		if !ok || att.rateRetried {
			return apiErr
		}
		c.log.Info().Str("request_id", requestID).Dur("retry_after", delay).Msg("rate limited, waiting before retry")
		if err := c.sleep(ctx, delay); err != nil {
			apiErr.Err = err
			return apiErr
		}
		c.metrics.IncRetry("rate_limit")
		return c.send(ctx, req, body, att.afterRateRetry(), out)
	}

	return apierrors.FromResponse(req.Method, req.Path, resp.StatusCode, data, requestID)
}

func (c *Client) build(ctx context.Context, req Request, body []byte, accessToken, requestID string) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, reader)
	if err != nil {
		return nil, apierrors.Wrapf(err, "[Client.build] %s %s", req.Method, req.Path)
	}

	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(HeaderRequestID, requestID)
	httpReq.Header.Set(HeaderRequestTimestamp, strconv.FormatInt(c.now().UnixMilli(), 10))
	if accessToken != "" {
		(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}
	return httpReq, nil
}

// credential returns the access token to present. An expired token is
// refreshed first and the token that refresh produced is used as is; when the
// refresh fails the request goes out without one.
func (c *Client) credential(ctx context.Context) string {
	sess := c.store.Get()
	if sess.Valid(c.store.Now()) {
		return sess.AccessToken
	}
	if !sess.CanRefresh() {
		return ""
	}
	refreshed, err := c.refresher.Refresh(ctx, sess.AccessToken)
	if err != nil {
		c.log.Warn().Err(err).Msg("could not refresh expired token, sending request without credential")
		return ""
	}
	return refreshed.AccessToken
}

func (c *Client) decode(req Request, requestID string, status int, data []byte, out any) error {
	if out == nil {
		return nil
	}
	if status == http.StatusNoContent && len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := utils.DecodeJSON(data, out); err != nil {
		c.log.Error().Err(err).Str("request_id", requestID).Str("path", req.Path).Msg("response failed validation")
		return apierrors.NewValidationError(req.Method, req.Path, requestID, status, err)
	}
	return nil
}

func (c *Client) observe(req Request, requestID string, status int, start time.Time) {
	latency := c.now().Sub(start)
	c.metrics.ObserveRequest(req.Method, status, latency)
	c.log.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", status).
		Dur("latency", latency).
		Msg("api request")
}
