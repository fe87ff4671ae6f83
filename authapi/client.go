package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/internal/utils"
	"github.com/jrsteele09/pool-admin/token"
	"github.com/jrsteele09/pool-admin/users"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
	LogoutPath  = "/auth/logout"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// LoginResponse is returned by a successful POST /auth/login.
type LoginResponse struct {
	token.TokenResponse
	User *users.User `json:"user"`
}

func (r *LoginResponse) Validate() error {
	if err := r.TokenResponse.Validate(); err != nil {
		return err
	}
	return r.User.Validate()
}

// Client talks to the backend's credential endpoints. It deliberately bypasses
// the request pipeline: a refresh call must never itself trigger a refresh.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp LoginResponse
	if err := c.post(ctx, LoginPath, "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*token.TokenResponse, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var resp token.TokenResponse
	if err := c.post(ctx, RefreshPath, "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout notifies the backend. Callers treat failure as informational.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.post(ctx, LogoutPath, accessToken, nil, nil)
}

func (c *Client) post(ctx context.Context, path, accessToken string, in, out any) error {
	url := c.baseURL + path

	var reader io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return apierrors.Wrapf(err, "[authapi.post] marshal %s body", path)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return apierrors.Wrapf(err, "[authapi.post] build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierrors.NewNetworkError(http.MethodPost, path, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apierrors.NewNetworkError(http.MethodPost, path, "", err)
	}
	c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("auth request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierrors.FromResponse(http.MethodPost, path, resp.StatusCode, data, "")
	}
	if out == nil {
		return nil
	}
	if err := utils.DecodeJSON(data, out); err != nil {
		return apierrors.NewValidationError(http.MethodPost, path, "", resp.StatusCode, err)
	}
	return nil
}
