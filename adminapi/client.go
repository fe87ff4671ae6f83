// Package adminapi holds typed wrappers for the admin endpoints. Every call
// goes through the request pipeline, so credentials, refresh and rate limit
// retries are handled there.
package adminapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jrsteele09/pool-admin/apiclient"
	"github.com/jrsteele09/pool-admin/users"
	"github.com/rs/zerolog"
)

type Client struct {
	api *apiclient.Client
	log zerolog.Logger
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func New(api *apiclient.Client, opts ...Option) *Client {
	c := &Client{
		api: api,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the operator the current credential belongs to.
func (c *Client) Session(ctx context.Context) (*users.User, error) {
	u, err := apiclient.Get[users.User](ctx, c.api, SessionPath, nil)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Page is the pagination envelope shared by list endpoints.
type Page struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

func (p Page) validate() error {
	if p.Total < 0 || p.TotalPages < 0 {
		return fmt.Errorf("page counts must not be negative")
	}
	return nil
}

func pathID[T int | string](base string, id T) string {
	switch v := any(id).(type) {
	case int:
		return base + "/" + strconv.Itoa(v)
	default:
		return base + "/" + url.PathEscape(fmt.Sprint(v))
	}
}

func setInt(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}
