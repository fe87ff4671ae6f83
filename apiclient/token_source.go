package apiclient

import (
	"context"

	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx    context.Context
	client *Client
}

// TokenSource exposes the pipeline's credential resolution to other
// transports. Expired tokens are refreshed through the shared refresher.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, client: c}
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	accessToken := ts.client.credential(ts.ctx)
	if accessToken == "" {
		return nil, &apierrors.APIError{
			Kind:    apierrors.KindAuthentication,
			Message: "no valid session",
			Err:     apierrors.ErrSessionExpired,
		}
	}
	sess := ts.client.store.Get()
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      sess.ExpiresAt,
	}, nil
}
