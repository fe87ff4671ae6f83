package auth

import (
	"context"

	"github.com/jrsteele09/pool-admin/authapi"
	"github.com/jrsteele09/pool-admin/users"
)

// Backend is the slice of the remote API the controller depends on.
type Backend interface {
	Session(ctx context.Context) (*users.User, error)
	Login(ctx context.Context, email, password string) (*authapi.LoginResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

// SessionResolver answers "who am I" for the current credential.
type SessionResolver interface {
	Session(ctx context.Context) (*users.User, error)
}

// RemoteBackend resolves the session through the request pipeline and sends
// credential calls directly, so a login or logout never triggers a refresh.
type RemoteBackend struct {
	*authapi.Client
	resolver SessionResolver
}

var _ Backend = (*RemoteBackend)(nil)

func NewRemoteBackend(resolver SessionResolver, authClient *authapi.Client) *RemoteBackend {
	return &RemoteBackend{Client: authClient, resolver: resolver}
}

func (b *RemoteBackend) Session(ctx context.Context) (*users.User, error) {
	return b.resolver.Session(ctx)
}
