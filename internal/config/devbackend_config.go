package config

import "time"

// DevBackendConfig configures the loopback backend used when USE_REAL_API is false.
type DevBackendConfig interface {
	GetDevAddr() string
	GetDevSigningSecret() string
	GetRefreshTokenLength() int
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
}

type DevBackend struct {
	Addr               string        `env:"DEV_ADDR"        envDefault:"127.0.0.1:0"`
	SigningSecret      string        `env:"DEV_JWT_SECRET"`
	AccessTokenExpiry  time.Duration `env:"DEV_ACCESS_TTL"  envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"DEV_REFRESH_TTL" envDefault:"168h"`
}

var _ DevBackendConfig = DevBackend{}

func (d DevBackend) GetDevAddr() string {
	return d.Addr
}

// GetDevSigningSecret is empty when a random per-process secret should be used.
func (d DevBackend) GetDevSigningSecret() string {
	return d.SigningSecret
}

func (DevBackend) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (d DevBackend) GetDefaultAccessTokenExpiry() time.Duration {
	if d.AccessTokenExpiry <= 0 {
		return 15 * time.Minute
	}
	return d.AccessTokenExpiry
}

func (d DevBackend) GetDefaultRefreshTokenExpiry() time.Duration {
	if d.RefreshTokenExpiry <= 0 {
		return 7 * 24 * time.Hour
	}
	return d.RefreshTokenExpiry
}
