package config

import (
	"fmt"
	"net/url"
	"time"
)

type APIConfig interface {
	GetAPIURL() string
	GetAppURL() string
	GetRequestTimeout() time.Duration
	WithAPIURL(apiURL string) Config
}

type API struct {
	URL            string        `env:"API_URL"`
	AppURL         string        `env:"APP_URL"         envDefault:"http://localhost:3000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

func (a API) GetAPIURL() string {
	return a.URL
}

func (a API) GetAppURL() string {
	return a.AppURL
}

// GetRequestTimeout is the overall deadline applied to every backend call.
func (a API) GetRequestTimeout() time.Duration {
	if a.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return a.RequestTimeout
}

// WithAPIURL returns a copy pointing at a different backend, used when the
// development backend is started on a loopback port.
func (c *mainConfig) WithAPIURL(apiURL string) Config {
	cp := *c
	cp.API.URL = apiURL
	return &cp
}

func (a API) validate() error {
	if a.URL == "" {
		return fmt.Errorf("API_URL is required when USE_REAL_API=true")
	}
	u, err := url.Parse(a.URL)
	if err != nil {
		return fmt.Errorf("invalid API_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_URL scheme must be http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("API_URL must include a host")
	}
	return nil
}
