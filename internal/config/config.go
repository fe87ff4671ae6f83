package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	FeatureConfig
	DevBackendConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
	GetMetricsAddr() string
	IsDevelopment() bool
}

type mainConfig struct {
	EnvVars
	API
	Session
	Features
	DevBackend
}

var _ Config = (*mainConfig)(nil)

// New returns a configuration populated only with defaults.
func New() Config {
	c := &mainConfig{}
	_ = env.ParseWithOptions(c, env.Options{Environment: map[string]string{}})
	return c
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}
	return Parse()
}

// Parse builds the configuration from the process environment and validates it.
func Parse() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *mainConfig) validate() error {
	if err := c.EnvVars.validate(); err != nil {
		return err
	}
	if err := c.Session.validate(); err != nil {
		return err
	}
	// Without the real API the dev backend supplies its own URL at start-up.
	if c.UseRealAPI() {
		if err := c.API.validate(); err != nil {
			return err
		}
	}
	return nil
}
