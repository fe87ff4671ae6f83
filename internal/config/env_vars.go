package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

type EnvVars struct {
	AppName     string `env:"APP_NAME"     envDefault:"Clarity Pool Admin"`
	Env         string `env:"ENV"          envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	DataFolder  string `env:"DATA_FOLDER"  envDefault:"./data"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return strings.ToLower(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(e.LogLevel)
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

// GetMetricsAddr is empty when the metrics listener is disabled.
func (e EnvVars) GetMetricsAddr() string {
	return e.MetricsAddr
}

func (e EnvVars) IsDevelopment() bool {
	return e.GetEnv() == EnvDevelopment
}

func (e EnvVars) validate() error {
	switch e.GetEnv() {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("invalid ENV %q (valid options: development, staging, production)", e.Env)
	}
	switch e.GetLogLevel() {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q (valid options: debug, info, warn, error)", e.LogLevel)
	}
	return nil
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
