package config

import "time"

// FeatureConfig exposes feature flags. The first block comes straight from the
// environment; the rest are derived from the deployment environment.
type FeatureConfig interface {
	UseRealAPI() bool
	UsePoolbrainAPI() bool
	RouteIntelligenceEnabled() bool
	AISuggestionsEnabled() bool
	BulkOperationsEnabled() bool
	AnalyticsEnabled() bool
	RealtimeEnabled() bool

	DebugPanelEnabled() bool
	APIMockingEnabled() bool
	Enforce2FA() bool
	AuditLogsEnabled() bool
	CacheDuration() time.Duration
}

type Features struct {
	UseRealAPIFlag   bool `env:"USE_REAL_API"     envDefault:"false"`
	UsePoolbrainFlag bool `env:"USE_POOLBRAIN"    envDefault:"false"`
	EnableRoutes     bool `env:"ENABLE_ROUTES"    envDefault:"false"`
	EnableAI         bool `env:"ENABLE_AI"        envDefault:"false"`
	EnableBulk       bool `env:"ENABLE_BULK"      envDefault:"false"`
	EnableAnalytics  bool `env:"ENABLE_ANALYTICS" envDefault:"true"`
	EnableRealtime   bool `env:"ENABLE_REALTIME"  envDefault:"false"`
}

func (f Features) UseRealAPI() bool               { return f.UseRealAPIFlag }
func (f Features) UsePoolbrainAPI() bool          { return f.UsePoolbrainFlag }
func (f Features) RouteIntelligenceEnabled() bool { return f.EnableRoutes }
func (f Features) AISuggestionsEnabled() bool     { return f.EnableAI }
func (f Features) BulkOperationsEnabled() bool    { return f.EnableBulk }
func (f Features) AnalyticsEnabled() bool         { return f.EnableAnalytics }
func (f Features) RealtimeEnabled() bool          { return f.EnableRealtime }

func (c *mainConfig) DebugPanelEnabled() bool {
	return c.IsDevelopment()
}

func (c *mainConfig) APIMockingEnabled() bool {
	return c.IsDevelopment() || c.GetEnv() == EnvStaging
}

func (c *mainConfig) Enforce2FA() bool {
	return c.GetEnv() == EnvProduction
}

func (c *mainConfig) AuditLogsEnabled() bool {
	return !c.IsDevelopment()
}

// CacheDuration is five minutes in production and disabled elsewhere.
func (c *mainConfig) CacheDuration() time.Duration {
	if c.GetEnv() == EnvProduction {
		return 5 * time.Minute
	}
	return 0
}
