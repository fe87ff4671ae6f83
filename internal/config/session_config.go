package config

import "fmt"

const (
	CredentialStoreCookie = "cookie"
	CredentialStoreFile   = "file"
	CredentialStoreRedis  = "redis"
)

type SessionConfig interface {
	GetCredentialStore() string
	GetCookieName() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Session struct {
	CredentialStore string `env:"CREDENTIAL_STORE" envDefault:"file"`
	CookieName      string `env:"COOKIE_NAME"      envDefault:"auth-token"`
	RedisAddr       string `env:"REDIS_ADDR"       envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB"         envDefault:"0"`
	RedisKeyPrefix  string `env:"REDIS_KEY_PREFIX" envDefault:"pooladmin:session:"`
}

var _ SessionConfig = Session{}

func (s Session) GetCredentialStore() string {
	return s.CredentialStore
}

func (s Session) GetCookieName() string {
	return s.CookieName
}

func (s Session) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Session) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Session) GetRedisDB() int {
	return s.RedisDB
}

func (s Session) GetRedisKeyPrefix() string {
	return s.RedisKeyPrefix
}

func (s Session) validate() error {
	switch s.CredentialStore {
	case CredentialStoreCookie, CredentialStoreFile, CredentialStoreRedis:
		return nil
	}
	return fmt.Errorf("invalid CREDENTIAL_STORE %q (valid options: cookie, file, redis)", s.CredentialStore)
}
