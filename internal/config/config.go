// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
	"github.com/joho/godotenv"
)

const (
	ProviderCognito = "cognito"
	ProviderLocal   = "local"

	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	Port int

	IdentityProvider string
	CognitoRegion    string
	CognitoPoolID    string
	CognitoClientID  string

	LocalIssuer     string
	LocalSigningKey string
	LocalAdmins     []string

	ItemStore string
	DBPath    string
	RedisURL  string

	JWKSFile         string
	JWKSCacheTTL     time.Duration
	JWKSFetchTimeout time.Duration
	TokenLeeway      time.Duration

	AdminGroup string
	LogLevel   string
}

// Load reads an optional .env file into the environment, then builds the
// configuration from it. Variables already set take precedence over the
// file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file '%s': %v", file, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds the configuration from lookup.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	env := envReader{lookup: lookup}

	cfg := &Config{
		Port:             env.readInt("PORT", 8000),
		IdentityProvider: env.readVar("IDENTITY_PROVIDER", ProviderCognito),
		CognitoRegion:    env.readVar("COGNITO_REGION", ""),
		CognitoPoolID:    env.readVar("COGNITO_POOL_ID", ""),
		CognitoClientID:  env.readVar("COGNITO_APP_CLIENT_ID", ""),
		LocalSigningKey:  env.readVar("LOCAL_SIGNING_KEY", ""),
		LocalAdmins:      env.readList("LOCAL_ADMINS"),
		ItemStore:        env.readVar("ITEM_STORE", StoreSQLite),
		DBPath:           env.readVar("DB_PATH", "itemstore.db"),
		RedisURL:         env.readVar("REDIS_URL", "redis://localhost:6379/0"),
		JWKSFile:         env.readVar("JWKS_FILE", ""),
		JWKSCacheTTL:     env.readDuration("JWKS_CACHE_TTL", time.Hour),
		JWKSFetchTimeout: env.readDuration("JWKS_FETCH_TIMEOUT", 5*time.Second),
		TokenLeeway:      env.readDuration("TOKEN_LEEWAY", 0),
		AdminGroup:       env.readVar("ADMIN_GROUP", "admin"),
		LogLevel:         env.readVar("LOG_LEVEL", ""),
	}
	cfg.LocalIssuer = env.readVar("LOCAL_ISSUER", fmt.Sprintf("http://localhost:%d", cfg.Port))

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.IdentityProvider {
	case ProviderCognito:
		for name, value := range map[string]string{
			"COGNITO_REGION":        c.CognitoRegion,
			"COGNITO_POOL_ID":       c.CognitoPoolID,
			"COGNITO_APP_CLIENT_ID": c.CognitoClientID,
		} {
			if value == "" {
				errs = append(errs, fmt.Errorf("missing required env var '%s'", name))
			}
		}
	case ProviderLocal:
	default:
		errs = append(errs, fmt.Errorf("IDENTITY_PROVIDER must be %q or %q, got %q", ProviderCognito, ProviderLocal, c.IdentityProvider))
	}

	switch c.ItemStore {
	case StoreSQLite, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("ITEM_STORE must be %q or %q, got %q", StoreSQLite, StoreRedis, c.ItemStore))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.JWKSCacheTTL <= 0 {
		errs = append(errs, errors.New("JWKS_CACHE_TTL must be positive"))
	}
	if c.JWKSFetchTimeout <= 0 {
		errs = append(errs, errors.New("JWKS_FETCH_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Issuer is the expected iss claim of accepted tokens.
func (c *Config) Issuer() string {
	if c.IdentityProvider == ProviderLocal {
		return c.LocalIssuer
	}
	return tokens.CognitoIssuer(c.CognitoRegion, c.CognitoPoolID)
}

// KeySetURL is where the issuer publishes its key set.
func (c *Config) KeySetURL() string {
	return tokens.JWKSURL(c.Issuer())
}

// envReader collects every parse error instead of stopping at the first.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) readVar(name string, fallback string) string {
	str, present := e.lookup(name)
	if !present || strings.TrimSpace(str) == "" {
		return fallback
	}
	return strings.TrimSpace(str)
}

func (e *envReader) readInt(name string, fallback int) int {
	v := e.readVar(name, "")
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("env var '%s' could not be parsed as integer (%q)", name, v))
		return fallback
	}
	return i
}

func (e *envReader) readDuration(name string, fallback time.Duration) time.Duration {
	v := e.readVar(name, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("env var '%s' could not be parsed as duration (%q)", name, v))
		return fallback
	}
	return d
}

func (e *envReader) readList(name string) []string {
	var list []string
	for _, item := range strings.Split(e.readVar(name, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
