// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/itemstore/internal/api"
	"git.sr.ht/~jakintosh/itemstore/internal/database"
	"git.sr.ht/~jakintosh/itemstore/internal/identity"
	"git.sr.ht/~jakintosh/itemstore/internal/metrics"
	"git.sr.ht/~jakintosh/itemstore/internal/service"
	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
	"git.sr.ht/~jakintosh/itemstore/pkg/tokenstest"
)

const (
	TestIssuer = "http://itemstore.test"
	AdminGroup = service.DefaultAdminGroup
)

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	DB       *database.SQLiteStore
	Provider *identity.LocalProvider
	Tokens   *tokenstest.Provider
	Verifier *tokens.Verifier
	Service  *service.Service
	Metrics  *metrics.Metrics
	Router   http.Handler
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite
// and a local identity provider. Tokens minted by env.Tokens are signed
// with the same key and pass verification.
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()

	// create in-memory SQLite database
	db, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	// local provider signs with the shared key (generated once across all tests)
	provider, err := identity.NewLocalProvider(
		db.CredentialStore(),
		TestIssuer,
		identity.WithSigningKey(tokenstest.SharedTestKey(), tokenstest.DefaultKeyID),
		identity.WithPasswordMode(identity.PasswordModeTesting),
	)
	if err != nil {
		t.Fatalf("failed to create local provider: %v", err)
	}

	// token minting for callers that skip login
	minter := tokenstest.NewProvider()
	minter.Issuer = provider.Issuer()
	minter.ClientID = provider.ClientID()

	// key set fetches are observable through the metrics
	m := metrics.New()
	cache := tokens.NewCache(time.Hour)
	cache.Add(provider.Issuer(), m.InstrumentSource(provider))
	verifier := tokens.NewVerifier(cache, tokens.Config{
		Issuer:   provider.Issuer(),
		ClientID: provider.ClientID(),
	})

	svc := service.New(db.ItemStore(), provider)

	return &TestEnv{
		DB:       db,
		Provider: provider,
		Tokens:   minter,
		Verifier: verifier,
		Service:  svc,
		Metrics:  m,
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the API router
func SetupTestEnvWithRouter(
	t *testing.T,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t)
	a := api.New(
		env.Service,
		env.Verifier,
		api.WithMetrics(env.Metrics),
		api.WithJWKS(env.Provider.JWKSHandler()),
	)
	env.Router = a.Router()
	return env
}

// RegisterTestUser creates a test user through the identity provider
func (env *TestEnv) RegisterTestUser(
	t *testing.T,
	email string,
	password string,
) {
	t.Helper()
	if err := env.Service.Register(context.Background(), email, password); err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}
}

// LoginTestUser logs a registered user in and returns the access token
func (env *TestEnv) LoginTestUser(
	t *testing.T,
	email string,
	password string,
) string {
	t.Helper()
	result, err := env.Service.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("failed to log in test user: %v", err)
	}
	return result.AccessToken
}

// IssueToken mints an access token for username in groups
func (env *TestEnv) IssueToken(
	t *testing.T,
	username string,
	groups ...string,
) string {
	t.Helper()
	token, err := env.Tokens.IssueAccessToken(username, groups...)
	if err != nil {
		t.Fatalf("failed to issue test access token: %v", err)
	}
	return token
}

// Identity verifies token and returns the caller it names
func (env *TestEnv) Identity(
	t *testing.T,
	token string,
) *tokens.Identity {
	t.Helper()
	caller, err := env.Verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("failed to verify test token: %v", err)
	}
	return caller
}
