package tokenstest

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"time"

	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultKeyID is the kid of the provider's signing key.
	DefaultKeyID = "abc123"
	// DefaultIssuer is a Cognito style issuer that is never contacted.
	DefaultIssuer = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_Test"
	// DefaultClientID is the app client tokens are issued to.
	DefaultClientID = "test-client"
	// DefaultTestSubject is the default user for dev/test flows.
	DefaultTestSubject = "alice"

	defaultTokenLifetime = time.Hour
)

// Provider stands in for an identity provider: it signs RS256 tokens and
// publishes the matching key set, without any network.
type Provider struct {
	Key      *rsa.PrivateKey
	KeyID    string
	Issuer   string
	ClientID string
	Now      func() time.Time
}

// NewProvider creates a provider with the shared key.
// Most tests should use this for performance.
func NewProvider() *Provider {
	return NewProviderWithKey(SharedTestKey(), DefaultKeyID)
}

// NewProviderWithKey creates a provider with a specific key and kid.
// Use when testing key mismatch or rotation scenarios.
func NewProviderWithKey(
	key *rsa.PrivateKey,
	kid string,
) *Provider {
	return &Provider{
		Key:      key,
		KeyID:    kid,
		Issuer:   DefaultIssuer,
		ClientID: DefaultClientID,
		Now:      time.Now,
	}
}

// Subject returns the stable sub claim the provider assigns to username.
func (p *Provider) Subject(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(p.Issuer+"/"+username)).String()
}

// Claims returns valid access token claims for username.
func (p *Provider) Claims(
	username string,
	groups ...string,
) *tokens.Claims {
	now := p.Now()
	return &tokens.Claims{
		Username: username,
		Groups:   groups,
		TokenUse: tokens.TokenUseAccess,
		ClientID: p.ClientID,
		Scope:    "aws.cognito.signin.user.admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject(username),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(defaultTokenLifetime)),
			ID:        uuid.NewString(),
		},
	}
}

// IssueAccessToken signs a valid access token for username.
func (p *Provider) IssueAccessToken(
	username string,
	groups ...string,
) (
	string,
	error,
) {
	return p.Sign(p.Claims(username, groups...))
}

// Sign signs claims with the provider key under its kid.
func (p *Provider) Sign(claims jwt.Claims) (string, error) {
	return p.SignWithKeyID(claims, p.KeyID)
}

// SignWithKeyID signs claims with the provider key but names kid in the
// header.
func (p *Provider) SignWithKeyID(
	claims jwt.Claims,
	kid string,
) (
	string,
	error,
) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	return token.SignedString(p.Key)
}

// KeySet returns the published key set holding the provider's key.
func (p *Provider) KeySet() *tokens.KeySet {
	return &tokens.KeySet{
		Keys: []tokens.SigningKey{tokens.NewRSASigningKey(p.KeyID, &p.Key.PublicKey)},
	}
}

// JWKS returns the key set as served at the well-known location.
func (p *Provider) JWKS() []byte {
	data, err := json.Marshal(p.KeySet())
	if err != nil {
		panic("tokenstest: failed to encode key set: " + err.Error())
	}
	return data
}

// Source returns a key set source that serves the provider's key set.
func (p *Provider) Source() tokens.KeySetSource {
	return tokens.SourceFunc(func(context.Context) (*tokens.KeySet, error) {
		return p.KeySet(), nil
	})
}

// Verifier returns a verifier that trusts this provider.
func (p *Provider) Verifier() *tokens.Verifier {
	cache := tokens.NewCache(time.Hour)
	cache.Add(p.Issuer, p.Source())
	return tokens.NewVerifier(cache, tokens.Config{
		Issuer:   p.Issuer,
		ClientID: p.ClientID,
		Now:      p.Now,
	})
}
