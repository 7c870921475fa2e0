package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"time"

	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultLocalKeyID    = "local-1"
	defaultLocalClientID = "local-client"
	defaultTokenLifetime = time.Hour
	minPasswordLength    = 8
)

// Credentials is a stored local account.
type Credentials struct {
	Handle  string
	Secret  []byte
	Subject string
	Groups  []string
}

// CredentialStore persists local accounts. InsertIdentity fails with
// ErrUsernameExists for a taken handle and GetIdentity with
// ErrUserNotFound for an unknown one.
type CredentialStore interface {
	InsertIdentity(ctx context.Context, creds Credentials) error
	GetIdentity(ctx context.Context, handle string) (*Credentials, error)
}

// LocalProvider is a development stand-in for a Cognito user pool. It
// keeps bcrypt hashed accounts in a CredentialStore and signs RS256 tokens
// with Cognito-shaped claims, publishing its key set so tokens go through
// the same verification path as real ones.
type LocalProvider struct {
	store        CredentialStore
	key          *rsa.PrivateKey
	keyID        string
	issuer       string
	clientID     string
	lifetime     time.Duration
	admins       []string
	adminGroup   string
	passwordMode PasswordMode
	now          func() time.Time
	log          *zap.Logger
}

type LocalOption func(*LocalProvider)

func WithSigningKey(key *rsa.PrivateKey, kid string) LocalOption {
	return func(p *LocalProvider) {
		p.key = key
		p.keyID = kid
	}
}

func WithClientID(clientID string) LocalOption {
	return func(p *LocalProvider) { p.clientID = clientID }
}

func WithTokenLifetime(lifetime time.Duration) LocalOption {
	return func(p *LocalProvider) { p.lifetime = lifetime }
}

// WithAdmins puts the named users into group when they sign up.
func WithAdmins(group string, usernames ...string) LocalOption {
	return func(p *LocalProvider) {
		p.adminGroup = group
		p.admins = usernames
	}
}

func WithPasswordMode(mode PasswordMode) LocalOption {
	return func(p *LocalProvider) { p.passwordMode = mode }
}

func WithClock(now func() time.Time) LocalOption {
	return func(p *LocalProvider) { p.now = now }
}

func WithLocalLogger(log *zap.Logger) LocalOption {
	return func(p *LocalProvider) { p.log = log }
}

func NewLocalProvider(
	store CredentialStore,
	issuer string,
	opts ...LocalOption,
) (
	*LocalProvider,
	error,
) {
	p := &LocalProvider{
		store:    store,
		keyID:    defaultLocalKeyID,
		issuer:   issuer,
		clientID: defaultLocalClientID,
		lifetime: defaultTokenLifetime,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.key == nil {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %v", err)
		}
		p.key = key
		p.log.Info("generated ephemeral signing key", zap.String("kid", p.keyID))
	}
	return p, nil
}

// LoadSigningKey reads a PEM encoded RSA private key.
func LoadSigningKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key '%s': %v", path, err)
	}
	return key, nil
}

func (p *LocalProvider) Issuer() string {
	return p.issuer
}

func (p *LocalProvider) ClientID() string {
	return p.clientID
}

func (p *LocalProvider) SignUp(
	ctx context.Context,
	username string,
	password string,
) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must have length greater than or equal to %d", ErrInvalidPassword, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.passwordMode.Cost())
	if err != nil {
		return fmt.Errorf("%w: failed to hash password: %v", ErrProvider, err)
	}

	var groups []string
	if p.adminGroup != "" && slices.Contains(p.admins, username) {
		groups = []string{p.adminGroup}
	}

	creds := Credentials{
		Handle:  username,
		Secret:  hash,
		Subject: uuid.NewString(),
		Groups:  groups,
	}
	if err := p.store.InsertIdentity(ctx, creds); err != nil {
		return err
	}

	p.log.Info("registered local user",
		zap.String("username", username),
		zap.String("sub", creds.Subject),
		zap.Strings("groups", groups),
	)
	return nil
}

func (p *LocalProvider) InitiateAuth(
	ctx context.Context,
	username string,
	password string,
) (
	*AuthResult,
	error,
) {
	creds, err := p.store.GetIdentity(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to retrieve secret: %v", ErrProvider, err)
	}

	if err := bcrypt.CompareHashAndPassword(creds.Secret, []byte(password)); err != nil {
		return nil, ErrNotAuthorized
	}

	now := p.now()
	access, err := p.sign(p.claims(creds, tokens.TokenUseAccess, now))
	if err != nil {
		return nil, err
	}
	id, err := p.sign(p.claims(creds, tokens.TokenUseID, now))
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken: access,
		IDToken:     id,
		ExpiresIn:   int(p.lifetime.Seconds()),
		TokenType:   "Bearer",
	}, nil
}

func (p *LocalProvider) claims(
	creds *Credentials,
	tokenUse string,
	now time.Time,
) *tokens.Claims {
	claims := &tokens.Claims{
		Groups:   creds.Groups,
		TokenUse: tokenUse,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   creds.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.lifetime)),
			ID:        uuid.NewString(),
		},
	}
	switch tokenUse {
	case tokens.TokenUseAccess:
		claims.Username = creds.Handle
		claims.ClientID = p.clientID
		claims.Scope = "aws.cognito.signin.user.admin"
	case tokens.TokenUseID:
		claims.CognitoUsername = creds.Handle
		claims.Email = creds.Handle
		claims.Audience = jwt.ClaimStrings{p.clientID}
	}
	return claims
}

func (p *LocalProvider) sign(claims *tokens.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = p.keyID
	signed, err := token.SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign token: %v", ErrProvider, err)
	}
	return signed, nil
}

// KeySet returns the public half of the signing key as a JWKS.
func (p *LocalProvider) KeySet() *tokens.KeySet {
	return &tokens.KeySet{
		Keys: []tokens.SigningKey{tokens.NewRSASigningKey(p.keyID, &p.key.PublicKey)},
	}
}

// Fetch makes the provider its own key set source.
func (p *LocalProvider) Fetch(ctx context.Context) (*tokens.KeySet, error) {
	return p.KeySet(), nil
}

// JWKSHandler serves the key set at the well-known location.
func (p *LocalProvider) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		if err := json.NewEncoder(w).Encode(p.KeySet()); err != nil {
			p.log.Error("failed to encode key set", zap.Error(err))
		}
	}
}
