package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Config configures a Verifier.
type Config struct {
	// Issuer keys the issuer's key set in the cache. A token carrying an
	// iss claim must name this issuer.
	Issuer string
	// RequireIssuer rejects tokens without an iss claim.
	RequireIssuer bool
	// RequireExpiration rejects tokens without an exp claim. An exp that
	// is present is always checked.
	RequireExpiration bool
	// ClientID, when set, must match the client the token was issued to.
	ClientID string
	// TokenUse, when set, restricts accepted tokens to "access" or "id".
	TokenUse string
	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration
	Now    func() time.Time
	Logger *zap.Logger
}

// Verifier turns bearer tokens into identities. It is safe for
// concurrent use; the key set cache is its only shared state.
type Verifier struct {
	cache         *Cache
	issuer        string
	requireIssuer bool
	clientID  string
	tokenUse  string
	parser    *jwt.Parser
	validator *jwt.Validator
	log       *zap.Logger
}

func NewVerifier(cache *Cache, cfg Config) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.RequireExpiration {
		opts = append(opts, jwt.WithExpirationRequired())
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Verifier{
		cache:         cache,
		issuer:        cfg.Issuer,
		requireIssuer: cfg.RequireIssuer,
		clientID:  cfg.ClientID,
		tokenUse:  cfg.TokenUse,
		parser:    jwt.NewParser(jwt.WithValidMethods(allowedAlgorithms)),
		validator: jwt.NewValidator(opts...),
		log:       log,
	}
}

// Verify runs a token through the verification state machine:
// received, key set fetched, key resolved, signature checked, claims
// decoded. Any failure returns a *VerifyError and no identity.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (*Identity, error) {
	// received
	token, err := parseToken(tokenStr)
	if err != nil {
		return nil, newVerifyError(StageReceived, ErrMalformedToken, err)
	}
	if err := verifyHeader(&token.header); err != nil {
		return nil, newVerifyError(StageReceived, ErrSignatureInvalid, err)
	}

	// key set fetched
	keySet, err := v.cache.KeySet(ctx, v.issuer)
	if err != nil {
		return nil, newVerifyError(StageKeySetFetched, ErrProviderUnreachable, err)
	}

	// key resolved
	key, err := v.resolveKey(ctx, token, keySet)
	if err != nil {
		return nil, err
	}

	// signature checked: the one place the signature is verified
	if err := verifySignature(token, key); err != nil {
		return nil, newVerifyError(StageSignatureChecked, ErrSignatureInvalid, err)
	}

	// claims decoded
	claims, err := v.decodeClaims(token)
	if err != nil {
		return nil, newVerifyError(StageClaimsInvalid, ErrClaimsInvalid, err)
	}

	return newIdentity(claims), nil
}

// resolveKey selects the key named by the token. An unknown key id
// forces one key set refresh to pick up rotated keys.
func (v *Verifier) resolveKey(
	ctx context.Context,
	token *parsedToken,
	keySet *KeySet,
) (
	*SigningKey,
	error,
) {
	key, err := v.selectKey(token, keySet)
	if err == nil {
		return key, nil
	}

	// a failed refresh leaves the fetched set as the answer
	refreshed, ferr := v.cache.Refresh(ctx, v.issuer)
	if ferr != nil {
		v.log.Warn("key set refresh failed",
			zap.String("issuer", v.issuer),
			zap.String("kid", token.header.KeyID),
			zap.Error(ferr),
		)
		return nil, newVerifyError(StageKeyNotFound, ErrKeyNotFound, fmt.Errorf("%v; refresh failed: %v", err, ferr))
	}
	key, err = v.selectKey(token, refreshed)
	if err != nil {
		return nil, newVerifyError(StageKeyNotFound, ErrKeyNotFound, err)
	}
	return key, nil
}

func (v *Verifier) selectKey(token *parsedToken, keySet *KeySet) (*SigningKey, error) {
	key, count := keySet.Lookup(token.header.KeyID)
	if key == nil {
		return nil, fmt.Errorf("no key with id %q", token.header.KeyID)
	}
	if count > 1 {
		v.log.Warn("key set contains duplicate key id; using first match",
			zap.String("issuer", v.issuer),
			zap.String("kid", token.header.KeyID),
			zap.Int("count", count),
		)
	}
	return key, nil
}

// decodeClaims trusts the signature checked before it and only decodes
// and validates the payload.
func (v *Verifier) decodeClaims(token *parsedToken) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := v.parser.ParseUnverified(token.raw, claims); err != nil {
		return nil, err
	}
	if err := v.validator.Validate(claims); err != nil {
		return nil, err
	}
	if err := v.validateIssuer(claims.Issuer); err != nil {
		return nil, err
	}
	if v.tokenUse != "" && claims.TokenUse != v.tokenUse {
		return nil, fmt.Errorf("token_use %q, want %q", claims.TokenUse, v.tokenUse)
	}
	if err := claims.validateClient(v.clientID); err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *Verifier) validateIssuer(iss string) error {
	switch {
	case iss == "" && v.requireIssuer:
		return fmt.Errorf("%w: iss", jwt.ErrTokenRequiredClaimMissing)
	case iss == "", v.issuer == "":
		return nil
	case iss != v.issuer:
		return fmt.Errorf("%w: iss %q, want %q", jwt.ErrTokenInvalidIssuer, iss, v.issuer)
	}
	return nil
}

// SelectKey returns the key of keySet named by the token's kid header.
// No other header field is consulted.
func SelectKey(tokenStr string, keySet *KeySet) (*SigningKey, error) {
	token, err := parseToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	key, _ := keySet.Lookup(token.header.KeyID)
	if key == nil {
		return nil, fmt.Errorf("%w: no key with id %q", ErrKeyNotFound, token.header.KeyID)
	}
	return key, nil
}

// VerifySignature checks the RS256 signature of a token against key.
func VerifySignature(tokenStr string, key *SigningKey) error {
	if key == nil {
		return ErrKeyNotFound
	}
	token, err := parseToken(tokenStr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if err := verifyHeader(&token.header); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if err := verifySignature(token, key); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return nil
}

func verifySignature(token *parsedToken, key *SigningKey) error {
	if key.Algorithm != "" && key.Algorithm != token.header.Algorithm {
		return fmt.Errorf("token algorithm %q does not match key algorithm %q",
			token.header.Algorithm, key.Algorithm)
	}
	publicKey, err := key.RSAPublicKey()
	if err != nil {
		return err
	}
	err = jwt.SigningMethodRS256.Verify(token.signingInput, token.signature, publicKey)
	if err != nil {
		return errors.Join(jwt.ErrSignatureInvalid, err)
	}
	return nil
}
