package tokens

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// minRSABits rejects keys too small to trust.
const minRSABits = 2048

// SigningKey is a JSON Web Key as published by the identity provider.
type SigningKey struct {
	KeyID     string `json:"kid"`
	KeyType   string `json:"kty"`
	Algorithm string `json:"alg,omitempty"`
	Use       string `json:"use,omitempty"`
	N         string `json:"n,omitempty"`
	E         string `json:"e,omitempty"`
	Curve     string `json:"crv,omitempty"`
	X         string `json:"x,omitempty"`
	Y         string `json:"y,omitempty"`
}

// KeySet is the provider's published JWKS document.
type KeySet struct {
	Keys []SigningKey `json:"keys"`
}

func ParseKeySet(data []byte) (*KeySet, error) {
	set := &KeySet{}
	if err := json.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("not valid JSON: %v", err)
	}
	if set.Keys == nil {
		return nil, errors.New(`key set has no "keys" member`)
	}
	return set, nil
}

// Lookup returns the first key whose identifier equals kid, and the
// number of keys sharing that identifier. A count above one is a
// provider contract violation.
func (s *KeySet) Lookup(kid string) (*SigningKey, int) {
	if s == nil {
		return nil, 0
	}
	var found *SigningKey
	count := 0
	for i := range s.Keys {
		if s.Keys[i].KeyID != kid {
			continue
		}
		if found == nil {
			found = &s.Keys[i]
		}
		count++
	}
	return found, count
}

// RSAPublicKey rebuilds the public key for the RS256 algorithm. It fails
// for any key that is not an RSA signing key, so a token cannot steer
// verification onto a different key family.
func (k *SigningKey) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.KeyType != "RSA" {
		return nil, fmt.Errorf("key %q: illegal key type %q", k.KeyID, k.KeyType)
	}
	if k.Algorithm != "" && k.Algorithm != AlgorithmRS256 {
		return nil, fmt.Errorf("key %q: illegal key algorithm %q", k.KeyID, k.Algorithm)
	}
	if k.Use != "" && k.Use != "sig" {
		return nil, fmt.Errorf("key %q: illegal key use %q", k.KeyID, k.Use)
	}

	n, err := decodeBigInt(k.N)
	if err != nil {
		return nil, fmt.Errorf("key %q: modulus: %v", k.KeyID, err)
	}
	e, err := decodeBigInt(k.E)
	if err != nil {
		return nil, fmt.Errorf("key %q: exponent: %v", k.KeyID, err)
	}
	if n.BitLen() < minRSABits {
		return nil, fmt.Errorf("key %q: modulus too small (%d bits)", k.KeyID, n.BitLen())
	}
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("key %q: exponent out of range", k.KeyID)
	}

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// NewRSASigningKey encodes pub as a JWK suitable for publishing.
func NewRSASigningKey(kid string, pub *rsa.PublicKey) SigningKey {
	return SigningKey{
		KeyID:     kid,
		KeyType:   "RSA",
		Algorithm: AlgorithmRS256,
		Use:       "sig",
		N:         base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:         base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func decodeBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing")
	}
	// some providers pad their base64url values
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %v", err)
	}
	return new(big.Int).SetBytes(b), nil
}

// CognitoIssuer returns the issuer URL of a Cognito user pool.
func CognitoIssuer(region, poolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, poolID)
}

// JWKSURL returns the well-known key set location for an issuer.
func JWKSURL(issuer string) string {
	return strings.TrimRight(issuer, "/") + "/.well-known/jwks.json"
}

// DiscoveryURL returns the JWKS location of a Cognito user pool.
func DiscoveryURL(region, poolID string) string {
	return JWKSURL(CognitoIssuer(region, poolID))
}
