package tokens

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// AlgorithmRS256 is the only signature algorithm accepted.
const AlgorithmRS256 = "RS256"

var allowedAlgorithms = []string{AlgorithmRS256}

type JWTHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ,omitempty"`
	KeyID     string `json:"kid"`
}

// parsedToken holds the pieces of a compact token after structural
// parsing. Nothing in it has been verified.
type parsedToken struct {
	raw          string
	header       JWTHeader
	encClaims    string
	signingInput string
	signature    []byte
}

func parseToken(tokenStr string) (*parsedToken, error) {
	encHeader, encClaims, encSignature, err := validateStructure(tokenStr)
	if err != nil {
		return nil, err
	}

	header := JWTHeader{}
	if err := decodeJWTSection(encHeader, &header); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	signature, err := base64.RawURLEncoding.DecodeString(encSignature)
	if err != nil {
		return nil, fmt.Errorf("signature: invalid base64 encoding: %v", err)
	}

	// the signature covers everything before the final separator
	signingInput := tokenStr[:strings.LastIndex(tokenStr, ".")]

	return &parsedToken{
		raw:          tokenStr,
		header:       header,
		encClaims:    encClaims,
		signingInput: signingInput,
		signature:    signature,
	}, nil
}

func validateStructure(tokenStr string) (
	header string,
	claims string,
	signature string,
	err error,
) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		err = fmt.Errorf("JWT expected three parts, found %d", len(parts))
		return
	}
	for i, part := range parts {
		if part == "" {
			err = fmt.Errorf("JWT part %d is empty", i)
			return
		}
	}
	header = parts[0]
	claims = parts[1]
	signature = parts[2]
	return
}

func decodeJWTSection[T any](str string, value *T) error {
	bytes, err := base64.RawURLEncoding.DecodeString(str)
	if err != nil {
		return fmt.Errorf("invalid base64 encoding: %v", err)
	}
	if err := json.Unmarshal(bytes, value); err != nil {
		return fmt.Errorf("not valid JSON: %v", err)
	}
	return nil
}

// verifyHeader enforces the expected-algorithm allowlist. It runs before
// any key is looked up or reconstructed.
func verifyHeader(header *JWTHeader) error {
	if !slices.Contains(allowedAlgorithms, header.Algorithm) {
		return fmt.Errorf("illegal algorithm: %q", header.Algorithm)
	}

	switch header.Type {
	case "", "JWT":
	default:
		return fmt.Errorf("illegal type: %s", header.Type)
	}

	return nil
}
