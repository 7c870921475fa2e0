package tokens

import "strings"

// ParseAuthorization extracts the token from an Authorization header
// value. Only the Bearer scheme is accepted; the scheme name is case
// insensitive.
func ParseAuthorization(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredentials
	}

	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "bearer") {
		return "", ErrInvalidScheme
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredentials
	}
	return token, nil
}
