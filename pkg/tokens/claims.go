package tokens

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenUseAccess = "access"
	TokenUseID     = "id"
)

// Claims is the payload of a provider-issued access or id token.
type Claims struct {
	Username        string   `json:"username,omitempty"`
	CognitoUsername string   `json:"cognito:username,omitempty"`
	Groups          []string `json:"cognito:groups,omitempty"`
	TokenUse        string   `json:"token_use,omitempty"`
	ClientID        string   `json:"client_id,omitempty"`
	Scope           string   `json:"scope,omitempty"`
	Email           string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Validate is called by jwt.Validator after the registered claims passed.
func (c *Claims) Validate() error {
	if c.Subject == "" {
		return errors.New("missing subject")
	}
	switch c.TokenUse {
	case "", TokenUseAccess, TokenUseID:
	default:
		return fmt.Errorf("illegal token_use %q", c.TokenUse)
	}
	return nil
}

// validateClient checks the token was issued to clientID. Access tokens
// carry it in client_id, id tokens in aud.
func (c *Claims) validateClient(clientID string) error {
	if clientID == "" {
		return nil
	}
	switch c.TokenUse {
	case TokenUseAccess:
		if c.ClientID == clientID {
			return nil
		}
	case TokenUseID:
		if slices.Contains(c.Audience, clientID) {
			return nil
		}
	default:
		if c.ClientID == clientID || slices.Contains(c.Audience, clientID) {
			return nil
		}
	}
	return fmt.Errorf("token not issued to client %q", clientID)
}

func (c *Claims) username() string {
	if c.Username != "" {
		return c.Username
	}
	return c.CognitoUsername
}
