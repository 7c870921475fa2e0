// Package identity talks to the identity provider that owns user accounts:
// an AWS Cognito user pool in production, or a local SQLite-backed
// provider that issues Cognito-shaped tokens for development.
package identity

import (
	"context"
	"errors"
)

var (
	ErrUsernameExists    = errors.New("username already exists")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrNotAuthorized     = errors.New("incorrect username or password")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserNotConfirmed  = errors.New("user not confirmed")
	ErrChallengeRequired = errors.New("authentication challenge required")
	ErrProvider          = errors.New("identity provider error")
)

// Provider registers and authenticates users.
type Provider interface {
	SignUp(ctx context.Context, username string, password string) error
	InitiateAuth(ctx context.Context, username string, password string) (*AuthResult, error)
}

// AuthResult holds the tokens of a successful login.
type AuthResult struct {
	AccessToken  string `json:"AccessToken"`
	IDToken      string `json:"IdToken,omitempty"`
	RefreshToken string `json:"RefreshToken,omitempty"`
	ExpiresIn    int    `json:"ExpiresIn"`
	TokenType    string `json:"TokenType"`
}
