package service

import (
	"context"
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/itemstore/internal/identity"
)

func (s *Service) Register(
	ctx context.Context,
	email string,
	password string,
) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}

	if err := s.provider.SignUp(ctx, email, password); err != nil {
		return wrapProviderErr(err)
	}
	return nil
}

func (s *Service) Login(
	ctx context.Context,
	email string,
	password string,
) (
	*identity.AuthResult,
	error,
) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}

	result, err := s.provider.InitiateAuth(ctx, email, password)
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	return result, nil
}

// wrapProviderErr passes known provider outcomes through and files
// everything else under ErrInternal.
func wrapProviderErr(err error) error {
	switch {
	case errors.Is(err, identity.ErrUsernameExists),
		errors.Is(err, identity.ErrInvalidPassword),
		errors.Is(err, identity.ErrNotAuthorized),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrUserNotConfirmed),
		errors.Is(err, identity.ErrChallengeRequired):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}
