// Package service implements the business logic layer for the item store.
// It handles item storage scoped to verified identities and delegates user
// registration and login to the identity provider.
package service

import (
	"errors"

	"git.sr.ht/~jakintosh/itemstore/internal/identity"
	"go.uber.org/zap"
)

var (
	ErrInvalidItem        = errors.New("invalid item")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal error")
)

// DefaultAdminGroup is the group allowed to scan every user's items.
const DefaultAdminGroup = "admin"

// Service coordinates item storage and user operations. It depends on an
// ItemStore for persistence and an identity.Provider for accounts.
type Service struct {
	items      ItemStore
	provider   identity.Provider
	adminGroup string
	log        *zap.Logger
}

type Option func(*Service)

func WithAdminGroup(group string) Option {
	return func(s *Service) { s.adminGroup = group }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func New(
	items ItemStore,
	provider identity.Provider,
	opts ...Option,
) *Service {
	s := &Service{
		items:      items,
		provider:   provider,
		adminGroup: DefaultAdminGroup,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) AdminGroup() string {
	return s.adminGroup
}
