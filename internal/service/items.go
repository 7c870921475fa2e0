package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateItem stores text for the caller, keyed by the caller's subject.
func (s *Service) CreateItem(
	ctx context.Context,
	caller *tokens.Identity,
	text string,
) (
	*Item,
	error,
) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidItem)
	}

	item := Item{
		ID:        uuid.NewString(),
		UserID:    caller.Subject,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	if err := s.items.PutItem(ctx, item); err != nil {
		return nil, fmt.Errorf("%w: failed to store item: %v", ErrInternal, err)
	}

	s.log.Debug("item created",
		zap.String("user_id", item.UserID),
		zap.String("item_id", item.ID),
	)
	return &item, nil
}

// ListItems returns the caller's own items.
func (s *Service) ListItems(
	ctx context.Context,
	caller *tokens.Identity,
) (
	[]Item,
	error,
) {
	items, err := s.items.ItemsByUser(ctx, caller.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query items: %v", ErrInternal, err)
	}
	return items, nil
}

// ListAllItems returns every stored item. Only members of the admin
// group may call it.
func (s *Service) ListAllItems(
	ctx context.Context,
	caller *tokens.Identity,
) (
	[]Item,
	error,
) {
	if !caller.HasGroup(s.adminGroup) {
		return nil, fmt.Errorf("%w: %s is not in group %s", ErrForbidden, caller.Subject, s.adminGroup)
	}

	items, err := s.items.AllItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan items: %v", ErrInternal, err)
	}
	return items, nil
}
