package service

import (
	"context"
	"time"
)

// Item is a piece of text stored for one user. UserID and Text together
// form its key; storing the same pair again overwrites it.
type Item struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ItemStore handles persistence of items
type ItemStore interface {
	PutItem(ctx context.Context, item Item) error
	ItemsByUser(ctx context.Context, userID string) ([]Item, error)
	AllItems(ctx context.Context) ([]Item, error)
}
