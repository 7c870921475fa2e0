package database_test

import (
	"context"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/itemstore/internal/service"
	"github.com/google/uuid"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newItem(userID, text string) service.Item {
	return service.Item{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		Timestamp: baseTime,
	}
}

// testItemStore runs the item store contract against any backend.
func testItemStore(t *testing.T, newStore func(t *testing.T) service.ItemStore) {
	t.Run("put and list by user", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		first := newItem("u-1", "first")
		second := newItem("u-1", "second")
		second.Timestamp = baseTime.Add(time.Minute)
		other := newItem("u-2", "other")
		for _, item := range []service.Item{second, other, first} {
			if err := store.PutItem(ctx, item); err != nil {
				t.Fatalf("PutItem failed: %v", err)
			}
		}

		// only the user's items come back, oldest first
		items, err := store.ItemsByUser(ctx, "u-1")
		if err != nil {
			t.Fatalf("ItemsByUser failed: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("got %d items, want 2", len(items))
		}
		if items[0] != first || items[1] != second {
			t.Errorf("got %+v, want %+v then %+v", items, first, second)
		}
	})

	t.Run("unknown user has no items", func(t *testing.T) {
		store := newStore(t)

		items, err := store.ItemsByUser(context.Background(), "nobody")
		if err != nil {
			t.Fatalf("ItemsByUser failed: %v", err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("got %v, want empty non-nil slice", items)
		}
	})

	t.Run("same key overwrites", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		original := newItem("u-1", "note")
		replacement := newItem("u-1", "note")
		replacement.Timestamp = baseTime.Add(time.Hour)
		if err := store.PutItem(ctx, original); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}
		if err := store.PutItem(ctx, replacement); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}

		items, err := store.ItemsByUser(ctx, "u-1")
		if err != nil {
			t.Fatalf("ItemsByUser failed: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("got %d items, want 1", len(items))
		}
		if items[0] != replacement {
			t.Errorf("got %+v, want %+v", items[0], replacement)
		}
	})

	t.Run("all items spans users", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for _, item := range []service.Item{
			newItem("u-2", "b"),
			newItem("u-1", "a"),
			newItem("u-3", "c"),
		} {
			if err := store.PutItem(ctx, item); err != nil {
				t.Fatalf("PutItem failed: %v", err)
			}
		}

		items, err := store.AllItems(ctx)
		if err != nil {
			t.Fatalf("AllItems failed: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("got %d items, want 3", len(items))
		}
		for i, want := range []string{"u-1", "u-2", "u-3"} {
			if items[i].UserID != want {
				t.Errorf("items[%d].UserID = %s, want %s", i, items[i].UserID, want)
			}
		}
	})
}

func TestSQLiteStore_Items(t *testing.T) {
	t.Parallel()
	testItemStore(t, func(t *testing.T) service.ItemStore {
		return setupStore(t).ItemStore()
	})
}
