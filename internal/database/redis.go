package database

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"git.sr.ht/~jakintosh/itemstore/internal/service"
	"github.com/redis/go-redis/v9"
)

const defaultItemKeyPrefix = "items"

// RedisStore keeps each user's items in one hash, keyed by item text.
type RedisStore struct {
	client    redis.Cmdable
	keyPrefix string
	closer    func() error
}

type RedisOption func(*RedisStore)

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.keyPrefix = prefix }
}

func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: defaultItemKeyPrefix,
		closer:    func() error { return nil },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisStoreFromURL connects to the server named by a redis:// URL and
// checks it answers.
func NewRedisStoreFromURL(
	ctx context.Context,
	url string,
	opts ...RedisOption,
) (
	*RedisStore,
	error,
) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %v", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	s := NewRedisStore(client, opts...)
	s.closer = client.Close
	return s, nil
}

func (s *RedisStore) Close() error {
	return s.closer()
}

func (s *RedisStore) ItemStore() service.ItemStore {
	return s
}

func (s *RedisStore) userKey(userID string) string {
	return s.keyPrefix + ":" + userID
}

func (s *RedisStore) PutItem(
	ctx context.Context,
	item service.Item,
) error {
	value, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("couldn't encode item: %v", err)
	}
	if err := s.client.HSet(ctx, s.userKey(item.UserID), item.Text, value).Err(); err != nil {
		return fmt.Errorf("couldn't store item: %v", err)
	}
	return nil
}

func (s *RedisStore) ItemsByUser(
	ctx context.Context,
	userID string,
) (
	[]service.Item,
	error,
) {
	items, err := s.hashItems(ctx, s.userKey(userID))
	if err != nil {
		return nil, err
	}
	sortItems(items)
	return items, nil
}

func (s *RedisStore) AllItems(
	ctx context.Context,
) (
	[]service.Item,
	error,
) {
	items := []service.Item{}
	iter := s.client.Scan(ctx, 0, s.keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		found, err := s.hashItems(ctx, iter.Val())
		if err != nil {
			return nil, err
		}
		items = append(items, found...)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("couldn't scan item keys: %v", err)
	}
	sortItems(items)
	return items, nil
}

func (s *RedisStore) hashItems(
	ctx context.Context,
	key string,
) (
	[]service.Item,
	error,
) {
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("couldn't read items of %s: %v", key, err)
	}

	items := make([]service.Item, 0, len(values))
	for field, value := range values {
		var item service.Item
		if err := json.Unmarshal([]byte(value), &item); err != nil {
			return nil, fmt.Errorf("couldn't decode item %s/%s: %v", key, field, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// sortItems orders items the way the SQLite store returns them.
func sortItems(items []service.Item) {
	slices.SortFunc(items, func(a, b service.Item) int {
		return cmp.Or(
			strings.Compare(a.UserID, b.UserID),
			a.Timestamp.Compare(b.Timestamp),
			strings.Compare(a.Text, b.Text),
		)
	})
}
