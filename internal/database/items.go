package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/itemstore/internal/service"
)

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func (s *SQLiteStore) ItemStore() service.ItemStore {
	return s
}

func (s *SQLiteStore) PutItem(
	ctx context.Context,
	item service.Item,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO items (user_id, text, id, timestamp)
		VALUES (?, ?, ?, ?);`,
		item.UserID,
		item.Text,
		item.ID,
		item.Timestamp.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into items: %v", err)
	}
	return nil
}

func (s *SQLiteStore) ItemsByUser(
	ctx context.Context,
	userID string,
) (
	[]service.Item,
	error,
) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, text, id, timestamp
		FROM items
		WHERE user_id=?
		ORDER BY timestamp, text;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query items: %v", err)
	}
	return scanItems(rows)
}

func (s *SQLiteStore) AllItems(
	ctx context.Context,
) (
	[]service.Item,
	error,
) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, text, id, timestamp
		FROM items
		ORDER BY user_id, timestamp, text;`,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't scan items: %v", err)
	}
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]service.Item, error) {
	defer rows.Close()

	items := []service.Item{}
	for rows.Next() {
		var item service.Item
		var timestamp string
		if err := rows.Scan(&item.UserID, &item.Text, &item.ID, &timestamp); err != nil {
			return nil, fmt.Errorf("couldn't scan item row: %v", err)
		}
		ts, err := time.Parse(timestampLayout, timestamp)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp for item %s: %v", item.ID, err)
		}
		item.Timestamp = ts
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read item rows: %v", err)
	}
	return items, nil
}
