package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/itemstore/internal/identity"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func (s *SQLiteStore) CredentialStore() identity.CredentialStore {
	return s
}

func (s *SQLiteStore) InsertIdentity(
	ctx context.Context,
	creds identity.Credentials,
) error {
	groups := creds.Groups
	if groups == nil {
		groups = []string{}
	}
	encGroups, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("couldn't encode groups: %v", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO identity (handle, secret, subject, groups)
		VALUES (?, ?, ?, ?);`,
		creds.Handle,
		creds.Secret,
		creds.Subject,
		string(encGroups),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", identity.ErrUsernameExists, creds.Handle)
		}
		return fmt.Errorf("couldn't insert into identity: %v", err)
	}
	return nil
}

func (s *SQLiteStore) GetIdentity(
	ctx context.Context,
	handle string,
) (
	*identity.Credentials,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT handle, secret, subject, groups
		FROM identity i
		WHERE i.handle=?;`,
		handle,
	)

	creds := &identity.Credentials{}
	var groups string
	err := row.Scan(&creds.Handle, &creds.Secret, &creds.Subject, &groups)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", identity.ErrUserNotFound, handle)
		}
		return nil, fmt.Errorf("couldn't scan identity: %v", err)
	}
	if err := json.Unmarshal([]byte(groups), &creds.Groups); err != nil {
		return nil, fmt.Errorf("couldn't decode groups of %s: %v", handle, err)
	}
	return creds, nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
