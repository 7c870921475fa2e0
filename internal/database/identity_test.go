package database_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"git.sr.ht/~jakintosh/itemstore/internal/identity"
)

func TestInsertIdentity_Success(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// inserting a new identity succeeds
	err := store.InsertIdentity(context.Background(), identity.Credentials{
		Handle:  "alice@example.com",
		Secret:  []byte("hashed-password"),
		Subject: "sub-alice",
	})
	if err != nil {
		t.Fatalf("InsertIdentity failed: %v", err)
	}
}

func TestInsertIdentity_DuplicateHandle(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	ctx := context.Background()

	// first insert succeeds
	err := store.InsertIdentity(ctx, identity.Credentials{
		Handle:  "alice@example.com",
		Secret:  []byte("password1"),
		Subject: "sub-1",
	})
	if err != nil {
		t.Fatalf("InsertIdentity failed: %v", err)
	}

	// second insert with same handle reports the taken username
	err = store.InsertIdentity(ctx, identity.Credentials{
		Handle:  "alice@example.com",
		Secret:  []byte("password2"),
		Subject: "sub-2",
	})
	if !errors.Is(err, identity.ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
}

func TestGetIdentity_ExistingUser(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	ctx := context.Background()

	// setup
	expected := identity.Credentials{
		Handle:  "bob@example.com",
		Secret:  []byte("my-secret-hash"),
		Subject: "sub-bob",
		Groups:  []string{"admin", "editors"},
	}
	if err := store.InsertIdentity(ctx, expected); err != nil {
		t.Fatalf("InsertIdentity failed: %v", err)
	}

	// retrieving identity for existing user returns stored values
	creds, err := store.GetIdentity(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if string(creds.Secret) != string(expected.Secret) {
		t.Errorf("Secret = %s, want %s", string(creds.Secret), string(expected.Secret))
	}
	if creds.Subject != expected.Subject {
		t.Errorf("Subject = %s, want %s", creds.Subject, expected.Subject)
	}
	if !slices.Equal(creds.Groups, expected.Groups) {
		t.Errorf("Groups = %v, want %v", creds.Groups, expected.Groups)
	}
}

func TestGetIdentity_NoGroups(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	ctx := context.Background()

	err := store.InsertIdentity(ctx, identity.Credentials{
		Handle:  "carol@example.com",
		Secret:  []byte("hash"),
		Subject: "sub-carol",
	})
	if err != nil {
		t.Fatalf("InsertIdentity failed: %v", err)
	}

	// nil groups are stored as an empty list
	creds, err := store.GetIdentity(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if len(creds.Groups) != 0 {
		t.Errorf("Groups = %v, want empty", creds.Groups)
	}
}

func TestGetIdentity_NonExistentUser(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	// retrieving identity for unknown user fails
	_, err := store.GetIdentity(context.Background(), "nobody")
	if !errors.Is(err, identity.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
