package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"git.sr.ht/~jakintosh/itemstore/internal/testutil"
	"git.sr.ht/~jakintosh/itemstore/pkg/client"
)

func setupServer(t *testing.T) (*testutil.TestEnv, *httptest.Server) {
	t.Helper()
	env := testutil.SetupTestEnvWithRouter(t)
	server := httptest.NewServer(env.Router)
	t.Cleanup(server.Close)
	return env, server
}

func TestClient_RegisterLoginItems(t *testing.T) {
	t.Parallel()
	_, server := setupServer(t)
	c := client.New(server.URL + "/")
	ctx := context.Background()

	if err := c.Register(ctx, "alice@example.com", "password123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := c.Login(ctx, "alice@example.com", "password123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if c.Token() == "" {
		t.Fatal("expected token after login")
	}

	// round trip an item, including characters that need escaping
	if err := c.CreateItem(ctx, "milk & eggs?"); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	items, err := c.MyItems(ctx)
	if err != nil {
		t.Fatalf("MyItems failed: %v", err)
	}
	if len(items) != 1 || items[0].Text != "milk & eggs?" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestClient_AllItems(t *testing.T) {
	t.Parallel()
	env, server := setupServer(t)
	ctx := context.Background()

	alice := client.New(server.URL, client.WithToken(env.IssueToken(t, "alice")))
	if err := alice.CreateItem(ctx, "one"); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	// non-admin is forbidden
	_, err := alice.AllItems(ctx)
	if !errors.Is(err, client.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Detail != "Forbidden" {
		t.Errorf("unexpected error detail: %v", err)
	}

	// admin is not
	admin := client.New(server.URL, client.WithToken(env.IssueToken(t, "root", testutil.AdminGroup)))
	items, err := admin.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()
	_, server := setupServer(t)
	ctx := context.Background()
	c := client.New(server.URL)

	// authenticated calls need a token
	if _, err := c.MyItems(ctx); !errors.Is(err, client.ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}

	// rejected token
	c.SetToken("not-a-token")
	if err := c.CreateItem(ctx, "x"); !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	// unknown user
	if err := c.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// short password
	if err := c.Register(ctx, "bob@example.com", "short"); !errors.Is(err, client.ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
}

func TestClient_ServerError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	// body without detail still yields a status error
	c := client.New(server.URL, client.WithHTTPClient(server.Client()))
	err := c.Register(context.Background(), "alice@example.com", "password123")
	if !errors.Is(err, client.ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
}
