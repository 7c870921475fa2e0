package api_test

import (
	"net/http"
	"net/url"
	"testing"

	"git.sr.ht/~jakintosh/itemstore/internal/service"
	"git.sr.ht/~jakintosh/itemstore/internal/testutil"
)

func createItem(t *testing.T, env *testutil.TestEnv, token string, text string) {
	t.Helper()
	path := "/api/v1/items/create_item?text=" + url.QueryEscape(text)
	var response struct {
		Message string `json:"message"`
	}
	result := testutil.Post(env.Router, path, "", &response, testutil.Bearer(token))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if response.Message != "Text saved successfully" {
		t.Fatalf("unexpected message: %q", response.Message)
	}
}

func TestCreateItem_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	token := env.IssueToken(t, "alice")
	caller := env.Identity(t, token)

	// stored text is returned to its owner
	createItem(t, env, token, "hello world")

	var items []service.Item
	result := testutil.Get(env.Router, "/api/v1/items/fetch_my_items", &items, testutil.Bearer(token))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Text != "hello world" {
		t.Errorf("Text = %q", items[0].Text)
	}
	if items[0].UserID != caller.Subject {
		t.Errorf("UserID = %q, want %q", items[0].UserID, caller.Subject)
	}
	if items[0].ID == "" || items[0].Timestamp.IsZero() {
		t.Errorf("expected id and timestamp: %+v", items[0])
	}
}

func TestCreateItem_MissingText(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	token := env.IssueToken(t, "alice")

	// missing and blank text are both rejected
	result := testutil.Post(env.Router, "/api/v1/items/create_item", "", nil, testutil.Bearer(token))
	testutil.ExpectStatus(t, http.StatusUnprocessableEntity, result)

	result = testutil.Post(env.Router, "/api/v1/items/create_item?text=%20%20", "", nil, testutil.Bearer(token))
	testutil.ExpectStatus(t, http.StatusUnprocessableEntity, result)
}

func TestFetchMyItems_Scoped(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	alice := env.IssueToken(t, "alice")
	bob := env.IssueToken(t, "bob")
	createItem(t, env, alice, "alice one")
	createItem(t, env, alice, "alice two")
	createItem(t, env, bob, "bob one")

	// each caller only sees their own items
	var items []service.Item
	result := testutil.Get(env.Router, "/api/v1/items/fetch_my_items", &items, testutil.Bearer(bob))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if len(items) != 1 || items[0].Text != "bob one" {
		t.Fatalf("bob sees %+v", items)
	}

	result = testutil.Get(env.Router, "/api/v1/items/fetch_my_items", &items, testutil.Bearer(alice))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if len(items) != 2 {
		t.Fatalf("alice sees %d items, want 2", len(items))
	}
}

func TestFetchMyItems_Empty(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	token := env.IssueToken(t, "alice")

	// no items encodes as an empty list
	result := testutil.Get(env.Router, "/api/v1/items/fetch_my_items", nil, testutil.Bearer(token))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if string(result.Body) != "[]\n" {
		t.Errorf("body = %q, want []", result.Body)
	}
}

func TestFetchAllItems_Admin(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	alice := env.IssueToken(t, "alice")
	bob := env.IssueToken(t, "bob")
	admin := env.IssueToken(t, "root", testutil.AdminGroup)
	createItem(t, env, alice, "alice one")
	createItem(t, env, bob, "bob one")

	// admin sees everything
	var items []service.Item
	result := testutil.Get(env.Router, "/api/v1/items/fetch_all_items_by_admin", &items, testutil.Bearer(admin))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if len(items) != 2 {
		t.Fatalf("admin sees %d items, want 2", len(items))
	}
}

func TestFetchAllItems_Forbidden(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// other groups do not grant the scan
	token := env.IssueToken(t, "alice", "editors")
	result := testutil.Get(env.Router, "/api/v1/items/fetch_all_items_by_admin", nil, testutil.Bearer(token))
	testutil.ExpectDetail(t, http.StatusForbidden, "Forbidden", result)
}

func TestItems_LoginToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// a token from the login endpoint works on item routes
	env.RegisterTestUser(t, "alice@example.com", "password123")
	token := env.LoginTestUser(t, "alice@example.com", "password123")
	createItem(t, env, token, "from login")

	var items []service.Item
	result := testutil.Get(env.Router, "/api/v1/items/fetch_my_items", &items, testutil.Bearer(token))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if len(items) != 1 || items[0].Text != "from login" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestItems_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	token := env.IssueToken(t, "alice")

	result := testutil.Get(env.Router, "/api/v1/items/create_item?text=x", nil, testutil.Bearer(token))
	testutil.ExpectDetail(t, http.StatusMethodNotAllowed, "Method Not Allowed", result)
}
