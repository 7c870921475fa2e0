package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"git.sr.ht/~jakintosh/itemstore/internal/api"
	"git.sr.ht/~jakintosh/itemstore/internal/testutil"
	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
)

const (
	registerPath = "/api/v1/users/register"
	loginPath    = "/api/v1/users/login"
)

func TestRegister_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	body := `{
		"email": "alice@example.com",
		"password": "password123"
	}`
	var response api.MessageResponse
	result := testutil.PostJSON(env.Router, registerPath, body, &response)
	testutil.ExpectStatus(t, http.StatusOK, result)
	if response.Message != "User registered successfully" {
		t.Errorf("Message = %q", response.Message)
	}
}

func TestRegister_Errors(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestUser(t, "alice@example.com", "password123")

	tests := []struct {
		name   string
		body   string
		status int
		detail string
	}{
		{"duplicate", `{"email":"alice@example.com","password":"password456"}`, http.StatusBadRequest, "Email already exists"},
		{"short password", `{"email":"bob@example.com","password":"short"}`, http.StatusBadRequest, "Invalid password"},
		{"missing password", `{"email":"bob@example.com"}`, http.StatusUnprocessableEntity, "Email and password are required"},
		{"empty object", `{}`, http.StatusUnprocessableEntity, "Email and password are required"},
		{"bad json", `not-json`, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := testutil.PostJSON(env.Router, registerPath, tt.body, nil)
			testutil.ExpectDetail(t, tt.status, tt.detail, result)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestUser(t, "alice@example.com", "password123")

	// valid login returns a verifiable access token
	body := `{
		"email": "alice@example.com",
		"password": "password123"
	}`
	var response api.LoginResponse
	result := testutil.PostJSON(env.Router, loginPath, body, &response)
	testutil.ExpectStatus(t, http.StatusOK, result)
	if response.Message != "User logged in successfully" {
		t.Errorf("Message = %q", response.Message)
	}

	caller := env.Identity(t, response.Token)
	if caller.Username != "alice@example.com" {
		t.Errorf("Username = %q", caller.Username)
	}
	if caller.Claims.TokenUse != tokens.TokenUseAccess {
		t.Errorf("token_use = %q, want access", caller.Claims.TokenUse)
	}
}

func TestLogin_Errors(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestUser(t, "alice@example.com", "password123")

	tests := []struct {
		name   string
		body   string
		status int
		detail string
	}{
		{"wrong password", `{"email":"alice@example.com","password":"wrongpassword"}`, http.StatusUnauthorized, "Invalid username or password"},
		{"unknown user", `{"email":"nobody@example.com","password":"password123"}`, http.StatusNotFound, "User not found"},
		{"missing email", `{"password":"password123"}`, http.StatusUnprocessableEntity, "Email and password are required"},
		{"bad json", `{"email":`, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := testutil.PostJSON(env.Router, loginPath, tt.body, nil)
			testutil.ExpectDetail(t, tt.status, tt.detail, result)
		})
	}
}

func TestJWKS_Published(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	result := testutil.Get(env.Router, "/.well-known/jwks.json", nil)
	testutil.ExpectStatus(t, http.StatusOK, result)

	set, err := tokens.ParseKeySet(result.Body)
	if err != nil {
		t.Fatalf("ParseKeySet failed: %v", err)
	}
	if _, n := set.Lookup(env.Tokens.KeyID); n != 1 {
		t.Errorf("expected published kid %s", env.Tokens.KeyID)
	}
}

func TestRouter_NotFound(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	result := testutil.Get(env.Router, "/api/v1/nothing", nil)
	testutil.ExpectDetail(t, http.StatusNotFound, "Not Found", result)

	var body map[string]string
	if err := json.Unmarshal(result.Body, &body); err != nil || len(body) != 1 {
		t.Errorf("unexpected body: %s", result.Body)
	}
}
