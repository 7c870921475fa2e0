package service_test

import (
	"context"
	"errors"
	"testing"

	"git.sr.ht/~jakintosh/itemstore/internal/identity"
	"git.sr.ht/~jakintosh/itemstore/internal/service"
	"git.sr.ht/~jakintosh/itemstore/internal/testutil"
)

// fakeProvider returns fixed results from an identity provider
type fakeProvider struct {
	signUpErr error
	authErr   error
	calls     int
}

func (f *fakeProvider) SignUp(ctx context.Context, username, password string) error {
	f.calls++
	return f.signUpErr
}

func (f *fakeProvider) InitiateAuth(ctx context.Context, username, password string) (*identity.AuthResult, error) {
	f.calls++
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &identity.AuthResult{AccessToken: "token", TokenType: "Bearer"}, nil
}

// failingStore fails every operation
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) PutItem(context.Context, service.Item) error { return errStoreDown }
func (failingStore) ItemsByUser(context.Context, string) ([]service.Item, error) {
	return nil, errStoreDown
}
func (failingStore) AllItems(context.Context) ([]service.Item, error) { return nil, errStoreDown }

func TestNew_CreatesService(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	if env.Service == nil {
		t.Fatal("expected non-nil service")
	}
	if env.Service.AdminGroup() != service.DefaultAdminGroup {
		t.Errorf("AdminGroup = %s", env.Service.AdminGroup())
	}
}

func TestNew_WithAdminGroup(t *testing.T) {
	t.Parallel()
	svc := service.New(failingStore{}, &fakeProvider{}, service.WithAdminGroup("ops"))

	if svc.AdminGroup() != "ops" {
		t.Errorf("AdminGroup = %s, want ops", svc.AdminGroup())
	}
}
