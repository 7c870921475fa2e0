// Package tokenstest provides a stand-in identity provider for testing
// code that verifies bearer tokens.
//
// A Provider signs RS256 tokens with a local key and publishes the
// matching key set, so tests never reach a real user pool:
//
//	func TestProtectedRoute(t *testing.T) {
//	    provider := tokenstest.NewProvider()
//	    router := myapp.NewRouter(provider.Verifier())
//
//	    token, _ := provider.IssueAccessToken("alice", "admin")
//	    req := httptest.NewRequest("GET", "/api/v1/items/fetch_my_items", nil)
//	    req.Header.Set("Authorization", "Bearer "+token)
//	    ...
//	}
//
// JWKSServer serves a key set over HTTP for tests of the fetch path,
// and can be told to fail or serve garbage.
package tokenstest
