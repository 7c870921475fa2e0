// Package tokens verifies bearer tokens issued by an external identity
// provider such as an AWS Cognito user pool.
//
// A token is accepted only after its RS256 signature checks out against a
// key from the provider's published key set (JWKS). Verification runs as
// a small state machine:
//
//	received -> key set fetched -> key resolved -> signature checked -> claims decoded
//
// Any failure stops the machine and returns a *VerifyError carrying the
// stage it stopped in and one of five categories:
//
//   - ErrProviderUnreachable: the key set could not be fetched
//   - ErrKeyNotFound: no key matches the token's kid
//   - ErrMalformedToken: the token is not three base64url sections
//   - ErrSignatureInvalid: the signature or the header algorithm is wrong
//   - ErrClaimsInvalid: the claims are expired, foreign or incomplete
//
// # Usage
//
//	issuer := tokens.CognitoIssuer("us-east-1", "us-east-1_Example")
//
//	cache := tokens.NewCache(time.Hour)
//	cache.Add(issuer, tokens.NewHTTPSource(tokens.JWKSURL(issuer)))
//
//	verifier := tokens.NewVerifier(cache, tokens.Config{
//	    Issuer:   issuer,
//	    ClientID: "example-client",
//	})
//
//	raw, err := tokens.ParseAuthorization(r.Header.Get("Authorization"))
//	if err != nil {
//	    // missing header or not a bearer token
//	}
//	identity, err := verifier.Verify(ctx, raw)
//	if err != nil {
//	    // reject with 401
//	}
//	if identity.HasGroup("admin") {
//	    // ...
//	}
//
// Key sets are cached per issuer. Concurrent misses share one fetch, a
// token naming an unknown kid forces one rate limited refresh, and a
// previously fetched key set is served for a while when the provider
// cannot be reached.
package tokens
