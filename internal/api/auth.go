package api

import (
	"context"
	"errors"
	"net/http"

	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
	"go.uber.org/zap"
)

type ctxKey int

const identityKey ctxKey = iota

// Authenticate verifies the bearer token and stores the caller's identity
// in the request context. The scheme is checked before any key lookup.
func (a *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := tokens.ParseAuthorization(r.Header.Get("Authorization"))
		switch {
		case errors.Is(err, tokens.ErrMissingCredentials):
			returnJson(ErrorResponse{Detail: "Not authenticated"}, http.StatusForbidden, w)
			return
		case err != nil:
			returnJson(ErrorResponse{Detail: "Invalid authentication scheme"}, http.StatusForbidden, w)
			return
		}

		caller, err := a.verifier.Verify(r.Context(), token)
		a.metrics.ObserveVerification(err)
		if err != nil {
			fields := []zap.Field{
				zap.String("uri", r.RequestURI),
				zap.String("category", tokens.Category(err)),
				zap.Error(err),
			}
			var verr *tokens.VerifyError
			if errors.As(err, &verr) {
				fields = append(fields, zap.Stringer("stage", verr.Stage))
			}
			a.log.Warn("token rejected", fields...)

			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			returnJson(ErrorResponse{Detail: "Invalid token"}, http.StatusUnauthorized, w)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Caller returns the identity stored by Authenticate.
func Caller(ctx context.Context) (*tokens.Identity, bool) {
	caller, ok := ctx.Value(identityKey).(*tokens.Identity)
	return caller, ok && caller != nil
}
