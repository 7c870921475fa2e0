// Package api serves the item store over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"git.sr.ht/~jakintosh/itemstore/internal/identity"
	"git.sr.ht/~jakintosh/itemstore/internal/metrics"
	"git.sr.ht/~jakintosh/itemstore/internal/service"
	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
	"go.uber.org/zap"
)

// Verifier turns a bearer token into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*tokens.Identity, error)
}

type API struct {
	service  *service.Service
	verifier Verifier
	log      *zap.Logger
	metrics  *metrics.Metrics
	jwks     http.Handler
}

type Option func(*API)

func WithLogger(log *zap.Logger) Option {
	return func(a *API) { a.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *API) { a.metrics = m }
}

// WithJWKS publishes a key set at /.well-known/jwks.json.
func WithJWKS(h http.Handler) Option {
	return func(a *API) { a.jwks = h }
}

func New(
	svc *service.Service,
	verifier Verifier,
	opts ...Option,
) *API {
	a := &API{
		service:  svc,
		verifier: verifier,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request, log *zap.Logger) bool {
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		logApiErr(log, r, "bad json request", err)
		returnJson(ErrorResponse{Detail: "Invalid request body"}, http.StatusBadRequest, w)
		return false
	}
	return true
}

func returnJson(data any, status int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func logApiErr(log *zap.Logger, r *http.Request, msg string, err error) {
	log.Error(msg,
		zap.String("method", r.Method),
		zap.String("uri", r.RequestURI),
		zap.Error(err),
	)
}

// writeError maps service and provider errors onto status codes.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := http.StatusInternalServerError, "An error occurred"
	switch {
	case errors.Is(err, service.ErrInvalidItem):
		status, detail = http.StatusUnprocessableEntity, "Text must not be empty"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, detail = http.StatusUnprocessableEntity, "Email and password are required"
	case errors.Is(err, service.ErrForbidden):
		status, detail = http.StatusForbidden, "Forbidden"
	case errors.Is(err, identity.ErrUsernameExists):
		status, detail = http.StatusBadRequest, "Email already exists"
	case errors.Is(err, identity.ErrInvalidPassword):
		status, detail = http.StatusBadRequest, "Invalid password"
	case errors.Is(err, identity.ErrUserNotConfirmed):
		status, detail = http.StatusBadRequest, "User not confirmed"
	case errors.Is(err, identity.ErrChallengeRequired):
		status, detail = http.StatusBadRequest, "Additional authentication challenge required"
	case errors.Is(err, identity.ErrNotAuthorized):
		status, detail = http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, identity.ErrUserNotFound):
		status, detail = http.StatusNotFound, "User not found"
	}

	if status >= http.StatusInternalServerError {
		logApiErr(a.log, r, "request failed", err)
	} else {
		a.log.Debug("request rejected",
			zap.String("uri", r.RequestURI),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	returnJson(ErrorResponse{Detail: detail}, status, w)
}
