package metrics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"git.sr.ht/~jakintosh/itemstore/internal/metrics"
	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveVerification(t *testing.T) {
	t.Parallel()
	m := metrics.New()

	// outcomes are labelled by category
	m.ObserveVerification(nil)
	m.ObserveVerification(nil)
	m.ObserveVerification(&tokens.VerifyError{Stage: tokens.StageKeyNotFound, Err: tokens.ErrKeyNotFound})

	if got := testutil.ToFloat64(m.TokenVerifications.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TokenVerifications.WithLabelValues("key_not_found")); got != 1 {
		t.Errorf("key_not_found = %v, want 1", got)
	}
}

func TestObserveVerification_Nil(t *testing.T) {
	t.Parallel()
	var m *metrics.Metrics

	// nil metrics are a no-op
	m.ObserveVerification(errors.New("boom"))
	src := tokens.SourceFunc(func(context.Context) (*tokens.KeySet, error) { return nil, nil })
	if m.InstrumentSource(src) == nil {
		t.Error("expected source passthrough")
	}
}

func TestInstrumentSource(t *testing.T) {
	t.Parallel()
	m := metrics.New()

	failing := tokens.SourceFunc(func(context.Context) (*tokens.KeySet, error) {
		return nil, tokens.ErrProviderUnreachable
	})
	working := tokens.SourceFunc(func(context.Context) (*tokens.KeySet, error) {
		return &tokens.KeySet{Keys: []tokens.SigningKey{}}, nil
	})

	// results pass through unchanged
	if _, err := m.InstrumentSource(failing).Fetch(context.Background()); !errors.Is(err, tokens.ErrProviderUnreachable) {
		t.Errorf("expected ErrProviderUnreachable, got %v", err)
	}
	if _, err := m.InstrumentSource(working).Fetch(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// one observation per fetch
	if got := testutil.CollectAndCount(m.KeySetFetchDuration); got != 2 {
		t.Errorf("histogram series = %d, want 2", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	t.Parallel()
	m := metrics.New()

	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	// labelled by route template, not raw path
	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))
	if got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}

	// exposition includes the namespace
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "itemstore_http_requests_total") {
		t.Error("missing itemstore_http_requests_total in exposition")
	}
}
