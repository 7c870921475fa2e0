package tokenstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"git.sr.ht/~jakintosh/itemstore/pkg/tokens"
)

// JWKSServer serves a key set over HTTP and counts fetches.
type JWKSServer struct {
	*httptest.Server

	fetches atomic.Int64

	mu     sync.Mutex
	set    *tokens.KeySet
	status int
	body   []byte
}

// NewJWKSServer starts a server publishing set. Callers must Close it.
func NewJWKSServer(set *tokens.KeySet) *JWKSServer {
	s := &JWKSServer{set: set}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// SetKeySet replaces the published key set.
func (s *JWKSServer) SetKeySet(set *tokens.KeySet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = set
}

// FailWith makes every following fetch answer with status. Zero restores
// normal service.
func (s *JWKSServer) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// ServeRaw makes every following fetch answer 200 with body. Nil
// restores normal service.
func (s *JWKSServer) ServeRaw(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
}

// Fetches returns the number of requests served so far.
func (s *JWKSServer) Fetches() int64 {
	return s.fetches.Load()
}

// KeySetURL returns the well-known location of the key set.
func (s *JWKSServer) KeySetURL() string {
	return s.URL + "/.well-known/jwks.json"
}

func (s *JWKSServer) serve(w http.ResponseWriter, r *http.Request) {
	s.fetches.Add(1)

	s.mu.Lock()
	set, status, body := s.set, s.status, s.body
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if body != nil {
		w.Write(body)
		return
	}
	json.NewEncoder(w).Encode(set)
}
