package tokens

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// maxKeySetBytes bounds the size of a fetched JWKS document.
const maxKeySetBytes = 1 << 20

// KeySetSource retrieves the current key set of one issuer.
type KeySetSource interface {
	Fetch(ctx context.Context) (*KeySet, error)
}

// SourceFunc adapts a function to KeySetSource.
type SourceFunc func(ctx context.Context) (*KeySet, error)

func (f SourceFunc) Fetch(ctx context.Context) (*KeySet, error) {
	return f(ctx)
}

// HTTPSource fetches a JWKS document over HTTP(S). Transport errors and
// 5xx responses are retried with exponential backoff; anything else fails
// immediately. Every failure wraps ErrProviderUnreachable.
type HTTPSource struct {
	url             string
	client          *http.Client
	timeout         time.Duration
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	log             *zap.Logger
}

type HTTPOption func(*HTTPSource)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) { s.client = client }
}

// WithAttemptTimeout bounds each individual request.
func WithAttemptTimeout(timeout time.Duration) HTTPOption {
	return func(s *HTTPSource) { s.timeout = timeout }
}

// WithRetry sets the number of retries after the first attempt and the
// first backoff interval.
func WithRetry(maxRetries uint64, initialInterval time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.maxRetries = maxRetries
		s.initialInterval = initialInterval
	}
}

func WithSourceLogger(log *zap.Logger) HTTPOption {
	return func(s *HTTPSource) { s.log = log }
}

func NewHTTPSource(url string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		url:             url,
		client:          http.DefaultClient,
		timeout:         5 * time.Second,
		maxRetries:      3,
		initialInterval: 200 * time.Millisecond,
		maxInterval:     2 * time.Second,
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) URL() string {
	return s.url
}

func (s *HTTPSource) Fetch(ctx context.Context) (*KeySet, error) {
	var set *KeySet
	attempt := 0
	op := func() error {
		attempt++
		fetched, err := s.fetchOnce(ctx)
		if err != nil {
			s.log.Debug("jwks fetch attempt failed",
				zap.String("url", s.url),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		set = fetched
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.initialInterval
	policy.MaxInterval = s.maxInterval
	policy.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, s.maxRetries), ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s after %d attempt(s): %w", ErrProviderUnreachable, s.url, attempt, err)
	}
	return set, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context) (*KeySet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return nil, err
	}
	set, err := ParseKeySet(body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("malformed key set: %w", err))
	}
	return set, nil
}
