package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"git.sr.ht/~jakintosh/itemstore/internal/api"
	"git.sr.ht/~jakintosh/itemstore/internal/service"
	"go.uber.org/zap"
)

var (
	ErrNoToken      = errors.New("no token")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrServer       = errors.New("server error")
)

// Item is a stored item as returned by the API.
type Item = service.Item

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
}

// Is matches the status class sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrInvalidInput:
		return e.Status == http.StatusUnprocessableEntity
	case ErrServer:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	req := api.CredentialsRequest{Email: email, Password: password}
	return c.do(ctx, http.MethodPost, "/api/v1/users/register", req, false, nil)
}

// Login authenticates and keeps the returned access token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	req := api.CredentialsRequest{Email: email, Password: password}
	var res api.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/users/login", req, false, &res); err != nil {
		return err
	}
	if res.Token == "" {
		return fmt.Errorf("%w: login response carried no token", ErrNoToken)
	}
	c.SetToken(res.Token)
	c.log.Debug("logged in", zap.String("email", email))
	return nil
}

func (c *Client) CreateItem(ctx context.Context, text string) error {
	path := "/api/v1/items/create_item?text=" + url.QueryEscape(text)
	return c.do(ctx, http.MethodPost, path, nil, true, nil)
}

func (c *Client) MyItems(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := c.do(ctx, http.MethodGet, "/api/v1/items/fetch_my_items", nil, true, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AllItems lists every user's items; the caller must be an admin.
func (c *Client) AllItems(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := c.do(ctx, http.MethodGet, "/api/v1/items/fetch_all_items_by_admin", nil, true, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	authenticated bool,
	out any,
) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		token := c.Token()
		if token == "" {
			return ErrNoToken
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug("request", zap.String("method", method), zap.String("path", path))
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode}
		var detail api.ErrorResponse
		if err := json.NewDecoder(res.Body).Decode(&detail); err == nil {
			apiErr.Detail = detail.Detail
		}
		c.log.Debug("request failed",
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.String("detail", apiErr.Detail),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}
