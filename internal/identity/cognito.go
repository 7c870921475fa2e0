package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	cognitoContentType  = "application/x-amz-json-1.1"
	cognitoTargetPrefix = "AWSCognitoIdentityProviderService."
	maxCognitoBodyBytes = 1 << 20
)

// CognitoClient calls the public (unsigned) user pool operations of the
// Cognito Identity Provider JSON API.
type CognitoClient struct {
	endpoint string
	clientID string
	client   *http.Client
	log      *zap.Logger
}

type CognitoOption func(*CognitoClient)

// WithEndpoint overrides the regional endpoint, e.g. for tests.
func WithEndpoint(endpoint string) CognitoOption {
	return func(c *CognitoClient) { c.endpoint = endpoint }
}

func WithHTTPClient(client *http.Client) CognitoOption {
	return func(c *CognitoClient) { c.client = client }
}

func WithCognitoLogger(log *zap.Logger) CognitoOption {
	return func(c *CognitoClient) { c.log = log }
}

func NewCognitoClient(
	region string,
	clientID string,
	opts ...CognitoOption,
) *CognitoClient {
	c := &CognitoClient{
		endpoint: fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/", region),
		clientID: clientID,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type attributeType struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type signUpRequest struct {
	ClientID       string          `json:"ClientId"`
	Username       string          `json:"Username"`
	Password       string          `json:"Password"`
	UserAttributes []attributeType `json:"UserAttributes,omitempty"`
}

type initiateAuthRequest struct {
	AuthFlow       string            `json:"AuthFlow"`
	ClientID       string            `json:"ClientId"`
	AuthParameters map[string]string `json:"AuthParameters"`
}

type initiateAuthResponse struct {
	AuthenticationResult *AuthResult `json:"AuthenticationResult"`
	ChallengeName        string      `json:"ChallengeName"`
}

type cognitoError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

func (c *CognitoClient) SignUp(
	ctx context.Context,
	username string,
	password string,
) error {
	req := signUpRequest{
		ClientID: c.clientID,
		Username: username,
		Password: password,
	}
	if strings.Contains(username, "@") {
		req.UserAttributes = []attributeType{{Name: "email", Value: username}}
	}
	return c.call(ctx, "SignUp", req, nil)
}

func (c *CognitoClient) InitiateAuth(
	ctx context.Context,
	username string,
	password string,
) (
	*AuthResult,
	error,
) {
	req := initiateAuthRequest{
		AuthFlow: "USER_PASSWORD_AUTH",
		ClientID: c.clientID,
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	}

	var resp initiateAuthResponse
	if err := c.call(ctx, "InitiateAuth", req, &resp); err != nil {
		return nil, err
	}
	if resp.AuthenticationResult == nil {
		return nil, fmt.Errorf("%w: %s", ErrChallengeRequired, resp.ChallengeName)
	}
	return resp.AuthenticationResult, nil
}

func (c *CognitoClient) call(
	ctx context.Context,
	operation string,
	in any,
	out any,
) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s request: %v", ErrProvider, operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", cognitoContentType)
	req.Header.Set("X-Amz-Target", cognitoTargetPrefix+operation)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProvider, operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCognitoBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: failed to read response: %v", ErrProvider, operation, err)
	}

	if resp.StatusCode != http.StatusOK {
		return c.decodeError(operation, resp, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: bad response: %v", ErrProvider, operation, err)
	}
	return nil
}

func (c *CognitoClient) decodeError(
	operation string,
	resp *http.Response,
	data []byte,
) error {
	var cerr cognitoError
	_ = json.Unmarshal(data, &cerr)
	if cerr.Type == "" {
		cerr.Type = resp.Header.Get("X-Amzn-ErrorType")
	}

	// types may be qualified, e.g. "aws.cognito#UserNotFoundException"
	code := cerr.Type
	if i := strings.LastIndex(code, "#"); i >= 0 {
		code = code[i+1:]
	}
	code, _, _ = strings.Cut(code, ":")

	c.log.Debug("cognito request failed",
		zap.String("operation", operation),
		zap.Int("status", resp.StatusCode),
		zap.String("code", code),
		zap.String("message", cerr.Message),
	)

	switch code {
	case "UsernameExistsException":
		return fmt.Errorf("%w: %s", ErrUsernameExists, cerr.Message)
	case "InvalidPasswordException":
		return fmt.Errorf("%w: %s", ErrInvalidPassword, cerr.Message)
	case "NotAuthorizedException":
		return fmt.Errorf("%w: %s", ErrNotAuthorized, cerr.Message)
	case "UserNotFoundException":
		return fmt.Errorf("%w: %s", ErrUserNotFound, cerr.Message)
	case "UserNotConfirmedException":
		return fmt.Errorf("%w: %s", ErrUserNotConfirmed, cerr.Message)
	default:
		return fmt.Errorf("%w: %s: status %d: %s %s", ErrProvider, operation, resp.StatusCode, code, cerr.Message)
	}
}
