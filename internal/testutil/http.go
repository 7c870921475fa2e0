package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// HTTPResult captures HTTP response details for test assertions
type HTTPResult struct {
	Code    int
	Error   error
	Headers http.Header
	Body    []byte
}

// Header represents an HTTP header key-value pair
type Header struct {
	Key   string
	Value string
}

// ContentTypeJSON returns a header for JSON content type
func ContentTypeJSON() Header {
	return Header{
		Key:   "Content-Type",
		Value: "application/json",
	}
}

// Bearer returns an Authorization header carrying token
func Bearer(token string) Header {
	return Header{
		Key:   "Authorization",
		Value: "Bearer " + token,
	}
}

// ExpectStatus validates the HTTP status code and fails the test if it doesn't match
func ExpectStatus(
	t *testing.T,
	expected int,
	result HTTPResult,
) {
	t.Helper()
	if result.Error != nil {
		t.Fatalf("request error: %v", result.Error)
	}
	if result.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, result.Code, string(result.Body))
	}
}

// ExpectDetail validates the status and the detail of a JSON error body
func ExpectDetail(
	t *testing.T,
	expected int,
	detail string,
	result HTTPResult,
) {
	t.Helper()
	ExpectStatus(t, expected, result)
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(result.Body, &body); err != nil {
		t.Fatalf("failed to decode error body: %v\n%s", err, result.Body)
	}
	if body.Detail != detail {
		t.Fatalf("expected detail %q, got %q", detail, body.Detail)
	}
}

// Get performs a GET request and optionally decodes JSON response
func Get(
	router http.Handler,
	url string,
	response any,
	headers ...Header,
) HTTPResult {
	return do(router, http.MethodGet, url, "", response, headers)
}

// Post performs a POST request and optionally decodes JSON response
func Post(
	router http.Handler,
	url string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	return do(router, http.MethodPost, url, body, response, headers)
}

// PostJSON performs a POST with JSON body
func PostJSON(
	router http.Handler,
	urlPath string,
	body string,
	response any,
) HTTPResult {
	return Post(router, urlPath, body, response, ContentTypeJSON())
}

func do(
	router http.Handler,
	method string,
	url string,
	body string,
	response any,
	headers []Header,
) HTTPResult {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	res := httptest.NewRecorder()
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}
	router.ServeHTTP(res, req)

	if response != nil && res.Code < 300 && res.Body.Len() > 0 {
		if err := json.Unmarshal(res.Body.Bytes(), response); err != nil {
			return HTTPResult{
				Code:    res.Code,
				Error:   fmt.Errorf("failed to decode JSON: %v\n%s", err, res.Body.String()),
				Headers: res.Header(),
				Body:    res.Body.Bytes(),
			}
		}
	}

	return HTTPResult{Code: res.Code, Headers: res.Header(), Body: res.Body.Bytes()}
}
