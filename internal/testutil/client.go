package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

// Client is a test HTTP client for API integration tests. Every exchange is
// validated against the OpenAPI contract when a validator is attached.
type Client struct {
	BaseURL   string
	Token     string
	Validator *OpenAPIValidator

	http *http.Client
}

// NewClient creates a test client for the given server base URL.
func NewClient(baseURL string, validator *OpenAPIValidator) *Client {
	return &Client{
		BaseURL:   baseURL,
		Validator: validator,
		http:      &http.Client{},
	}
}

// WithToken returns a copy of the client that sends the given bearer token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.Token = token
	return &clone
}

// Get performs a GET request against the API.
func (c *Client) Get(t *testing.T, path string) *http.Response {
	t.Helper()
	return c.do(t, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	return c.do(t, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	return c.do(t, http.MethodPut, path, body)
}

func (c *Client) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	if c.Validator != nil {
		c.Validator.ValidateRequestResponse(t, req, resp)
	}

	return resp
}

// Do sends a prepared request, used for multipart uploads.
func (c *Client) Do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

// DecodeJSON decodes a response body into dst and closes the body.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

// ReadBody reads and returns the full response body as a string.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return string(body)
}

// RequireStatus fails the test when the response status differs.
func RequireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body := ReadBody(t, resp)
		t.Fatalf("unexpected status: got %d, want %d, body: %s", resp.StatusCode, want, body)
	}
}
