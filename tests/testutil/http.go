package testutil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope mirrors the API response wrapper with the payload left raw
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

// Response is a recorded HTTP response
type Response struct {
	*httptest.ResponseRecorder
	t *testing.T
}

// Envelope decodes the body as an API envelope
func (r *Response) Envelope() Envelope {
	r.t.Helper()
	var env Envelope
	require.NoError(r.t, json.Unmarshal(r.Body.Bytes(), &env), "body: %s", r.Body.String())
	return env
}

// Decode unmarshals the envelope data into v
func (r *Response) Decode(v any) {
	r.t.Helper()
	env := r.Envelope()
	require.True(r.t, env.Success, "expected success, body: %s", r.Body.String())
	require.NoError(r.t, json.Unmarshal(env.Data, v))
}

// RequireStatus fails the test when the status code differs
func (r *Response) RequireStatus(want int) *Response {
	r.t.Helper()
	require.Equal(r.t, want, r.Code, "body: %s", r.Body.String())
	return r
}

// AssertError checks the status and the envelope error code
func (r *Response) AssertError(status int, code string) {
	r.t.Helper()
	assert.Equal(r.t, status, r.Code, "body: %s", r.Body.String())
	env := r.Envelope()
	assert.False(r.t, env.Success)
	if assert.NotNil(r.t, env.Error) {
		assert.Equal(r.t, code, env.Error.Code)
	}
}

// APIClient issues JSON requests against an in-process handler
type APIClient struct {
	t       *testing.T
	handler http.Handler
	token   string
	headers map[string]string
}

// NewAPIClient creates a client for h
func NewAPIClient(t *testing.T, h http.Handler) *APIClient {
	return &APIClient{t: t, handler: h}
}

// WithToken returns a copy that sends a bearer token
func (c *APIClient) WithToken(token string) *APIClient {
	cp := *c
	cp.token = token
	return &cp
}

// WithHeader returns a copy that sends an extra header
func (c *APIClient) WithHeader(key, value string) *APIClient {
	cp := *c
	cp.headers = make(map[string]string, len(c.headers)+1)
	for k, v := range c.headers {
		cp.headers[k] = v
	}
	cp.headers[key] = value
	return &cp
}

// Do sends a request; a nil body sends no payload
func (c *APIClient) Do(method, target string, body any) *Response {
	c.t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(c.t, err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return &Response{ResponseRecorder: w, t: c.t}
}

// Get sends a GET request
func (c *APIClient) Get(target string) *Response {
	c.t.Helper()
	return c.Do(http.MethodGet, target, nil)
}

// Post sends a POST request with a JSON body
func (c *APIClient) Post(target string, body any) *Response {
	c.t.Helper()
	return c.Do(http.MethodPost, target, body)
}
