// Package api is a typed client for the image-hosting backend's REST API.
// It normalizes the backend's {success, data, error} envelope into Go types
// and a structured error carrying the backend's domain flags.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every API round trip.
const DefaultTimeout = 15 * time.Second

// Client wraps the backend REST API. Session cookies (Telegram and admin)
// are held in the client's cookie jar; bearer tokens are passed per call.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	logger        zerolog.Logger
	deviceHeaders map[string]string

	// onUnauthorized fires when an admin-namespaced request returns 401,
	// so the admin auth store can force a logout. 401s from other
	// endpoints (e.g. an invalid bearer token) do not trigger it.
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is
// attached if the given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger for request-level debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDeviceHeaders sets identification headers sent with every request.
func WithDeviceHeaders(headers map[string]string) Option {
	return func(c *Client) { c.deviceHeaders = headers }
}

// WithOnUnauthorized registers the admin 401 hook.
func WithOnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := &Client{
		baseURL: baseURL,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	return c, nil
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the backend's standard response shape. Extra fields cover the
// token verify endpoint (valid/reason) and admin login lockout reporting.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`

	Valid  *bool  `json:"valid,omitempty"`
	Reason string `json:"reason,omitempty"`

	Locked            bool `json:"locked,omitempty"`
	RetryAfter        int  `json:"retry_after,omitempty"`
	RemainingAttempts *int `json:"remaining_attempts,omitempty"`

	RequiresPassword bool   `json:"requires_password,omitempty"`
	RequiresToken    bool   `json:"requires_token,omitempty"`
	GalleryName      string `json:"gallery_name,omitempty"`
}

// errorFromEnvelope builds the normalized error for a non-success envelope.
func errorFromEnvelope(statusCode int, env *envelope) *Error {
	msg := env.Error
	if msg == "" {
		msg = env.Message
	}
	if msg == "" {
		msg = env.Reason
	}

	apiErr := &Error{
		StatusCode:        statusCode,
		Message:           msg,
		Locked:            env.Locked,
		RetryAfter:        env.RetryAfter,
		RemainingAttempts: -1,
		RequiresPassword:  env.RequiresPassword,
		RequiresToken:     env.RequiresToken,
		GalleryName:       env.GalleryName,
	}
	if env.RemainingAttempts != nil {
		apiErr.RemainingAttempts = *env.RemainingAttempts
	}
	return apiErr
}

// request describes one API call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	token  string // bearer token, optional
}

// do performs the request and decodes the envelope. A returned error is
// either a *Error (structured backend rejection, StatusCode != 0) or a
// wrapped transport error (StatusCode 0 semantics: indeterminate outcome).
func (c *Client) do(ctx context.Context, req request) (*envelope, error) {
	fullURL := c.baseURL + req.path
	if len(req.query) > 0 {
		fullURL += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	for k, v := range c.deviceHeaders {
		httpReq.Header.Set(k, v)
	}

	c.logger.Debug().Str("method", req.method).Str("path", req.path).Msg("api request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized && isAdminPath(req.path) && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Non-JSON body (proxy error page, 5xx HTML). Treated as a
		// transport-level failure: indeterminate, never TokenInvalid.
		return nil, fmt.Errorf("unexpected response from %s (status %d): %w", req.path, resp.StatusCode, err)
	}

	if !env.Success {
		return &env, errorFromEnvelope(resp.StatusCode, &env)
	}

	return &env, nil
}

// decodeData unmarshals the envelope data field into out.
func decodeData(env *envelope, out any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// isAdminPath reports whether a path belongs to the admin namespace. The
// 401 hook must not fire for unrelated endpoints.
func isAdminPath(path string) bool {
	return strings.HasPrefix(path, "/api/admin/") ||
		strings.HasPrefix(path, "/api/gallery-site/admin/")
}
