package api

import (
	"context"
	"fmt"
	"net/http"
)

// AdminLogin authenticates the admin user. On success the backend sets a
// session cookie on this client's jar and returns the display username.
//
// A failed login may carry structured lockout state; it is preserved on the
// returned *Error (Locked, RetryAfter, RemainingAttempts) so the caller can
// render it instead of a generic message.
func (c *Client) AdminLogin(ctx context.Context, username, password string, rememberMe bool) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("username and password are required")
	}

	env, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/admin/login",
		body: map[string]any{
			"username":    username,
			"password":    password,
			"remember_me": rememberMe,
		},
	})
	if err != nil {
		return "", err
	}

	var data struct {
		Username string `json:"username"`
	}
	if err := decodeData(env, &data); err != nil {
		return "", err
	}
	if data.Username == "" {
		data.Username = username
	}
	return data.Username, nil
}

// AdminLogout destroys the admin session server-side.
func (c *Client) AdminLogout(ctx context.Context) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/admin/logout",
	})
	return err
}

// AdminSessionCheck validates the admin session cookie against the server.
// A structured "not authenticated" reply is returned as a value, not an
// error; transport failures are errors so the caller can treat them
// conservatively.
func (c *Client) AdminSessionCheck(ctx context.Context) (*AdminSession, error) {
	env, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/admin/session",
	})
	if err != nil {
		if apiErr := AsError(err); apiErr != nil {
			// Structured rejection: the session is simply not valid.
			return &AdminSession{Authenticated: false}, nil
		}
		return nil, err
	}

	var session AdminSession
	if err := decodeData(env, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// AdminUpdateCredentials changes the admin username and/or password.
func (c *Client) AdminUpdateCredentials(ctx context.Context, username, password string) error {
	if username == "" && password == "" {
		return fmt.Errorf("provide a new username or password")
	}
	if username != "" && len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if password != "" && len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}

	body := map[string]string{}
	if username != "" {
		body["username"] = username
	}
	if password != "" {
		body["password"] = password
	}

	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/admin/update_credentials",
		body:   body,
	})
	return err
}
