package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// TgRequestCode asks the backend to send a login code to the given Telegram
// username.
func (c *Client) TgRequestCode(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("telegram username is required")
	}
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/tg/request-code",
		body:   map[string]string{"tg_username": username},
	})
	return err
}

// TgVerifyCode redeems a login code. On success the backend sets the
// session cookie on this client's jar; the caller should re-check the
// session rather than assume login succeeded.
func (c *Client) TgVerifyCode(ctx context.Context, username, code string) error {
	if username == "" || code == "" {
		return fmt.Errorf("telegram username and code are required")
	}
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/tg/verify-code",
		body:   map[string]string{"tg_username": username, "code": code},
	})
	return err
}

// TgConsumeLoginLink redeems a one-time login-link code.
func (c *Client) TgConsumeLoginLink(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("login code is required")
	}
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/tg/login-link",
		body:   map[string]string{"code": code},
	})
	return err
}

// TgSession returns the identity behind the current session cookie.
func (c *Client) TgSession(ctx context.Context) (*TgUser, error) {
	env, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/auth/tg/session",
	})
	if err != nil {
		return nil, err
	}

	var user TgUser
	if err := decodeData(env, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TgLogout destroys the server-side session.
func (c *Client) TgLogout(ctx context.Context) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/tg/logout",
	})
	return err
}

// TgGenerateWebCode creates a cross-device login code to be consumed from
// the Telegram bot.
func (c *Client) TgGenerateWebCode(ctx context.Context) (*WebCode, error) {
	env, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/tg/web-code",
	})
	if err != nil {
		return nil, err
	}

	var code WebCode
	if err := decodeData(env, &code); err != nil {
		return nil, err
	}
	if code.Code == "" {
		return nil, fmt.Errorf("backend returned no code")
	}
	return &code, nil
}

// TgCodeStatus polls a cross-device login code. When the status flips to
// "ok" the backend has already set the session cookie on this response.
func (c *Client) TgCodeStatus(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("code is required")
	}

	query := url.Values{}
	query.Set("code", code)

	env, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/auth/tg/code-status",
		query:  query,
	})
	if err != nil {
		return "", err
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := decodeData(env, &data); err != nil {
		return "", err
	}
	if data.Status == "" {
		return CodeStatusExpired, nil
	}
	return data.Status, nil
}

// TgSyncTokens returns the full token records bound to the session's
// identity, including plaintext tokens and usage snapshots.
func (c *Client) TgSyncTokens(ctx context.Context) ([]SyncedToken, error) {
	env, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/auth/tg/sync-tokens",
	})
	if err != nil {
		return nil, err
	}

	var data struct {
		Tokens []SyncedToken `json:"tokens"`
	}
	if err := decodeData(env, &data); err != nil {
		return nil, err
	}
	return data.Tokens, nil
}

// TgSessions lists the server-known device sessions for the identity.
func (c *Client) TgSessions(ctx context.Context) (*SessionListData, error) {
	env, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/auth/tg/sessions",
	})
	if err != nil {
		return nil, err
	}

	var data SessionListData
	if err := decodeData(env, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// TgRevokeSession removes one device session server-side.
func (c *Client) TgRevokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/api/auth/tg/sessions/" + url.PathEscape(sessionID),
	})
	return err
}

// TgHeartbeat refreshes the current session's last-seen timestamp.
func (c *Client) TgHeartbeat(ctx context.Context) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/tg/heartbeat",
	})
	return err
}
