package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// VerifyToken asks the backend whether a bearer token is valid and returns
// its usage snapshot.
//
// Error semantics matter here: a *Error with TokenInvalid set means the
// backend explicitly rejected the credential, while any other error is an
// indeterminate outcome (network, 5xx) after which the token must be kept.
func (c *Client) VerifyToken(ctx context.Context, token string) (*TokenInfo, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}

	env, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/token/verify",
		token:  token,
	})
	if err != nil {
		// valid:false only counts as an explicit invalidation on a 2xx
		// reply. The backend's exception handler emits the same envelope
		// with a 5xx, and a 4xx means the request itself was rejected;
		// both stay indeterminate.
		if apiErr := AsError(err); apiErr != nil &&
			apiErr.StatusCode >= 200 && apiErr.StatusCode < 300 &&
			env != nil && env.Valid != nil && !*env.Valid {
			return nil, invalidTokenError(env.Reason)
		}
		return nil, err
	}
	if env.Valid == nil || !*env.Valid {
		return nil, invalidTokenError(env.Reason)
	}

	var info TokenInfo
	if err := decodeData(env, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func invalidTokenError(reason string) *Error {
	if reason == "" {
		reason = "token is invalid or does not exist"
	}
	return &Error{StatusCode: http.StatusOK, Message: reason, TokenInvalid: true, RemainingAttempts: -1}
}

// GenerateToken mints a new guest token. Unset options fall back to the
// backend's defaults.
func (c *Client) GenerateToken(ctx context.Context, opts GenerateTokenOptions) (*TokenGenerateResult, error) {
	body := map[string]any{}
	if opts.UploadLimit != nil {
		body["upload_limit"] = *opts.UploadLimit
	}
	if opts.ExpiresDays != nil {
		body["expires_days"] = *opts.ExpiresDays
	}
	if opts.Description != "" {
		body["description"] = opts.Description
	}

	env, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/token/generate",
		body:   body,
	})
	if err != nil {
		return nil, err
	}

	var result TokenGenerateResult
	if err := decodeData(env, &result); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, fmt.Errorf("backend returned no token")
	}
	return &result, nil
}

// DeleteToken removes a token server-side, optionally cascading to its
// uploaded images.
func (c *Client) DeleteToken(ctx context.Context, token string, deleteImages bool) error {
	query := url.Values{}
	if deleteImages {
		query.Set("delete_images", "true")
	}

	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/api/auth/token",
		query:  query,
		token:  token,
	})
	return err
}

// UpdateTokenDescription changes a token's album description server-side.
func (c *Client) UpdateTokenDescription(ctx context.Context, token, description string) error {
	_, err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/api/auth/token",
		token:  token,
		body:   map[string]string{"description": description},
	})
	return err
}

// ListUploads returns the paginated upload history for a token, including
// refreshed usage counters.
func (c *Client) ListUploads(ctx context.Context, token string, page, limit int) (*UploadsData, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	env, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/auth/uploads",
		query:  query,
		token:  token,
	})
	if err != nil {
		return nil, err
	}

	var data UploadsData
	if err := decodeData(env, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
