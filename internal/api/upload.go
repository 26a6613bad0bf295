package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadMode selects the endpoint and credential an upload is attributed
// to. Token uploads land in the token's album, admin uploads in the admin
// pool, anonymous uploads are unattributed.
type UploadMode string

const (
	UploadModeToken     UploadMode = "token"
	UploadModeAdmin     UploadMode = "admin"
	UploadModeAnonymous UploadMode = "anonymous"
)

func uploadPath(mode UploadMode) (string, error) {
	switch mode {
	case UploadModeToken:
		return "/api/auth/upload", nil
	case UploadModeAdmin:
		return "/api/admin/upload", nil
	case UploadModeAnonymous:
		return "/api/upload", nil
	default:
		return "", fmt.Errorf("unknown upload mode %q", mode)
	}
}

// UploadFile sends one file as multipart form data. In token mode the
// bearer token is required; in admin mode the session cookie carries the
// credential. Cancellation is per call: cancel the context to abort this
// upload without affecting others.
func (c *Client) UploadFile(ctx context.Context, mode UploadMode, token, fileName string, content io.Reader) (*UploadResult, error) {
	if fileName == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if mode == UploadModeToken && token == "" {
		return nil, fmt.Errorf("token is required for token uploads")
	}
	path, err := uploadPath(mode)
	if err != nil {
		return nil, err
	}

	// Stream the multipart body through a pipe so large files are not
	// buffered in memory.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(writer.Close())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if mode == UploadModeToken {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range c.deviceHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload of %s failed: %w", fileName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if mode == UploadModeAdmin && resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unexpected upload response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		return nil, errorFromEnvelope(resp.StatusCode, &env)
	}

	var result UploadResult
	if err := decodeData(&env, &result); err != nil {
		return nil, err
	}
	if result.FileName == "" {
		result.FileName = fileName
	}
	return &result, nil
}
