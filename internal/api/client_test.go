package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNew_ValidatesBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") expected error, got nil")
	}

	client, err := New("http://example.com/")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := client.BaseURL(); got != "http://example.com" {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", got)
	}
}

func TestDo_DeviceHeadersAndBearer(t *testing.T) {
	var gotAuth, gotDevice, gotPlatform string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotDevice = r.Header.Get("X-Device-Id")
		gotPlatform = r.Header.Get("X-Platform")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "valid": true})
	})

	client := newTestClient(t, handler, WithDeviceHeaders(map[string]string{
		"X-Device-Id": "dev-1234",
		"X-Platform":  "cli",
	}))

	if _, err := client.VerifyToken(context.Background(), "tok-abc"); err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}

	if gotAuth != "Bearer tok-abc" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotDevice != "dev-1234" {
		t.Errorf("X-Device-Id = %q, want dev-1234", gotDevice)
	}
	if gotPlatform != "cli" {
		t.Errorf("X-Platform = %q, want cli", gotPlatform)
	}
}

func TestVerifyToken_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		wantInfo    bool
		wantInvalid bool
		wantErr     bool
	}{
		{
			name: "valid token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{
					"success": true,
					"valid":   true,
					"data": map[string]any{
						"upload_count":      3,
						"upload_limit":      10,
						"remaining_uploads": 7,
						"can_upload":        true,
					},
				})
			},
			wantInfo: true,
		},
		{
			name: "explicitly invalid",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{
					"success": false,
					"valid":   false,
					"reason":  "token expired",
				})
			},
			wantInvalid: true,
			wantErr:     true,
		},
		{
			name: "invalid despite success flag",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{
					"success": true,
					"valid":   false,
				})
			},
			wantInvalid: true,
			wantErr:     true,
		},
		{
			name: "missing valid field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"success": true})
			},
			wantInvalid: true,
			wantErr:     true,
		},
		{
			// The backend's exception handler replies 500 with the same
			// valid:false envelope; that must never count as an explicit
			// invalidation or the vault would evict the token.
			name: "server error with valid false is indeterminate",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, map[string]any{
					"success": false,
					"valid":   false,
					"error":   "database is locked",
				})
			},
			wantErr: true,
		},
		{
			name: "bad request with valid false is indeterminate",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"success": false,
					"valid":   false,
					"error":   "token is required",
				})
			},
			wantErr: true,
		},
		{
			name: "non-JSON gateway error is indeterminate",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("<html>502 Bad Gateway</html>"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			info, err := client.VerifyToken(context.Background(), "tok")

			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantInfo {
				if info == nil || info.RemainingUploads != 7 {
					t.Errorf("VerifyToken() info = %+v, want remaining 7", info)
				}
			}
			if got := IsTokenInvalid(err); got != tt.wantInvalid {
				t.Errorf("IsTokenInvalid() = %v, want %v", got, tt.wantInvalid)
			}
		})
	}
}

func TestVerifyToken_RejectionReason(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"valid":   false,
			"reason":  "token revoked",
		})
	})
	client := newTestClient(t, handler)

	_, err := client.VerifyToken(context.Background(), "tok")
	apiErr := AsError(err)
	if apiErr == nil {
		t.Fatalf("VerifyToken() error = %v, want *Error", err)
	}
	if apiErr.Message != "token revoked" {
		t.Errorf("Message = %q, want reason carried through", apiErr.Message)
	}
}

func TestListUploads_DecodesHistoryItems(t *testing.T) {
	var gotQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"uploads": []map[string]any{
					{
						"encrypted_id":      "enc-1",
						"original_filename": "cat.png",
						"file_size":         11264,
						"mime_type":         "image/png",
						"created_at":        "2026-08-30 12:00:00",
						"image_url":         "https://img.example.com/image/enc-1",
						"cdn_cached":        1,
					},
				},
				"total_uploads":     4,
				"upload_limit":      10,
				"remaining_uploads": 6,
				"can_upload":        true,
				"page":              2,
				"limit":             1,
				"has_more":          true,
			},
		})
	})
	client := newTestClient(t, handler)

	data, err := client.ListUploads(context.Background(), "tok", 2, 1)
	if err != nil {
		t.Fatalf("ListUploads() error = %v", err)
	}

	if gotQuery != "limit=1&page=2" {
		t.Errorf("query = %q, want pagination passed through", gotQuery)
	}
	if len(data.Uploads) != 1 {
		t.Fatalf("len(Uploads) = %d, want 1", len(data.Uploads))
	}
	u := data.Uploads[0]
	if u.EncryptedID != "enc-1" || u.OriginalFilename != "cat.png" ||
		u.FileSize != 11264 || u.ImageURL != "https://img.example.com/image/enc-1" {
		t.Errorf("upload record = %+v, want backend fields decoded", u)
	}
	if data.RemainingUploads != 6 || !data.HasMore || data.UploadLimit != 10 {
		t.Errorf("counters = %+v, want remaining 6, limit 10, has_more", data)
	}
}

func TestUnauthorizedHook_AdminPathsOnly(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *Client) error
		wantFire bool
	}{
		{
			name: "admin session check fires",
			call: func(c *Client) error {
				_, err := c.AdminSessionCheck(context.Background())
				return err
			},
			wantFire: true,
		},
		{
			name: "token verify does not fire",
			call: func(c *Client) error {
				_, err := c.VerifyToken(context.Background(), "tok")
				return err
			},
			wantFire: false,
		},
		{
			name: "admin upload fires",
			call: func(c *Client) error {
				_, err := c.UploadFile(context.Background(), UploadModeAdmin, "", "a.png", strings.NewReader("x"))
				return err
			},
			wantFire: true,
		},
		{
			name: "token upload does not fire",
			call: func(c *Client) error {
				_, err := c.UploadFile(context.Background(), UploadModeToken, "tok", "a.png", strings.NewReader("x"))
				return err
			},
			wantFire: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"success": false,
					"error":   "unauthorized",
				})
			})

			fired := false
			client := newTestClient(t, handler, WithOnUnauthorized(func() { fired = true }))

			_ = tt.call(client)

			if fired != tt.wantFire {
				t.Errorf("onUnauthorized fired = %v, want %v", fired, tt.wantFire)
			}
		})
	}
}

func TestAdminLogin_LockoutFields(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"success":     false,
			"error":       "too many failed attempts",
			"locked":      true,
			"retry_after": 300,
		})
	})
	client := newTestClient(t, handler)

	_, err := client.AdminLogin(context.Background(), "admin", "wrong", false)
	apiErr := AsError(err)
	if apiErr == nil {
		t.Fatalf("AdminLogin() error = %v, want *Error", err)
	}
	if !apiErr.Locked {
		t.Error("Locked = false, want true")
	}
	if apiErr.RetryAfter != 300 {
		t.Errorf("RetryAfter = %d, want 300", apiErr.RetryAfter)
	}
	if apiErr.RemainingAttempts != -1 {
		t.Errorf("RemainingAttempts = %d, want -1 when backend omits it", apiErr.RemainingAttempts)
	}
}

func TestAdminLogin_RemainingAttempts(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success":            false,
			"error":              "invalid credentials",
			"remaining_attempts": 2,
		})
	})
	client := newTestClient(t, handler)

	_, err := client.AdminLogin(context.Background(), "admin", "wrong", false)
	apiErr := AsError(err)
	if apiErr == nil {
		t.Fatalf("AdminLogin() error = %v, want *Error", err)
	}
	if apiErr.RemainingAttempts != 2 {
		t.Errorf("RemainingAttempts = %d, want 2", apiErr.RemainingAttempts)
	}
	if apiErr.Locked {
		t.Error("Locked = true, want false")
	}
}

func TestAdminSessionCheck_RejectionIsValue(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   "not authenticated",
		})
	})
	client := newTestClient(t, handler)

	session, err := client.AdminSessionCheck(context.Background())
	if err != nil {
		t.Fatalf("AdminSessionCheck() error = %v, want structured rejection as value", err)
	}
	if session.Authenticated {
		t.Error("Authenticated = true, want false")
	}
}

func TestGenerateToken_OmitsUnsetOptions(t *testing.T) {
	var gotBody map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"token":        "tok-new",
				"upload_limit": 10,
				"expires_at":   "2026-09-30T00:00:00Z",
			},
		})
	})
	client := newTestClient(t, handler)

	limit := 25
	result, err := client.GenerateToken(context.Background(), GenerateTokenOptions{UploadLimit: &limit})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if result.Token != "tok-new" {
		t.Errorf("Token = %q, want tok-new", result.Token)
	}

	if _, ok := gotBody["expires_days"]; ok {
		t.Error("request body contains expires_days, want omitted when unset")
	}
	if got, ok := gotBody["upload_limit"]; !ok || got != float64(25) {
		t.Errorf("upload_limit = %v, want 25", got)
	}
}
