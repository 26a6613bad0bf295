package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestUploadFile_ModeRouting(t *testing.T) {
	tests := []struct {
		name     string
		mode     UploadMode
		token    string
		wantPath string
		wantAuth string
	}{
		{
			name:     "token mode",
			mode:     UploadModeToken,
			token:    "tok-1",
			wantPath: "/api/auth/upload",
			wantAuth: "Bearer tok-1",
		},
		{
			name:     "admin mode",
			mode:     UploadModeAdmin,
			wantPath: "/api/admin/upload",
		},
		{
			name:     "anonymous mode",
			mode:     UploadModeAnonymous,
			wantPath: "/api/upload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotAuth, gotFileName, gotContent string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")

				file, header, err := r.FormFile("file")
				if err != nil {
					t.Errorf("FormFile() error = %v", err)
				} else {
					gotFileName = header.Filename
					data, _ := io.ReadAll(file)
					gotContent = string(data)
					_ = file.Close()
				}

				// The backend formats size as a human-readable string.
				data := map[string]any{
					"url":         "https://img.example.com/f-1.png",
					"filename":    "photo.png",
					"size":        "11.0 B",
					"upload_time": "2026-08-30 12:00:00",
				}
				if tt.mode == UploadModeToken {
					data["remaining_uploads"] = 7
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"success": true,
					"data":    data,
				})
			})
			client := newTestClient(t, handler)

			result, err := client.UploadFile(context.Background(), tt.mode, tt.token, "photo.png", strings.NewReader("PNG payload"))
			if err != nil {
				t.Fatalf("UploadFile() error = %v", err)
			}

			if gotPath != tt.wantPath {
				t.Errorf("path = %q, want %q", gotPath, tt.wantPath)
			}
			if gotAuth != tt.wantAuth {
				t.Errorf("Authorization = %q, want %q", gotAuth, tt.wantAuth)
			}
			if gotFileName != "photo.png" {
				t.Errorf("multipart filename = %q, want photo.png", gotFileName)
			}
			if gotContent != "PNG payload" {
				t.Errorf("multipart content = %q", gotContent)
			}
			if result.FileName != "photo.png" {
				t.Errorf("FileName = %q, want photo.png", result.FileName)
			}
			if result.Size != "11.0 B" {
				t.Errorf("Size = %q, want formatted string passed through", result.Size)
			}
			if tt.mode == UploadModeToken && result.RemainingUploads != 7 {
				t.Errorf("RemainingUploads = %d, want 7", result.RemainingUploads)
			}
		})
	}
}

func TestUploadFile_Validation(t *testing.T) {
	client, err := New("http://localhost:1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := client.UploadFile(context.Background(), UploadModeToken, "", "a.png", strings.NewReader("x")); err == nil {
		t.Error("token mode without token: expected error")
	}
	if _, err := client.UploadFile(context.Background(), UploadModeAnonymous, "", "", strings.NewReader("x")); err == nil {
		t.Error("empty file name: expected error")
	}
	if _, err := client.UploadFile(context.Background(), UploadMode("ftp"), "", "a.png", strings.NewReader("x")); err == nil {
		t.Error("unknown mode: expected error")
	}
}

func TestUploadFile_QuotaExceeded(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"success": false,
			"error":   "upload limit reached",
		})
	})
	client := newTestClient(t, handler)

	_, err := client.UploadFile(context.Background(), UploadModeToken, "tok", "a.png", strings.NewReader("x"))
	apiErr := AsError(err)
	if apiErr == nil {
		t.Fatalf("UploadFile() error = %v, want *Error", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", apiErr.StatusCode)
	}
	if apiErr.TokenInvalid {
		t.Error("TokenInvalid = true, want false for quota rejection")
	}
}

func TestUploadFile_Canceled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	client := newTestClient(t, handler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.UploadFile(ctx, UploadModeAnonymous, "", "a.png", strings.NewReader("x")); err == nil {
		t.Error("UploadFile() with canceled context: expected error")
	}
}
