package api

import "strconv"

// TokenInfo is the server's verification snapshot for a bearer token.
type TokenInfo struct {
	UploadCount      int    `json:"upload_count"`
	UploadLimit      int    `json:"upload_limit"`
	RemainingUploads int    `json:"remaining_uploads"`
	CanUpload        bool   `json:"can_upload"`
	ExpiresAt        string `json:"expires_at"`
	CreatedAt        string `json:"created_at"`
	LastUsed         string `json:"last_used,omitempty"`
	Description      string `json:"description,omitempty"`
	TgUserID         int64  `json:"tg_user_id,omitempty"`
}

// TokenGenerateResult is returned when the backend mints a new token.
type TokenGenerateResult struct {
	Token       string `json:"token"`
	UploadLimit int    `json:"upload_limit"`
	ExpiresAt   string `json:"expires_at"`
	Description string `json:"description,omitempty"`
}

// GenerateTokenOptions are the optional parameters for token generation.
// Nil fields are omitted so the backend applies its own defaults.
type GenerateTokenOptions struct {
	UploadLimit *int
	ExpiresDays *int
	Description string
}

// UploadsData is the paginated upload history for a token.
type UploadsData struct {
	Uploads          []UploadRecord `json:"uploads"`
	TotalUploads     int            `json:"total_uploads"`
	UploadLimit      int            `json:"upload_limit"`
	RemainingUploads int            `json:"remaining_uploads"`
	CanUpload        bool           `json:"can_upload"`
	Page             int            `json:"page"`
	Limit            int            `json:"limit"`
	HasMore          bool           `json:"has_more"`
}

// UploadRecord is one uploaded file as known to the backend.
type UploadRecord struct {
	EncryptedID      string `json:"encrypted_id"`
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`
	MimeType         string `json:"mime_type"`
	CreatedAt        string `json:"created_at"`
	ImageURL         string `json:"image_url"`
	CDNCached        int    `json:"cdn_cached"`
}

// TgUser is the Telegram-linked identity behind a session cookie.
type TgUser struct {
	TgUserID   int64  `json:"tg_user_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	TokenCount int    `json:"token_count"`
	MaxTokens  int    `json:"max_tokens"`
}

// DisplayName returns the best human-readable label for the identity.
func (u *TgUser) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "tg:" + strconv.FormatInt(u.TgUserID, 10)
}

// WebCode is a cross-device login code plus the bot that consumes it.
type WebCode struct {
	Code        string `json:"code"`
	BotUsername string `json:"bot_username"`
}

// CodeStatus values for the cross-device login poll.
const (
	CodeStatusPending = "pending"
	CodeStatusOK      = "ok"
	CodeStatusExpired = "expired"
)

// SyncedToken is a full token record returned by the identity token sync.
type SyncedToken struct {
	Token            string `json:"token"`
	Description      string `json:"description"`
	UploadCount      int    `json:"upload_count"`
	UploadLimit      int    `json:"upload_limit"`
	RemainingUploads int    `json:"remaining_uploads"`
	CanUpload        bool   `json:"can_upload"`
	ExpiresAt        string `json:"expires_at"`
	CreatedAt        string `json:"created_at"`
	LastUsed         string `json:"last_used,omitempty"`
	TgUserID         int64  `json:"tg_user_id,omitempty"`
}

// Info converts the synced record into a cached verification snapshot.
func (t *SyncedToken) Info() *TokenInfo {
	return &TokenInfo{
		UploadCount:      t.UploadCount,
		UploadLimit:      t.UploadLimit,
		RemainingUploads: t.RemainingUploads,
		CanUpload:        t.CanUpload,
		ExpiresAt:        t.ExpiresAt,
		CreatedAt:        t.CreatedAt,
		LastUsed:         t.LastUsed,
		Description:      t.Description,
		TgUserID:         t.TgUserID,
	}
}

// SessionItem is one server-known device session.
type SessionItem struct {
	SessionID      string `json:"session_id"`
	DeviceID       string `json:"device_id"`
	DeviceName     string `json:"device_name"`
	DeviceLabel    string `json:"device_label,omitempty"`
	OSName         string `json:"os_name,omitempty"`
	BrowserName    string `json:"browser_name,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	Platform       string `json:"platform"`
	IPAddress      string `json:"ip_address"`
	UserAgent      string `json:"user_agent"`
	CreatedAt      string `json:"created_at"`
	LastSeenAt     string `json:"last_seen_at"`
	ExpiresAt      string `json:"expires_at"`
	IsCurrent      bool   `json:"is_current"`
}

// SessionListData is the full session listing for an identity.
type SessionListData struct {
	Sessions         []SessionItem `json:"sessions"`
	CurrentSessionID string        `json:"current_session_id,omitempty"`
	Count            int           `json:"count"`
}

// AdminSession is the result of an admin session check.
type AdminSession struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username"`
}

// GalleryImage is one image of a share-token gallery page.
type GalleryImage struct {
	EncryptedID      string `json:"encrypted_id"`
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`
	MimeType         string `json:"mime_type"`
	CreatedAt        string `json:"created_at"`
	AddedAt          string `json:"added_at,omitempty"`
	ImageURL         string `json:"image_url"`
	CDNCached        int    `json:"cdn_cached"`
	CDNURL           string `json:"cdn_url,omitempty"`
}

// SharedGalleryInfo is the gallery header of a shared gallery page.
type SharedGalleryInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageCount  int    `json:"image_count"`
}

// SharedGalleryData is one page of a gallery viewed through its share
// token.
type SharedGalleryData struct {
	Gallery SharedGalleryInfo `json:"gallery"`
	Images  []GalleryImage    `json:"images"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
	HasMore bool              `json:"has_more"`
}

// PublicGallery is one entry of the public gallery site index.
type PublicGallery struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageCount  int    `json:"image_count"`
	CoverURL    string `json:"cover_url,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// PublicGalleryList is a page of the gallery site index.
type PublicGalleryList struct {
	Items   []PublicGallery `json:"items"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
	HasMore bool            `json:"has_more"`
}

// PublicGalleryImage is one image of a gallery site detail page. Unlike
// shared gallery pages the backend exposes the image location under "url".
type PublicGalleryImage struct {
	EncryptedID      string `json:"encrypted_id"`
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`
	MimeType         string `json:"mime_type"`
	CreatedAt        string `json:"created_at"`
	AddedAt          string `json:"added_at,omitempty"`
	URL              string `json:"url"`
}

// PublicGalleryImages is the paginated image list of a gallery site
// detail page.
type PublicGalleryImages struct {
	Items   []PublicGalleryImage `json:"items"`
	Total   int                  `json:"total"`
	Page    int                  `json:"page"`
	PerPage int                  `json:"per_page"`
	HasMore bool                 `json:"has_more"`
}

// PublicGalleryDetail is one gallery of the public gallery site with a
// page of its images.
type PublicGalleryDetail struct {
	Gallery PublicGallery       `json:"gallery"`
	Images  PublicGalleryImages `json:"images"`
}

// UploadResult is the backend's response to a file upload. Size is the
// human-formatted string the backend renders ("11.0 KB").
type UploadResult struct {
	URL              string `json:"url"`
	FileName         string `json:"filename"`
	Size             string `json:"size"`
	UploadTime       string `json:"upload_time"`
	RemainingUploads int    `json:"remaining_uploads,omitempty"`
}
