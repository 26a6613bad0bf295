// Package vault stores bearer tokens with metadata in a durable local
// collection and exposes the active token as a flattened view.
package vault

import (
	"time"

	"github.com/imgbed/imgbed/internal/api"
)

// Version is the persisted vault format version.
const Version = 1

// Item is one remembered token with its metadata and cached verification
// snapshot.
type Item struct {
	ID             string         `json:"id"`
	Token          string         `json:"token"`
	AlbumName      string         `json:"albumName"`
	AddedAt        time.Time      `json:"addedAt"`
	LastSelectedAt *time.Time     `json:"lastSelectedAt,omitempty"`
	LastVerifiedAt *time.Time     `json:"lastVerifiedAt,omitempty"`
	TokenInfo      *api.TokenInfo `json:"tokenInfo,omitempty"`
}

// persisted is the on-disk vault blob. Tokens inside items are obfuscated
// before serialization and restored on load.
type persisted struct {
	Version  int    `json:"version"`
	ActiveID string `json:"activeId,omitempty"`
	Items    []Item `json:"items"`
}

// maxAlbumNameLen caps user-supplied album labels.
const maxAlbumNameLen = 50

func clampAlbumName(name string) string {
	runes := []rune(name)
	if len(runes) > maxAlbumNameLen {
		return string(runes[:maxAlbumNameLen])
	}
	return name
}

// MaskToken renders a token for display, keeping the first 8 and last 4
// characters of anything long enough to mask.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:8] + "…" + token[len(token)-4:]
}
