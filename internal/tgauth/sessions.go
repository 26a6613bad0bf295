package tgauth

import (
	"context"
	"fmt"
	"time"

	"github.com/imgbed/imgbed/internal/api"
	"github.com/imgbed/imgbed/internal/device"
)

// FetchSessions lists all server-known device sessions for the identity.
//
// Normalization: exactly one session is flagged current, matched by the
// server's current_session_id. If the listing contains no current entry
// (e.g. the first heartbeat has not landed yet), a placeholder for this
// device is synthesized from the local fingerprint so callers can always
// show "this device". Generic server-supplied device names are replaced
// with the locally computed label.
func (s *Store) FetchSessions(ctx context.Context) (*api.SessionListData, error) {
	data, err := s.backend.TgSessions(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = &api.SessionListData{}
	}

	hasCurrent := false
	for i := range data.Sessions {
		item := &data.Sessions[i]
		if data.CurrentSessionID != "" {
			item.IsCurrent = item.SessionID == data.CurrentSessionID
		}
		if item.IsCurrent {
			hasCurrent = true
		}
		parsed := device.ParseUserAgent(item.UserAgent)
		item.DeviceName = device.NormalizeDeviceName(item.DeviceName, parsed)
	}

	if !hasCurrent {
		data.Sessions = append(data.Sessions, s.synthesizeCurrentSession())
	}

	data.Count = len(data.Sessions)

	s.mu.Lock()
	s.onlineCount = data.Count
	s.mu.Unlock()

	return data, nil
}

// RevokeSession removes a session server-side, then drops it from the
// cached count. Revoking the session the client believes is its own is
// allowed here; warning the user first is the caller's responsibility.
func (s *Store) RevokeSession(ctx context.Context, sessionID string) error {
	if err := s.backend.TgRevokeSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.mu.Lock()
	if s.onlineCount > 0 {
		s.onlineCount--
	}
	s.mu.Unlock()
	return nil
}

// synthesizeCurrentSession builds the placeholder entry for this device
// when the server has not recorded the session yet.
func (s *Store) synthesizeCurrentSession() api.SessionItem {
	now := time.Now().UTC().Format(time.RFC3339)
	item := api.SessionItem{
		SessionID:  "local-current",
		DeviceName: "Current device",
		Platform:   "web",
		CreatedAt:  now,
		LastSeenAt: now,
		IsCurrent:  true,
	}
	if s.fingerprint != nil {
		item.SessionID = "local-" + s.fingerprint.DeviceID
		item.DeviceID = s.fingerprint.DeviceID
		item.DeviceName = s.fingerprint.DeviceLabel
		item.DeviceLabel = s.fingerprint.DeviceLabel
		item.OSName = s.fingerprint.OSName
		item.BrowserName = s.fingerprint.BrowserName
		item.BrowserVersion = s.fingerprint.BrowserVersion
		item.Platform = s.fingerprint.Platform
	}
	return item
}
