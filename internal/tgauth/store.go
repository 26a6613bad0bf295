// Package tgauth manages the Telegram-linked server session: login code
// flows, multi-device session listing and revocation, and the best-effort
// sync of identity-bound tokens into the local vault.
package tgauth

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/imgbed/imgbed/internal/api"
	"github.com/imgbed/imgbed/internal/device"
	"github.com/imgbed/imgbed/internal/vault"
)

// Backend is the slice of the API client this store needs. *api.Client
// satisfies it.
type Backend interface {
	TgRequestCode(ctx context.Context, username string) error
	TgVerifyCode(ctx context.Context, username, code string) error
	TgConsumeLoginLink(ctx context.Context, code string) error
	TgSession(ctx context.Context) (*api.TgUser, error)
	TgLogout(ctx context.Context) error
	TgGenerateWebCode(ctx context.Context) (*api.WebCode, error)
	TgCodeStatus(ctx context.Context, code string) (string, error)
	TgSyncTokens(ctx context.Context) ([]api.SyncedToken, error)
	TgSessions(ctx context.Context) (*api.SessionListData, error)
	TgRevokeSession(ctx context.Context, sessionID string) error
	TgHeartbeat(ctx context.Context) error
}

// Store tracks the Telegram session state. The server's cookie-based
// session is authoritative: every login-shaped operation re-checks the
// session instead of assuming success locally.
type Store struct {
	mu          sync.Mutex
	backend     Backend
	vault       *vault.Store
	fingerprint *device.Fingerprint
	logger      zerolog.Logger

	user        *api.TgUser
	loggedIn    bool
	onlineCount int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithVault enables token sync into the given vault.
func WithVault(v *vault.Store) Option {
	return func(s *Store) { s.vault = v }
}

// WithFingerprint supplies the local device identity used to synthesize
// the current session when the server's listing omits it.
func WithFingerprint(fp *device.Fingerprint) Option {
	return func(s *Store) { s.fingerprint = fp }
}

// New creates a Telegram auth store.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// User returns the cached identity, or nil when logged out.
func (s *Store) User() *api.TgUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsLoggedIn reports the cached session state.
func (s *Store) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// OnlineCount returns the cached number of active sessions.
func (s *Store) OnlineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onlineCount
}

// CheckSession asks the server who we are. Any failure, structured or
// transport-level, leaves the store logged out; the session cookie is the
// single source of truth.
func (s *Store) CheckSession(ctx context.Context) error {
	user, err := s.backend.TgSession(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || user == nil {
		s.user = nil
		s.loggedIn = false
		return nil
	}
	s.user = user
	s.loggedIn = true
	return nil
}

// RequestCode asks the bot to send a login code to the given username.
func (s *Store) RequestCode(ctx context.Context, username string) error {
	if err := s.backend.TgRequestCode(ctx, username); err != nil {
		return fmt.Errorf("failed to request login code: %w", err)
	}
	return nil
}

// VerifyCode redeems a login code, then re-checks the session rather than
// assuming the login took effect.
func (s *Store) VerifyCode(ctx context.Context, username, code string) error {
	if err := s.backend.TgVerifyCode(ctx, username, code); err != nil {
		return err
	}
	return s.CheckSession(ctx)
}

// ConsumeLoginLink redeems a one-time login-link code and re-checks the
// session.
func (s *Store) ConsumeLoginLink(ctx context.Context, code string) error {
	if err := s.backend.TgConsumeLoginLink(ctx, code); err != nil {
		return err
	}
	return s.CheckSession(ctx)
}

// GenerateWebCode starts the cross-device login flow.
func (s *Store) GenerateWebCode(ctx context.Context) (*api.WebCode, error) {
	return s.backend.TgGenerateWebCode(ctx)
}

// PollCodeStatus checks a cross-device login code once. Polling cadence
// and timeout are the caller's concern. A transition to "ok" means the
// session cookie is set, so the session is re-checked.
func (s *Store) PollCodeStatus(ctx context.Context, code string) (string, error) {
	status, err := s.backend.TgCodeStatus(ctx, code)
	if err != nil {
		return "", err
	}
	if status == api.CodeStatusOK {
		if err := s.CheckSession(ctx); err != nil {
			return status, err
		}
	}
	return status, nil
}

// Logout destroys the server session (best effort) and always clears
// local state.
func (s *Store) Logout(ctx context.Context) {
	if err := s.backend.TgLogout(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("server-side logout failed")
	}
	s.mu.Lock()
	s.user = nil
	s.loggedIn = false
	s.onlineCount = 0
	s.mu.Unlock()
}

// Heartbeat refreshes the session's last-seen timestamp. Failure is
// surfaced but never changes login state.
func (s *Store) Heartbeat(ctx context.Context) error {
	return s.backend.TgHeartbeat(ctx)
}

// SyncTokensToVault pulls every token the backend associates with the
// identity and merges each into the vault, trusting the server-supplied
// usage snapshots to avoid per-token verification round trips. If no token
// is active afterwards the first synced token is activated.
//
// This is a best-effort convenience sync: failures are logged and
// swallowed, never propagated.
func (s *Store) SyncTokensToVault(ctx context.Context) {
	if s.vault == nil {
		return
	}

	tokens, err := s.backend.TgSyncTokens(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("token sync failed")
		return
	}

	firstSyncedID := ""
	for _, t := range tokens {
		if t.Token == "" {
			continue
		}
		id, err := s.vault.MergeServerToken(t.Token, t.Description, t.Info())
		if err != nil {
			s.logger.Debug().Err(err).Msg("failed to merge synced token")
			continue
		}
		if firstSyncedID == "" {
			firstSyncedID = id
		}
	}

	if !s.vault.HasToken() && firstSyncedID != "" {
		if err := s.vault.SetActiveByID(ctx, firstSyncedID, true); err != nil {
			s.logger.Debug().Err(err).Msg("failed to activate synced token")
		}
	}
}
