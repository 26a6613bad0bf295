// Package adminauth manages the admin session: cookie-based login with
// structured lockout reporting, and server-authoritative restoration of a
// locally hinted session.
package adminauth

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/imgbed/imgbed/internal/api"
	"github.com/imgbed/imgbed/internal/localstate"
)

// State keys. Only a boolean marker and the display username are kept
// locally; the session itself lives in the server-set cookie.
const (
	hasSessionKey = "admin_has_session"
	usernameKey   = "admin_username"
)

// Backend is the slice of the API client this store needs. *api.Client
// satisfies it.
type Backend interface {
	AdminLogin(ctx context.Context, username, password string, rememberMe bool) (string, error)
	AdminLogout(ctx context.Context) error
	AdminSessionCheck(ctx context.Context) (*api.AdminSession, error)
	AdminUpdateCredentials(ctx context.Context, username, password string) error
}

// Store tracks admin authentication state. The local has-session marker is
// a hint only; the server's session check decides whether the admin is
// actually authenticated.
type Store struct {
	mu      sync.Mutex
	backend Backend
	state   *localstate.Store
	logger  zerolog.Logger

	username      string
	authenticated bool

	// inflight de-duplicates concurrent CheckAuth calls: followers wait
	// for the leader's result instead of issuing their own request.
	inflight chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates an admin auth store persisting its session hint in state.
func New(backend Backend, state *localstate.Store, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		state:   state,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsAuthenticated reports the current validated session state.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Username returns the display username of the logged-in admin.
func (s *Store) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Login authenticates against the backend. Lockout state reported by the
// server (locked, retry_after, remaining attempts) survives on the
// returned *api.Error for the caller to render.
func (s *Store) Login(ctx context.Context, username, password string, rememberMe bool) error {
	displayName, err := s.backend.AdminLogin(ctx, username, password, rememberMe)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.username = displayName
	s.authenticated = true
	s.mu.Unlock()

	s.persistHint(displayName)
	return nil
}

// Logout destroys the server session (best effort) and clears local state.
func (s *Store) Logout(ctx context.Context) {
	if err := s.backend.AdminLogout(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("server-side admin logout failed")
	}
	s.clearLocal()
}

// CheckAuth validates the session against the server. Concurrent calls
// collapse into one request; a transport failure conservatively counts as
// not authenticated.
func (s *Store) CheckAuth(ctx context.Context) bool {
	s.mu.Lock()
	if s.inflight != nil {
		ch := s.inflight
		s.mu.Unlock()
		<-ch
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.authenticated
	}
	ch := make(chan struct{})
	s.inflight = ch
	s.mu.Unlock()

	session, err := s.backend.AdminSessionCheck(ctx)
	authenticated := err == nil && session != nil && session.Authenticated

	s.mu.Lock()
	s.authenticated = authenticated
	if authenticated && session.Username != "" {
		s.username = session.Username
	}
	if !authenticated {
		s.username = ""
	}
	s.inflight = nil
	close(ch)
	s.mu.Unlock()

	return authenticated
}

// RestoreAuth restores a previous session on startup. The local marker is
// never trusted on its own: the server session check is authoritative, and
// a stale marker is removed when the server disagrees.
func (s *Store) RestoreAuth(ctx context.Context) bool {
	if s.state == nil || s.state.Get(hasSessionKey) != "true" {
		return false
	}

	if s.CheckAuth(ctx) {
		return true
	}

	s.clearLocal()
	return false
}

// HandleUnauthorized reacts to a 401 on an admin endpoint: the session is
// gone server-side, so local state is cleared. Wire this as the API
// client's unauthorized hook.
func (s *Store) HandleUnauthorized() {
	s.logger.Info().Msg("admin session rejected by server, logging out")
	s.clearLocal()
}

// UpdateCredentials changes the admin username and/or password, keeping
// the local display name in sync.
func (s *Store) UpdateCredentials(ctx context.Context, username, password string) error {
	if err := s.backend.AdminUpdateCredentials(ctx, username, password); err != nil {
		return err
	}

	if username != "" {
		s.mu.Lock()
		s.username = username
		s.mu.Unlock()
		s.persistHint(username)
	}
	return nil
}

func (s *Store) persistHint(username string) {
	if s.state == nil {
		return
	}
	if err := s.state.Set(hasSessionKey, "true"); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist session marker")
	}
	if err := s.state.Set(usernameKey, username); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist username")
	}
}

func (s *Store) clearLocal() {
	s.mu.Lock()
	s.username = ""
	s.authenticated = false
	s.mu.Unlock()

	if s.state != nil {
		if err := s.state.Delete(hasSessionKey, usernameKey); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear session marker")
		}
	}
}
