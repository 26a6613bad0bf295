package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/imgbed/imgbed/internal/api"
	"github.com/imgbed/imgbed/internal/localstate"
)

// verifyFreshness is how long a cached verification snapshot suppresses
// network calls.
const verifyFreshness = 5 * time.Minute

// Legacy single-token state keys, imported once on restore then deleted.
const (
	legacyTokenKey   = "guest_token"
	legacyIsGuestKey = "is_guest"
)

// Backend is the slice of the API client the vault needs. *api.Client
// satisfies it.
type Backend interface {
	VerifyToken(ctx context.Context, token string) (*api.TokenInfo, error)
	GenerateToken(ctx context.Context, opts api.GenerateTokenOptions) (*api.TokenGenerateResult, error)
	DeleteToken(ctx context.Context, token string, deleteImages bool) error
	UpdateTokenDescription(ctx context.Context, token, description string) error
	ListUploads(ctx context.Context, token string, page, limit int) (*api.UploadsData, error)
}

// Store is the token vault: zero or more bearer tokens with metadata,
// persisted as one JSON blob, plus the flattened active-token view.
type Store struct {
	mu       sync.Mutex
	filePath string
	backend  Backend
	state    *localstate.Store
	logger   zerolog.Logger
	now      func() time.Time

	data persisted

	// Flattened view of the item matching data.ActiveID, recomputed after
	// every mutation.
	activeToken string
	activeInfo  *api.TokenInfo
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithLegacyState provides the key/value state holding legacy single-token
// entries to migrate on restore.
func WithLegacyState(state *localstate.Store) Option {
	return func(s *Store) { s.state = state }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a vault persisted at filePath. Call Restore to load existing
// state.
func New(filePath string, backend Backend, opts ...Option) *Store {
	s := &Store{
		filePath: filePath,
		backend:  backend,
		logger:   zerolog.Nop(),
		now:      time.Now,
		data:     persisted{Version: Version},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddOptions controls AddToken behavior.
type AddOptions struct {
	// AlbumName, when non-nil, sets or replaces the item's label.
	AlbumName *string
	// MakeActive: nil means default behavior (new items become active,
	// existing items keep the current selection).
	MakeActive *bool
	// Verify checks the token against the backend before touching the
	// vault; a confirmed-invalid token is rejected without mutation.
	Verify bool
}

// Items returns a copy of the vault items in order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, len(s.data.Items))
	copy(items, s.data.Items)
	return items
}

// ActiveID returns the id of the selected item, or "".
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ActiveID
}

// ActiveItem returns a copy of the selected item.
func (s *Store) ActiveItem() (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item := s.findLocked(s.data.ActiveID); item != nil {
		return *item, true
	}
	return Item{}, false
}

// Token returns the active bearer token, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeToken
}

// Info returns the cached verification snapshot for the active token.
func (s *Store) Info() *api.TokenInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeInfo
}

// HasToken reports whether a token is currently active.
func (s *Store) HasToken() bool {
	return s.Token() != ""
}

// AlbumLabel renders the active item's display label.
func (s *Store) AlbumLabel() string {
	item, ok := s.ActiveItem()
	if !ok {
		return ""
	}
	if item.AlbumName != "" {
		return item.AlbumName
	}
	return "Untitled album"
}

// AddToken upserts a token by exact string match. Existing items get their
// label (and, when verified, cached snapshot) refreshed in place; new
// tokens are prepended and become active unless opts.MakeActive is false.
// Returns the vault item id.
func (s *Store) AddToken(ctx context.Context, token string, opts AddOptions) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", fmt.Errorf("token must not be empty")
	}

	// Verify before mutating: a rejected token never enters the vault.
	var verified *api.TokenInfo
	if opts.Verify {
		info, err := s.backend.VerifyToken(ctx, trimmed)
		if err != nil {
			return "", err
		}
		verified = info
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if existing := s.findByTokenLocked(trimmed); existing != nil {
		if opts.AlbumName != nil {
			existing.AlbumName = clampAlbumName(*opts.AlbumName)
		}
		if opts.MakeActive != nil && *opts.MakeActive {
			s.data.ActiveID = existing.ID
			existing.LastSelectedAt = &now
		}
		if verified != nil {
			existing.TokenInfo = verified
			existing.LastVerifiedAt = &now
		}
		if err := s.persistLocked(); err != nil {
			return "", err
		}
		s.syncActiveLocked()
		return existing.ID, nil
	}

	item := Item{
		ID:      uuid.NewString(),
		Token:   trimmed,
		AddedAt: now,
	}
	if opts.AlbumName != nil {
		item.AlbumName = clampAlbumName(*opts.AlbumName)
	}
	if verified != nil {
		item.TokenInfo = verified
		item.LastVerifiedAt = &now
	}

	s.data.Items = append([]Item{item}, s.data.Items...)
	if opts.MakeActive == nil || *opts.MakeActive {
		s.data.ActiveID = item.ID
		s.data.Items[0].LastSelectedAt = &now
	}

	if err := s.persistLocked(); err != nil {
		return "", err
	}
	s.syncActiveLocked()
	return item.ID, nil
}

// MergeServerToken upserts a token the backend already vouches for,
// trusting its usage snapshot instead of spending a verification round
// trip. Existing items keep their selection; new items are prepended
// without becoming active. Returns the vault item id.
func (s *Store) MergeServerToken(token, description string, info *api.TokenInfo) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", fmt.Errorf("token must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing := s.findByTokenLocked(trimmed); existing != nil {
		if description != "" {
			existing.AlbumName = clampAlbumName(description)
		}
		if info != nil {
			existing.TokenInfo = info
			existing.LastVerifiedAt = &now
		}
		if err := s.persistLocked(); err != nil {
			return "", err
		}
		s.syncActiveLocked()
		return existing.ID, nil
	}

	item := Item{
		ID:        uuid.NewString(),
		Token:     trimmed,
		AlbumName: clampAlbumName(description),
		AddedAt:   now,
	}
	if info != nil {
		item.TokenInfo = info
		item.LastVerifiedAt = &now
	}
	s.data.Items = append([]Item{item}, s.data.Items...)

	if err := s.persistLocked(); err != nil {
		return "", err
	}
	s.syncActiveLocked()
	return item.ID, nil
}

// SetActiveByID switches the selection. With verify set the newly active
// token is re-verified (subject to the freshness cache).
func (s *Store) SetActiveByID(ctx context.Context, id string, verify bool) error {
	s.mu.Lock()
	item := s.findLocked(id)
	if item == nil {
		s.mu.Unlock()
		return fmt.Errorf("token %q not found in vault", id)
	}
	now := s.now()
	s.data.ActiveID = item.ID
	item.LastSelectedAt = &now
	err := s.persistLocked()
	s.syncActiveLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if verify {
		if _, err := s.Verify(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes an item. When the active item is removed the selection
// falls to the first remaining item, or none.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.data.Items {
		if s.data.Items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	removingActive := s.data.ActiveID == id
	s.data.Items = append(s.data.Items[:idx], s.data.Items[idx+1:]...)
	if removingActive {
		s.data.ActiveID = ""
		if len(s.data.Items) > 0 {
			s.data.ActiveID = s.data.Items[0].ID
		}
	}

	if err := s.persistLocked(); err != nil {
		return err
	}
	s.syncActiveLocked()
	return nil
}

// UpdateAlbumName renames an item's label locally.
func (s *Store) UpdateAlbumName(id, albumName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findLocked(id)
	if item == nil {
		return fmt.Errorf("token %q not found in vault", id)
	}
	item.AlbumName = clampAlbumName(albumName)
	return s.persistLocked()
}

// Verify checks the active token against the backend. A snapshot verified
// within the last five minutes is returned without a network call.
//
// Outcomes: fresh or confirmed-valid snapshot (cache refreshed), confirmed
// invalid (*api.Error with TokenInvalid — the item is NOT evicted here,
// that is the caller's decision), or indeterminate (network/server error,
// vault untouched).
func (s *Store) Verify(ctx context.Context) (*api.TokenInfo, error) {
	s.mu.Lock()
	token := s.activeToken
	if token == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("no active token")
	}

	if active := s.findLocked(s.data.ActiveID); active != nil &&
		active.LastVerifiedAt != nil && active.TokenInfo != nil &&
		s.now().Sub(*active.LastVerifiedAt) < verifyFreshness {
		info := active.TokenInfo
		s.activeInfo = info
		s.mu.Unlock()
		return info, nil
	}
	s.mu.Unlock()

	info, err := s.backend.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if active := s.findLocked(s.data.ActiveID); active != nil && active.Token == token {
		now := s.now()
		active.TokenInfo = info
		active.LastVerifiedAt = &now
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		// Only adopt the snapshot if the selection did not change while
		// the request was in flight.
		s.activeInfo = info
	}
	return info, nil
}

// RefreshInfo re-verifies the active token against the backend, bypassing
// the freshness cache. Use after operations that change the quota, such as
// uploads.
func (s *Store) RefreshInfo(ctx context.Context) (*api.TokenInfo, error) {
	s.mu.Lock()
	token := s.activeToken
	s.mu.Unlock()
	if token == "" {
		return nil, fmt.Errorf("no active token")
	}

	info, err := s.backend.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if active := s.findLocked(s.data.ActiveID); active != nil && active.Token == token {
		now := s.now()
		active.TokenInfo = info
		active.LastVerifiedAt = &now
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		s.activeInfo = info
	}
	return info, nil
}

// Generate mints a new token on the backend and stores it as the active
// item, reusing the generation response via immediate verification.
func (s *Store) Generate(ctx context.Context, opts api.GenerateTokenOptions) (*api.TokenGenerateResult, error) {
	result, err := s.backend.GenerateToken(ctx, opts)
	if err != nil {
		return nil, err
	}

	makeActive := true
	album := opts.Description
	if _, err := s.AddToken(ctx, result.Token, AddOptions{
		AlbumName:  &album,
		MakeActive: &makeActive,
		Verify:     true,
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// ClearActive deselects the active token without deleting any items.
func (s *Store) ClearActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ActiveID = ""
	if err := s.persistLocked(); err != nil {
		return err
	}
	s.syncActiveLocked()
	return nil
}

// Clear empties the vault locally. Used on logout.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Items = nil
	s.data.ActiveID = ""
	if err := s.persistLocked(); err != nil {
		return err
	}
	s.syncActiveLocked()
	return nil
}

// DeleteFromServer cascades one token's deletion to the backend and, on
// success, removes it locally.
func (s *Store) DeleteFromServer(ctx context.Context, id string, deleteImages bool) error {
	s.mu.Lock()
	item := s.findLocked(id)
	if item == nil {
		s.mu.Unlock()
		return nil
	}
	token := item.Token
	s.mu.Unlock()

	if err := s.backend.DeleteToken(ctx, token, deleteImages); err != nil {
		return err
	}
	return s.Remove(id)
}

// DeleteAllFromServer deletes every vault token server-side, tolerating
// per-item failures (a token may already be invalid), then prunes the
// local vault regardless of individual outcomes.
func (s *Store) DeleteAllFromServer(ctx context.Context, deleteImages bool) error {
	for _, item := range s.Items() {
		if err := s.backend.DeleteToken(ctx, item.Token, deleteImages); err != nil {
			s.logger.Debug().Str("id", item.ID).Err(err).Msg("server-side token delete failed, pruning locally anyway")
		}
	}
	return s.Clear()
}

// Uploads fetches the active token's upload history and folds the refreshed
// usage counters into the cached snapshot.
func (s *Store) Uploads(ctx context.Context, page, limit int) (*api.UploadsData, error) {
	token := s.Token()
	if token == "" {
		return nil, fmt.Errorf("no active token")
	}

	data, err := s.backend.ListUploads(ctx, token, page, limit)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if active := s.findLocked(s.data.ActiveID); active != nil && active.TokenInfo != nil {
		active.TokenInfo.UploadCount = data.TotalUploads
		active.TokenInfo.RemainingUploads = data.RemainingUploads
		active.TokenInfo.CanUpload = data.CanUpload
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		s.activeInfo = active.TokenInfo
	}
	return data, nil
}

// UpdateDescription changes the active token's album description on the
// backend, then mirrors it locally.
func (s *Store) UpdateDescription(ctx context.Context, description string) error {
	token := s.Token()
	if token == "" {
		return fmt.Errorf("no active token")
	}

	if err := s.backend.UpdateTokenDescription(ctx, token, description); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if active := s.findLocked(s.data.ActiveID); active != nil {
		active.AlbumName = clampAlbumName(description)
		if active.TokenInfo != nil {
			active.TokenInfo.Description = description
		}
		if err := s.persistLocked(); err != nil {
			return err
		}
	}
	if s.activeInfo != nil {
		s.activeInfo.Description = description
	}
	return nil
}

// Restore loads the persisted vault, migrates any legacy single-token
// state, and re-verifies the active token. The active item is evicted only
// on a confirmed server-side invalidation; network errors leave the vault
// untouched.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	if err := s.loadLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.importLegacyLocked()
	s.syncActiveLocked()
	hasToken := s.activeToken != ""
	s.mu.Unlock()

	if !hasToken {
		return nil
	}

	if _, err := s.Verify(ctx); err != nil {
		if api.IsTokenInvalid(err) {
			failedID := s.ActiveID()
			s.logger.Info().Str("id", failedID).Msg("active token rejected by server, removing from vault")
			if failedID != "" {
				return s.Remove(failedID)
			}
			return nil
		}
		// Indeterminate outcome: keep the token, surface nothing. The next
		// verification attempt will settle it.
		s.logger.Debug().Err(err).Msg("token verification inconclusive during restore")
	}
	return nil
}

// findLocked returns the item with the given id, or nil.
func (s *Store) findLocked(id string) *Item {
	if id == "" {
		return nil
	}
	for i := range s.data.Items {
		if s.data.Items[i].ID == id {
			return &s.data.Items[i]
		}
	}
	return nil
}

func (s *Store) findByTokenLocked(token string) *Item {
	for i := range s.data.Items {
		if s.data.Items[i].Token == token {
			return &s.data.Items[i]
		}
	}
	return nil
}

// syncActiveLocked recomputes the flattened active view.
func (s *Store) syncActiveLocked() {
	if active := s.findLocked(s.data.ActiveID); active != nil {
		s.activeToken = active.Token
		s.activeInfo = active.TokenInfo
		return
	}
	s.activeToken = ""
	s.activeInfo = nil
}

// importLegacyLocked migrates the pre-vault single-token format once, then
// deletes the legacy keys.
func (s *Store) importLegacyLocked() {
	if s.state == nil {
		return
	}
	legacyToken := strings.TrimSpace(s.state.Get(legacyTokenKey))
	legacyIsGuest := s.state.Get(legacyIsGuestKey) == "true"
	if legacyToken == "" || !legacyIsGuest {
		return
	}

	if s.findByTokenLocked(legacyToken) == nil {
		now := s.now()
		item := Item{
			ID:      uuid.NewString(),
			Token:   legacyToken,
			AddedAt: now,
		}
		s.data.Items = append([]Item{item}, s.data.Items...)
		s.data.ActiveID = item.ID
		if err := s.persistLocked(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist migrated legacy token")
			return
		}
	}

	if err := s.state.Delete(legacyTokenKey, legacyIsGuestKey); err != nil {
		s.logger.Warn().Err(err).Msg("failed to remove legacy token keys")
	}
}

// loadLocked reads the persisted blob, deobfuscates tokens, drops malformed
// items, and repairs a dangling active reference.
func (s *Store) loadLocked() error {
	if s.filePath == "" {
		return nil
	}

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read vault file: %w", err)
	}

	var stored persisted
	if err := json.Unmarshal(raw, &stored); err != nil {
		// A corrupt vault starts over rather than blocking startup.
		s.logger.Warn().Err(err).Msg("vault file is corrupt, starting empty")
		return nil
	}
	if stored.Version != Version {
		return nil
	}

	items := make([]Item, 0, len(stored.Items))
	for _, item := range stored.Items {
		if item.ID == "" {
			continue
		}
		item.Token = deobfuscateToken(strings.TrimSpace(item.Token))
		if item.Token == "" {
			continue
		}
		if item.AddedAt.IsZero() {
			item.AddedAt = s.now()
		}
		items = append(items, item)
	}

	activeID := stored.ActiveID
	if activeID != "" {
		found := false
		for i := range items {
			if items[i].ID == activeID {
				found = true
				break
			}
		}
		if !found {
			activeID = ""
			if len(items) > 0 {
				activeID = items[0].ID
			}
		}
	}

	s.data = persisted{Version: Version, ActiveID: activeID, Items: items}
	return nil
}

// persistLocked writes the vault blob with obfuscated tokens.
func (s *Store) persistLocked() error {
	if s.filePath == "" {
		return nil
	}

	toStore := persisted{
		Version:  s.data.Version,
		ActiveID: s.data.ActiveID,
		Items:    make([]Item, len(s.data.Items)),
	}
	copy(toStore.Items, s.data.Items)
	for i := range toStore.Items {
		toStore.Items[i].Token = obfuscateToken(toStore.Items[i].Token)
	}

	data, err := json.MarshalIndent(toStore, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal vault: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write vault file: %w", err)
	}
	return nil
}
