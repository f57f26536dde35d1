// Package contextstore implements the coordinator's durable per-session
// state: a write-through cache in front of a filesystem backup, per spec.md
// §4.1. Both Create and Update must succeed against both backends before
// the operation succeeds; Get consults the cache first and repopulates it
// on a filesystem fallback.
package contextstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/archiveflow/coordinator/apperrors"
	"github.com/archiveflow/coordinator/model"
)

// Store is the Context Store contract: Create, Get, Update, Delete, all
// backed by Cache (primary) and FileStore (backup).
type Store struct {
	cache     Cache
	files     *FileStore
	cacheTTL  time.Duration
	now       func() time.Time
}

// New constructs a Store. ttl is the default cache entry lifetime
// (spec.md default: 24h).
func New(cache Cache, files *FileStore, ttl time.Duration) *Store {
	return &Store{cache: cache, files: files, cacheTTL: ttl, now: time.Now}
}

// Create persists a brand-new session. Both the cache write and the
// filesystem write must succeed; failure of either surfaces to the caller.
func (s *Store) Create(ctx context.Context, session model.Session) (model.Session, error) {
	now := s.now().UTC()
	session.CreatedAt = now
	session.LastUpdated = now
	if session.SchemaVersion == 0 {
		session.SchemaVersion = model.CurrentSchemaVersion
	}
	if err := s.writeThrough(ctx, session); err != nil {
		return model.Session{}, err
	}
	return session, nil
}

// Get reads a session. Cache hit returns immediately. Cache miss reads the
// filesystem: if present, the cache is repopulated with the default TTL
// before returning; if absent, (nil, nil) is returned.
func (s *Store) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	cached, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}
	fromDisk, err := s.files.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if fromDisk == nil {
		return nil, nil
	}
	if err := s.cache.Set(ctx, sessionID, *fromDisk, s.cacheTTL); err != nil {
		return nil, err
	}
	return fromDisk, nil
}

// Update applies a partial overlay to the current session: field-level
// override, nested objects replaced wholesale. last_updated is refreshed to
// the current time. Returns apperrors.NotFoundError if the session does not
// exist.
func (s *Store) Update(ctx context.Context, sessionID string, overlay map[string]any) (model.Session, error) {
	current, err := s.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if current == nil {
		return model.Session{}, apperrors.NewNotFoundf("session %s not found", sessionID)
	}
	merged, err := applyOverlay(*current, overlay)
	if err != nil {
		return model.Session{}, apperrors.NewValidationf("invalid context overlay: %v", err)
	}
	merged.LastUpdated = s.now().UTC()
	if err := s.writeThrough(ctx, merged); err != nil {
		return model.Session{}, err
	}
	return merged, nil
}

// Delete removes both the cache entry and the filesystem file. Idempotent.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		return err
	}
	return s.files.Delete(ctx, sessionID)
}

// CacheConnected reports whether the primary cache is reachable, consulted
// by the /health endpoint.
func (s *Store) CacheConnected(ctx context.Context) bool {
	return s.cache.Ping(ctx) == nil
}

func (s *Store) writeThrough(ctx context.Context, session model.Session) error {
	if err := s.cache.Set(ctx, session.SessionID, session, s.cacheTTL); err != nil {
		return err
	}
	if err := s.files.Set(ctx, session); err != nil {
		return err
	}
	return nil
}

// applyOverlay merges a flat map of field overrides into a session by
// round-tripping through JSON: each top-level key in overlay replaces the
// corresponding top-level field of session wholesale.
func applyOverlay(session model.Session, overlay map[string]any) (model.Session, error) {
	base, err := json.Marshal(session)
	if err != nil {
		return model.Session{}, err
	}
	var baseMap map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return model.Session{}, err
	}
	for k, v := range overlay {
		encoded, err := json.Marshal(v)
		if err != nil {
			return model.Session{}, err
		}
		baseMap[k] = encoded
	}
	merged, err := json.Marshal(baseMap)
	if err != nil {
		return model.Session{}, err
	}
	var out model.Session
	if err := json.Unmarshal(merged, &out); err != nil {
		return model.Session{}, err
	}
	return out, nil
}
