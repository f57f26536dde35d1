package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/archiveflow/coordinator/apperrors"
	"github.com/archiveflow/coordinator/model"
)

// FileStore is the durable filesystem backup backend: one JSON file per
// session at <base>/sessions/<id>.json.
type FileStore struct {
	base string
}

// NewFileStore constructs a FileStore rooted at base. The sessions
// subdirectory is created lazily on first write.
func NewFileStore(base string) *FileStore {
	return &FileStore{base: base}
}

func (f *FileStore) sessionPath(sessionID string) string {
	return filepath.Join(f.base, "sessions", sessionID+".json")
}

// Get reads a session's backup file. A missing file returns (nil, nil).
func (f *FileStore) Get(_ context.Context, sessionID string) (*model.Session, error) {
	raw, err := os.ReadFile(f.sessionPath(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.WrapStorage("reading session backup", err)
	}
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, apperrors.WrapStorage(fmt.Sprintf("session backup %s is corrupt", sessionID), err)
	}
	return &s, nil
}

// Set writes a session's backup file atomically: write to a temp file in
// the same directory, then rename over the destination, so a crash mid-write
// never leaves a partial file.
func (f *FileStore) Set(_ context.Context, session model.Session) error {
	dir := filepath.Join(f.base, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.WrapStorage("creating session directory", err)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return apperrors.WrapStorage("marshal session for backup", err)
	}
	tmp, err := os.CreateTemp(dir, session.SessionID+".*.tmp")
	if err != nil {
		return apperrors.WrapStorage("creating temp backup file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.WrapStorage("writing temp backup file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.WrapStorage("closing temp backup file", err)
	}
	if err := os.Rename(tmpName, f.sessionPath(session.SessionID)); err != nil {
		os.Remove(tmpName)
		return apperrors.WrapStorage("renaming backup file into place", err)
	}
	return nil
}

// Delete removes a session's backup file. Idempotent: a missing file is not
// an error.
func (f *FileStore) Delete(_ context.Context, sessionID string) error {
	if err := os.Remove(f.sessionPath(sessionID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return apperrors.WrapStorage("deleting session backup", err)
	}
	return nil
}
