package contextstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archiveflow/coordinator/model"
)

func TestFileStoreSetThenGet(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	ctx := context.Background()

	session := model.Session{SessionID: "f1", WorkflowStage: model.StageConverting}
	require.NoError(t, fs.Set(ctx, session))

	got, err := fs.Get(ctx, "f1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, session.WorkflowStage, got.WorkflowStage)
}

func TestFileStoreGetMissingReturnsNil(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	got, err := fs.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFileStoreCorruptFileSurfacesError(t *testing.T) {
	base := t.TempDir()
	fs := NewFileStore(base)
	dir := filepath.Join(base, "sessions")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	_, err := fs.Get(context.Background(), "bad")
	require.Error(t, err)
}

func TestFileStoreDeleteIsIdempotent(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, fs.Set(ctx, model.Session{SessionID: "f2"}))
	require.NoError(t, fs.Delete(ctx, "f2"))
	require.NoError(t, fs.Delete(ctx, "f2"))
}

func TestFileStoreLeavesNoTempFilesBehind(t *testing.T) {
	base := t.TempDir()
	fs := NewFileStore(base)
	require.NoError(t, fs.Set(context.Background(), model.Session{SessionID: "f3"}))

	entries, err := os.ReadDir(filepath.Join(base, "sessions"))
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp")
	}
}
