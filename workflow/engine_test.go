package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/archiveflow/coordinator/agentregistry"
	"github.com/archiveflow/coordinator/contextstore"
	"github.com/archiveflow/coordinator/model"
	"github.com/archiveflow/coordinator/router"
)

// memCache is a minimal in-memory contextstore.Cache for engine tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string]model.Session
}

func newMemCache() *memCache { return &memCache{entries: make(map[string]model.Session)} }

func (c *memCache) Get(_ context.Context, id string) (*model.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *memCache) Set(_ context.Context, id string, s model.Session, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = s
	return nil
}

func (c *memCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }

func newTestEngine(t *testing.T, workerURL string) *Engine {
	t.Helper()
	store := contextstore.New(newMemCache(), contextstore.NewFileStore(t.TempDir()), time.Hour)
	reg := agentregistry.New()
	reg.Register(context.Background(), model.AgentRecord{Name: "metadata-worker", Kind: model.AgentKindMetadata, BaseURL: workerURL})
	rt := router.New(router.Config{})
	return New(store, reg, rt, nil)
}

func TestInitializeRejectsMissingPath(t *testing.T) {
	engine := newTestEngine(t, "http://unused")
	_, err := engine.Initialize(context.Background(), "/path/does/not/exist")
	require.Error(t, err)
}

func TestInitializeRejectsNonDirectory(t *testing.T) {
	file := t.TempDir() + "/marker.txt"
	require.NoError(t, writeFile(file, "not a dir"))
	engine := newTestEngine(t, "http://unused")
	_, err := engine.Initialize(context.Background(), file)
	require.Error(t, err)
}

func TestInitializeCreatesSessionAndDispatches(t *testing.T) {
	var received model.Envelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Envelope{
			MessageID:   received.MessageID,
			SourceAgent: "metadata-worker",
			TargetAgent: "coordinator",
			Kind:        model.MessageKindAgentResponse,
			Payload:     model.ResponsePayload{Status: "success"},
		})
	}))
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, writeFile(dir+"/structure.oebin", "marker"))

	engine := newTestEngine(t, server.URL)
	session, err := engine.Initialize(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, model.StageInitialized, session.WorkflowStage)
	require.NotNil(t, session.DatasetInfo)
	require.Equal(t, "open_ephys", session.DatasetInfo.FormatTag)

	exec, ok := received.Payload.(model.ExecutePayload)
	require.True(t, ok)
	require.Equal(t, model.ActionInitializeSession, exec.Action)
	require.Equal(t, session.SessionID, exec.SessionID)
}

func TestStatusUnknownSessionIsNotFound(t *testing.T) {
	engine := newTestEngine(t, "http://unused")
	_, err := engine.Status(context.Background(), "nope")
	require.Error(t, err)
}

func TestClarifyDispatchesHandleClarification(t *testing.T) {
	var received model.Envelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Envelope{
			MessageID:   received.MessageID,
			SourceAgent: "metadata-worker",
			TargetAgent: "coordinator",
			Kind:        model.MessageKindAgentResponse,
			Payload:     model.ResponsePayload{Status: "success"},
		})
	}))
	defer server.Close()

	engine := newTestEngine(t, server.URL)
	_, err := engine.Store.Create(context.Background(), model.Session{
		SessionID:                 "s1",
		WorkflowStage:             model.StageFailed,
		RequiresUserClarification: true,
		ClarificationPrompt:       "need subject id",
	})
	require.NoError(t, err)

	userInput := "mouse_001"
	_, err = engine.Clarify(context.Background(), "s1", &userInput, map[string]any{"subject_id": "mouse_001"})
	require.NoError(t, err)

	exec, ok := received.Payload.(model.ExecutePayload)
	require.True(t, ok)
	require.Equal(t, model.ActionHandleClarification, exec.Action)
	require.Equal(t, "mouse_001", exec.Parameters["user_input"])
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
