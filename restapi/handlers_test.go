package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/archiveflow/coordinator/agentregistry"
	"github.com/archiveflow/coordinator/contextstore"
	"github.com/archiveflow/coordinator/model"
	"github.com/archiveflow/coordinator/router"
	"github.com/archiveflow/coordinator/workflow"
)

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

func newTestServer(t *testing.T) (http.Handler, *contextstore.Store, *agentregistry.Registry) {
	t.Helper()
	store := contextstore.New(newMemCache(), contextstore.NewFileStore(t.TempDir()), time.Hour)
	reg := agentregistry.New()
	rt := router.New(router.Config{})
	engine := workflow.New(store, reg, rt, nil)
	handler := NewServer(Deps{Engine: engine, Store: store, Registry: reg, OutputBase: t.TempDir()})
	return handler, store, reg
}

func TestInitializeBadPathReturns400(t *testing.T) {
	handler, _, _ := newTestServer(t)

	body, _ := json.Marshal(initializeRequest{DatasetPath: "/does/not/exist"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/initialize", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitializeMissingFieldReturns422(t *testing.T) {
	handler, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/initialize", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStatusUnknownSessionReturns404(t *testing.T) {
	handler, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+"00000000-0000-0000-0000-000000000000"+"/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultBeforeCompletionReturns400(t *testing.T) {
	handler, store, _ := newTestServer(t)
	_, err := store.Create(context.Background(), model.Session{SessionID: "s1", WorkflowStage: model.StageInitialized})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/result", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthReflectsRegisteredAgentsAndCache(t *testing.T) {
	handler, _, reg := newTestServer(t)
	reg.Register(context.Background(), model.AgentRecord{Name: "metadata-worker", Kind: model.AgentKindMetadata, BaseURL: "http://localhost:8081"})
	reg.Register(context.Background(), model.AgentRecord{Name: "conversion-worker", Kind: model.AgentKindConversion, BaseURL: "http://localhost:8082"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
	require.True(t, resp.CacheConnected)
	require.ElementsMatch(t, []string{"metadata-worker", "conversion-worker"}, resp.AgentsRegistered)
}

func TestRouteMessageUnknownTargetReturns404(t *testing.T) {
	handler, _, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"target_agent": "ghost-worker",
		"message_kind": "health_check",
		"payload":      map[string]any{},
	})
	req := httptest.NewRequest(http.MethodPost, "/internal/route_message", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterAgentThenListedInHealth(t *testing.T) {
	handler, _, _ := newTestServer(t)

	body, _ := json.Marshal(registerAgentRequest{
		Name: "evaluation-worker", Kind: model.AgentKindEvaluation, BaseURL: "http://localhost:8083",
	})
	req := httptest.NewRequest(http.MethodPost, "/internal/register_agent", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	healthReq := httptest.NewRequest(http.MethodGet, "/health", nil)
	healthRec := httptest.NewRecorder()
	handler.ServeHTTP(healthRec, healthReq)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(healthRec.Body.Bytes(), &resp))
	require.Contains(t, resp.AgentsRegistered, "evaluation-worker")
}
