package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/archiveflow/coordinator/apperrors"
	"github.com/archiveflow/coordinator/model"
)

func TestSendDispatchesExactlyOnePOST(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/mcp/message", r.URL.Path)

		var env model.Envelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Envelope{
			MessageID:   env.MessageID,
			SourceAgent: env.TargetAgent,
			TargetAgent: env.SourceAgent,
			Kind:        model.MessageKindAgentResponse,
			Payload:     model.ResponsePayload{Status: "success"},
		})
	}))
	defer server.Close()

	r := New(Config{})
	target := model.AgentRecord{Name: "metadata-worker", BaseURL: server.URL}
	resp, err := r.Send(context.Background(), target, model.Envelope{
		MessageID:   "m1",
		SourceAgent: "coordinator",
		TargetAgent: "metadata-worker",
		Kind:        model.MessageKindAgentExecute,
		Payload:     model.ExecutePayload{Action: model.ActionInitializeSession, SessionID: "s1"},
	})
	require.NoError(t, err)
	payload, ok := resp.Payload.(model.ResponsePayload)
	require.True(t, ok)
	require.Equal(t, "success", payload.Status)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSendNeverRetriesOnFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := New(Config{})
	target := model.AgentRecord{Name: "conversion-worker", BaseURL: server.URL}
	_, err := r.Send(context.Background(), target, model.Envelope{MessageID: "m2", Kind: model.MessageKindAgentExecute, Payload: model.ExecutePayload{}})
	require.Error(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	var transportErr *apperrors.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestSendTransportFailureOnUnreachableTarget(t *testing.T) {
	r := New(Config{ConnectTimeout: 100 * time.Millisecond})
	target := model.AgentRecord{Name: "ghost", BaseURL: "http://127.0.0.1:1"}
	_, err := r.Send(context.Background(), target, model.Envelope{MessageID: "m3", Kind: model.MessageKindAgentExecute, Payload: model.ExecutePayload{}})
	require.Error(t, err)
	var transportErr *apperrors.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestExecuteTaskBuildsExecutePayload(t *testing.T) {
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

	r := New(Config{})
	target := model.AgentRecord{Name: "metadata-worker", BaseURL: server.URL}
	_, err := r.ExecuteTask(context.Background(), target, "initialize_session", "s1", map[string]any{"foo": "bar"})
	require.NoError(t, err)

	exec, ok := received.Payload.(model.ExecutePayload)
	require.True(t, ok)
	require.Equal(t, model.ActionInitializeSession, exec.Action)
	require.Equal(t, "s1", exec.SessionID)
	require.Equal(t, "bar", exec.Parameters["foo"])
}

func TestCloseReleasesIdleConnections(t *testing.T) {
	r := New(Config{})
	r.Close()
}
