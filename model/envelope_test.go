package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTripExecute(t *testing.T) {
	sessionID := "sess-1"
	env := Envelope{
		MessageID:   "msg-1",
		SourceAgent: "coordinator",
		TargetAgent: "metadata-worker",
		SessionID:   &sessionID,
		Kind:        MessageKindAgentExecute,
		Payload: ExecutePayload{
			Action:    ActionConvertDataset,
			SessionID: sessionID,
			Parameters: map[string]any{
				"user_input": "please proceed",
			},
		},
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"action":"convert_dataset"`)
	require.Contains(t, string(raw), `"user_input":"please proceed"`)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, env.Kind, decoded.Kind)

	payload, ok := decoded.Payload.(ExecutePayload)
	require.True(t, ok)
	require.Equal(t, ActionConvertDataset, payload.Action)
	require.Equal(t, sessionID, payload.SessionID)
	require.Equal(t, "please proceed", payload.Parameters["user_input"])
}

func TestEnvelopeRoundTripResponse(t *testing.T) {
	env := Envelope{
		MessageID:   "msg-2",
		SourceAgent: "conversion-worker",
		TargetAgent: "coordinator",
		Kind:        MessageKindAgentResponse,
		Payload: ResponsePayload{
			Status: "success",
			Fields: map[string]any{"nwb_path": "/out/nwb_files/sess-1.nwb"},
		},
	}
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	payload, ok := decoded.Payload.(ResponsePayload)
	require.True(t, ok)
	require.Equal(t, "success", payload.Status)
	require.Equal(t, "/out/nwb_files/sess-1.nwb", payload.Fields["nwb_path"])
}

func TestEnvelopeHealthCheckRoundTrip(t *testing.T) {
	env := Envelope{
		MessageID:   "msg-3",
		SourceAgent: "coordinator",
		TargetAgent: "metadata-worker",
		Kind:        MessageKindHealthCheck,
		Payload:     HealthCheckPayload{},
	}
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, MessageKindHealthCheck, decoded.Kind)
	_, ok := decoded.Payload.(HealthCheckPayload)
	require.True(t, ok)
}

func TestEnvelopeUnknownKindRejected(t *testing.T) {
	raw := []byte(`{"message_id":"m","source_agent":"a","target_agent":"b","session_id":null,"message_kind":"bogus","payload":{},"timestamp":"2026-01-01T00:00:00Z"}`)
	var decoded Envelope
	err := json.Unmarshal(raw, &decoded)
	require.Error(t, err)
}

func TestEnvelopePayloadKindMismatchRejected(t *testing.T) {
	env := Envelope{
		MessageID:   "msg-4",
		SourceAgent: "a",
		TargetAgent: "b",
		Kind:        MessageKindHealthCheck,
		Payload:     ErrorPayload{Message: "wrong payload for this kind"},
	}
	_, err := json.Marshal(env)
	require.Error(t, err)
}
