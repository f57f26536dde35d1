package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageKind enumerates the known envelope kinds exchanged between the
// coordinator and workers over /mcp/message.
type MessageKind string

const (
	MessageKindAgentRegister  MessageKind = "agent_register"
	MessageKindAgentExecute   MessageKind = "agent_execute"
	MessageKindAgentResponse  MessageKind = "agent_response"
	MessageKindContextUpdate  MessageKind = "context_update"
	MessageKindError          MessageKind = "error"
	MessageKindHealthCheck    MessageKind = "health_check"
	MessageKindHealthResponse MessageKind = "health_response"
)

// Action enumerates the known agent_execute action names. The action name
// drives dispatch inside the worker; unknown actions are an error, not
// silently accepted.
type Action string

const (
	ActionInitializeSession   Action = "initialize_session"
	ActionHandleClarification Action = "handle_clarification"
	ActionConvertDataset      Action = "convert_dataset"
	ActionValidateNWB         Action = "validate_nwb"
)

// Envelope is the wire message exchanged between the coordinator and
// workers. Payload is a tagged variant over the known MessageKind set: the
// concrete Go type stored in Payload is determined by Kind, and
// (Un)MarshalJSON round-trips it through an open JSON object rather than a
// dynamic map, per the envelope design note.
type Envelope struct {
	MessageID   string      `json:"message_id"`
	SourceAgent string      `json:"source_agent"`
	TargetAgent string      `json:"target_agent"`
	SessionID   *string     `json:"session_id"`
	Kind        MessageKind `json:"message_kind"`
	Payload     Payload     `json:"payload"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Payload is implemented by every concrete payload type. Kind reports which
// MessageKind the payload belongs to, so envelope encoding can validate that
// Kind and Payload agree.
type Payload interface {
	Kind() MessageKind
}

type (
	// ExecutePayload is the payload of an agent_execute message. Parameters
	// carries action-specific fields not otherwise modeled (e.g. clarify's
	// user_input/updated_metadata); callers decode it per Action.
	ExecutePayload struct {
		Action     Action         `json:"action"`
		SessionID  string         `json:"session_id"`
		Parameters map[string]any `json:"-"`
	}

	// RegisterPayload is the payload of an agent_register message.
	RegisterPayload struct {
		Name         string    `json:"name"`
		Kind         AgentKind `json:"kind"`
		BaseURL      string    `json:"base_url"`
		Capabilities []string  `json:"capabilities"`
	}

	// ResponsePayload is the payload of an agent_response message: the
	// generic success/error envelope every worker reply carries at minimum.
	ResponsePayload struct {
		Status string         `json:"status"`
		Fields map[string]any `json:"-"`
	}

	// ContextUpdatePayload is the payload of a context_update message: a
	// partial overlay merged into the target session.
	ContextUpdatePayload struct {
		SessionID string         `json:"session_id"`
		Overlay   map[string]any `json:"overlay"`
	}

	// ErrorPayload is the payload of an error message.
	ErrorPayload struct {
		Message string `json:"message"`
		Code    string `json:"code,omitempty"`
	}

	// HealthCheckPayload is the (empty) payload of a health_check message.
	HealthCheckPayload struct{}

	// HealthResponsePayload is the payload of a health_response message.
	HealthResponsePayload struct {
		Status    string `json:"status"`
		AgentName string `json:"agent_name"`
		AgentKind string `json:"agent_kind"`
	}
)

func (ExecutePayload) Kind() MessageKind        { return MessageKindAgentExecute }
func (RegisterPayload) Kind() MessageKind       { return MessageKindAgentRegister }
func (ResponsePayload) Kind() MessageKind       { return MessageKindAgentResponse }
func (ContextUpdatePayload) Kind() MessageKind  { return MessageKindContextUpdate }
func (ErrorPayload) Kind() MessageKind          { return MessageKindError }
func (HealthCheckPayload) Kind() MessageKind    { return MessageKindHealthCheck }
func (HealthResponsePayload) Kind() MessageKind { return MessageKindHealthResponse }

// MarshalJSON encodes the envelope, flattening the tagged payload into the
// wire object's "payload" field.
func (e Envelope) MarshalJSON() ([]byte, error) {
	payload, err := encodePayload(e.Kind, e.Payload)
	if err != nil {
		return nil, err
	}
	wire := struct {
		MessageID   string          `json:"message_id"`
		SourceAgent string          `json:"source_agent"`
		TargetAgent string          `json:"target_agent"`
		SessionID   *string         `json:"session_id"`
		Kind        MessageKind     `json:"message_kind"`
		Payload     json.RawMessage `json:"payload"`
		Timestamp   time.Time       `json:"timestamp"`
	}{
		MessageID:   e.MessageID,
		SourceAgent: e.SourceAgent,
		TargetAgent: e.TargetAgent,
		SessionID:   e.SessionID,
		Kind:        e.Kind,
		Payload:     payload,
		Timestamp:   e.Timestamp,
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the envelope, selecting the concrete Payload type
// from Kind. Unknown kinds are rejected rather than silently accepted.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire struct {
		MessageID   string          `json:"message_id"`
		SourceAgent string          `json:"source_agent"`
		TargetAgent string          `json:"target_agent"`
		SessionID   *string         `json:"session_id"`
		Kind        MessageKind     `json:"message_kind"`
		Payload     json.RawMessage `json:"payload"`
		Timestamp   time.Time       `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("model: decode envelope: %w", err)
	}
	payload, err := decodePayload(wire.Kind, wire.Payload)
	if err != nil {
		return err
	}
	e.MessageID = wire.MessageID
	e.SourceAgent = wire.SourceAgent
	e.TargetAgent = wire.TargetAgent
	e.SessionID = wire.SessionID
	e.Kind = wire.Kind
	e.Payload = payload
	e.Timestamp = wire.Timestamp
	return nil
}

func encodePayload(kind MessageKind, p Payload) (json.RawMessage, error) {
	if p == nil {
		return json.RawMessage("{}"), nil
	}
	if p.Kind() != kind {
		return nil, fmt.Errorf("model: payload kind %q does not match envelope kind %q", p.Kind(), kind)
	}
	switch v := p.(type) {
	case ExecutePayload:
		return marshalOpen(v.Parameters, struct {
			Action    Action `json:"action"`
			SessionID string `json:"session_id"`
		}{v.Action, v.SessionID})
	case ResponsePayload:
		return marshalOpen(v.Fields, struct {
			Status string `json:"status"`
		}{v.Status})
	default:
		return json.Marshal(p)
	}
}

func decodePayload(kind MessageKind, raw json.RawMessage) (Payload, error) {
	switch kind {
	case MessageKindAgentExecute:
		var fixed struct {
			Action    Action `json:"action"`
			SessionID string `json:"session_id"`
		}
		if err := json.Unmarshal(raw, &fixed); err != nil {
			return nil, fmt.Errorf("model: decode agent_execute payload: %w", err)
		}
		extra, err := openExtras(raw, "action", "session_id")
		if err != nil {
			return nil, err
		}
		return ExecutePayload{Action: fixed.Action, SessionID: fixed.SessionID, Parameters: extra}, nil
	case MessageKindAgentRegister:
		var p RegisterPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("model: decode agent_register payload: %w", err)
		}
		return p, nil
	case MessageKindAgentResponse:
		var fixed struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(raw, &fixed); err != nil {
			return nil, fmt.Errorf("model: decode agent_response payload: %w", err)
		}
		extra, err := openExtras(raw, "status")
		if err != nil {
			return nil, err
		}
		return ResponsePayload{Status: fixed.Status, Fields: extra}, nil
	case MessageKindContextUpdate:
		var p ContextUpdatePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("model: decode context_update payload: %w", err)
		}
		return p, nil
	case MessageKindError:
		var p ErrorPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("model: decode error payload: %w", err)
		}
		return p, nil
	case MessageKindHealthCheck:
		return HealthCheckPayload{}, nil
	case MessageKindHealthResponse:
		var p HealthResponsePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("model: decode health_response payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("model: unknown message kind %q", kind)
	}
}

// marshalOpen merges a fixed struct's fields with an open map of extras into
// one JSON object.
func marshalOpen(extra map[string]any, fixed any) (json.RawMessage, error) {
	fixedBytes, err := json.Marshal(fixed)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return fixedBytes, nil
	}
	merged := make(map[string]any, len(extra)+4)
	var fixedMap map[string]any
	if err := json.Unmarshal(fixedBytes, &fixedMap); err != nil {
		return nil, err
	}
	for k, v := range fixedMap {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// openExtras decodes raw into a generic map and strips the named fixed keys,
// leaving only action/response-specific parameters.
func openExtras(raw json.RawMessage, fixedKeys ...string) (map[string]any, error) {
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("model: decode payload extras: %w", err)
	}
	for _, k := range fixedKeys {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}
