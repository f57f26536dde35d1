package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/archiveflow/coordinator/apperrors"
	"github.com/archiveflow/coordinator/model"
)

type registerAgentRequest struct {
	Name         string          `json:"name"`
	Kind         model.AgentKind `json:"kind"`
	BaseURL      string          `json:"base_url"`
	Capabilities []string        `json:"capabilities"`
}

type registerAgentResponse struct {
	Status string `json:"status"`
	Name   string `json:"name"`
}

func (s *server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var doc any
	raw, err := decodeRaw(r)
	if err != nil {
		writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
		return
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
		return
	}
	if err := registerAgentSchema.Validate(doc); err != nil {
		writeSchemaError(w, err)
		return
	}
	var req registerAgentRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
		return
	}

	s.deps.Registry.Register(r.Context(), model.AgentRecord{
		Name:         req.Name,
		Kind:         req.Kind,
		BaseURL:      req.BaseURL,
		Capabilities: req.Capabilities,
		RegisteredAt: timeNowUTC(),
	})

	writeJSON(w, http.StatusOK, registerAgentResponse{Status: "registered", Name: req.Name})
}

func (s *server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if session == nil {
		writeError(w, apperrors.NewNotFoundf("session %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *server) handlePatchContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var overlay map[string]any
	raw, err := decodeRaw(r)
	if err != nil {
		writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
		return
	}
	if err := json.Unmarshal(raw, &overlay); err != nil {
		writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
		return
	}

	session, err := s.deps.Store.Update(r.Context(), id, overlay)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type routeMessageRequest struct {
	TargetAgent string            `json:"target_agent"`
	MessageKind model.MessageKind `json:"message_kind"`
	Payload     json.RawMessage   `json:"payload"`
	SessionID   *string           `json:"session_id,omitempty"`
}

func (s *server) handleRouteMessage(w http.ResponseWriter, r *http.Request) {
	var doc any
	raw, err := decodeRaw(r)
	if err != nil {
		writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
		return
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
		return
	}
	if err := routeMessageSchema.Validate(doc); err != nil {
		writeSchemaError(w, err)
		return
	}
	var req routeMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
		return
	}

	payload, err := decodeRouteMessagePayload(req.MessageKind, req.Payload)
	if err != nil {
		writeError(w, apperrors.NewValidationf("invalid payload for message_kind %s: %v", req.MessageKind, err))
		return
	}

	reply, err := s.deps.Engine.RouteMessage(r.Context(), req.TargetAgent, req.MessageKind, payload, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// decodeRouteMessagePayload decodes the generic payload object according to
// message_kind, reusing the envelope's own tagged-variant decoder rather
// than duplicating the switch here.
func decodeRouteMessagePayload(kind model.MessageKind, raw json.RawMessage) (model.Payload, error) {
	wrapped, err := json.Marshal(struct {
		MessageID   string            `json:"message_id"`
		SourceAgent string            `json:"source_agent"`
		TargetAgent string            `json:"target_agent"`
		SessionID   *string           `json:"session_id"`
		Kind        model.MessageKind `json:"message_kind"`
		Payload     json.RawMessage   `json:"payload"`
		Timestamp   string            `json:"timestamp"`
	}{Kind: kind, Payload: raw, Timestamp: "1970-01-01T00:00:00Z"})
	if err != nil {
		return nil, err
	}
	var env model.Envelope
	if err := json.Unmarshal(wrapped, &env); err != nil {
		return nil, err
	}
	return env.Payload, nil
}
