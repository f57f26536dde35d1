package workerclient

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/archiveflow/coordinator/model"
)

// healthBody is the worker's GET /health response shape, per spec.md §6.3.
type healthBody struct {
	Status    string `json:"status"`
	AgentName string `json:"agent_name"`
	AgentKind string `json:"agent_kind"`
}

// Router builds the worker's local HTTP surface: POST /mcp/message and
// GET /health. Every worker serves this exact pair of routes; the handler
// logic beyond envelope dispatch belongs to the caller-supplied
// MessageHandler.
func (c *Client) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/mcp/message", c.handleMessage)
	r.Get("/health", c.handleHealth)
	return r
}

// ListenAndServe starts the worker's local HTTP server on addr via
// http.ListenAndServe, blocking until the server fails. It has no shutdown
// path of its own; Router can be mounted on a caller-owned *http.Server
// instead.
func (c *Client) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, c.Router())
}

func (c *Client) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthBody{
		Status:    "healthy",
		AgentName: c.Name,
		AgentKind: string(c.Kind),
	})
}

func (c *Client) handleMessage(w http.ResponseWriter, r *http.Request) {
	var env model.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(model.Envelope{
			MessageID:   env.MessageID,
			SourceAgent: c.Name,
			TargetAgent: env.SourceAgent,
			Kind:        model.MessageKindError,
			Payload:     model.ErrorPayload{Message: "malformed envelope: " + err.Error()},
		})
		return
	}

	if c.handler == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(model.Envelope{
			MessageID:   env.MessageID,
			SourceAgent: c.Name,
			TargetAgent: env.SourceAgent,
			Kind:        model.MessageKindError,
			Payload:     model.ErrorPayload{Message: "no message handler configured"},
		})
		return
	}

	reply, err := c.handler(r.Context(), env, c)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusOK) // errors are reported in-band via status:"error", per spec.md §6.3
		_ = json.NewEncoder(w).Encode(model.Envelope{
			MessageID:   env.MessageID,
			SourceAgent: c.Name,
			TargetAgent: env.SourceAgent,
			SessionID:   env.SessionID,
			Kind:        model.MessageKindAgentResponse,
			Payload:     model.ResponsePayload{Status: "error", Fields: map[string]any{"error": err.Error()}},
		})
		return
	}
	_ = json.NewEncoder(w).Encode(reply)
}
