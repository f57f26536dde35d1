// Package workerclient is the library every worker process embeds, per
// spec.md §4.4: self-registration on boot, a local HTTP server exposing
// /mcp/message and /health, context GET/PATCH helpers against the
// coordinator's internal endpoints, and a retrying CallLLM. Workers are
// otherwise free to implement their task however they choose; this package
// only carries the plumbing every worker shares.
package workerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/archiveflow/coordinator/apperrors"
	"github.com/archiveflow/coordinator/model"
)

// MessageHandler is a pure function of (envelope, client) to a reply
// envelope. It is the only piece of behavior a concrete worker supplies;
// everything else is this package's plumbing. Re-expressed from the
// teacher's inheritance-based agent hierarchy as capability + composition,
// per the envelope design note.
type MessageHandler func(ctx context.Context, env model.Envelope, client *Client) (model.Envelope, error)

// Client is the worker-side runtime: HTTP client for talking to the
// coordinator, the LLM provider, and the optional throttle.
type Client struct {
	Name    string
	Kind    model.AgentKind
	BaseURL string

	CoordinatorBaseURL string

	http    *http.Client
	handler MessageHandler
	llm     Provider
	limiter *Throttle
}

// Config bundles the construction-time dependencies for a worker Client.
type Config struct {
	Name                string
	Kind                model.AgentKind
	BaseURL             string
	CoordinatorBaseURL  string
	Handler             MessageHandler
	LLM                 Provider
	Throttle            *Throttle
	HTTPClient          *http.Client
}

// New constructs a worker Client. HTTPClient defaults to a client with a
// 30s timeout if omitted.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		Name:                cfg.Name,
		Kind:                cfg.Kind,
		BaseURL:             cfg.BaseURL,
		CoordinatorBaseURL:  cfg.CoordinatorBaseURL,
		http:                httpClient,
		handler:             cfg.Handler,
		llm:                 cfg.LLM,
		limiter:             cfg.Throttle,
	}
}

// Register POSTs this worker's identity to the coordinator's
// /internal/register_agent endpoint. Failure aborts worker startup, per
// spec.md §4.4.
func (c *Client) Register(ctx context.Context, capabilities []string) error {
	body, err := json.Marshal(model.RegisterPayload{
		Name:         c.Name,
		Kind:         c.Kind,
		BaseURL:      c.BaseURL,
		Capabilities: capabilities,
	})
	if err != nil {
		return apperrors.WrapTransport("encoding registration payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.CoordinatorBaseURL+"/internal/register_agent", bytes.NewReader(body))
	if err != nil {
		return apperrors.WrapTransport("building registration request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.WrapTransport("registering with coordinator", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return apperrors.WrapTransport(fmt.Sprintf("registration rejected: %d %s", resp.StatusCode, string(raw)), nil)
	}
	return nil
}

// GetContext fetches the full session object from the coordinator's
// internal context endpoint.
func (c *Client) GetContext(ctx context.Context, sessionID string) (model.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.CoordinatorBaseURL+"/internal/sessions/"+sessionID+"/context", nil)
	if err != nil {
		return model.Session{}, apperrors.WrapTransport("building context request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return model.Session{}, apperrors.WrapTransport("fetching session context", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return model.Session{}, apperrors.NewNotFoundf("session %s not found", sessionID)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return model.Session{}, apperrors.WrapTransport(fmt.Sprintf("context fetch failed: %d %s", resp.StatusCode, string(raw)), nil)
	}
	var session model.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return model.Session{}, apperrors.WrapTransport("decoding session context", err)
	}
	return session, nil
}

// UpdateContext PATCHes a partial overlay into the coordinator's internal
// context endpoint and returns the merged session.
func (c *Client) UpdateContext(ctx context.Context, sessionID string, overlay map[string]any) (model.Session, error) {
	body, err := json.Marshal(overlay)
	if err != nil {
		return model.Session{}, apperrors.WrapTransport("encoding context overlay", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.CoordinatorBaseURL+"/internal/sessions/"+sessionID+"/context", bytes.NewReader(body))
	if err != nil {
		return model.Session{}, apperrors.WrapTransport("building context patch request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Session{}, apperrors.WrapTransport("patching session context", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return model.Session{}, apperrors.NewNotFoundf("session %s not found", sessionID)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return model.Session{}, apperrors.WrapTransport(fmt.Sprintf("context patch failed: %d %s", resp.StatusCode, string(raw)), nil)
	}
	var session model.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return model.Session{}, apperrors.WrapTransport("decoding patched session context", err)
	}
	return session, nil
}

// DispatchNext asks the coordinator to route a message to another worker,
// through /internal/route_message — workers never call each other
// directly.
func (c *Client) DispatchNext(ctx context.Context, targetAgent string, kind model.MessageKind, payload model.Payload) (model.Envelope, error) {
	body, err := json.Marshal(struct {
		TargetAgent string            `json:"target_agent"`
		MessageKind model.MessageKind `json:"message_kind"`
		Payload     model.Payload     `json:"payload"`
	}{TargetAgent: targetAgent, MessageKind: kind, Payload: payload})
	if err != nil {
		return model.Envelope{}, apperrors.WrapTransport("encoding route_message request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.CoordinatorBaseURL+"/internal/route_message", bytes.NewReader(body))
	if err != nil {
		return model.Envelope{}, apperrors.WrapTransport("building route_message request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Envelope{}, apperrors.WrapTransport("dispatching via coordinator", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return model.Envelope{}, apperrors.NewNotFoundf("target agent %s unregistered", targetAgent)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return model.Envelope{}, apperrors.WrapTransport(fmt.Sprintf("route_message failed: %d %s", resp.StatusCode, string(raw)), nil)
	}
	var reply model.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return model.Envelope{}, apperrors.WrapTransport("decoding route_message reply", err)
	}
	return reply, nil
}
