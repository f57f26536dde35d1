// Package router implements the coordinator's Message Router: a thin HTTP
// dispatcher that POSTs envelopes to a worker's /mcp/message endpoint and
// returns its response envelope, per spec.md §4.3. The router never
// retries; retry policy belongs to the caller (the Workflow Engine, or a
// worker's own CallLLM path).
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/archiveflow/coordinator/apperrors"
	"github.com/archiveflow/coordinator/model"
)

// Config controls the three independently tunable phases of an outbound
// dispatch. Each defaults to spec.md §4.3's stated default if zero: 10s
// connect, 60s read, 60s write.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 60 * time.Second
	}
	return c
}

// Router dispatches envelopes to worker HTTP endpoints.
type Router struct {
	cfg    Config
	client *http.Client
}

// New constructs a Router. The underlying *http.Client is built once, with
// a dialer timeout for connect and a response-header timeout for read. The
// write phase has no deadline of its own: WriteTimeout only contributes to
// the client's overall Timeout (connect + write + read), which bounds the
// whole exchange.
func New(cfg Config) *Router {
	cfg = cfg.withDefaults()
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
	}
	return &Router{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout + cfg.WriteTimeout + cfg.ReadTimeout,
		},
	}
}

// Close releases the router's pooled HTTP connections. Callers invoke this
// once during shutdown, per spec.md §4.3/§4.7, before disconnecting the
// Context Store cache.
func (r *Router) Close() {
	r.client.CloseIdleConnections()
}

// ExecuteTask is a convenience wrapper over Send for the common case of
// dispatching a named action with a session and a flat parameter map,
// matching the execute_task(target, task_name, session_id, parameters)
// operation in spec.md §4.3.
func (r *Router) ExecuteTask(ctx context.Context, target model.AgentRecord, taskName, sessionID string, parameters map[string]any) (model.Envelope, error) {
	env := model.Envelope{
		MessageID:   uuid.NewString(),
		SourceAgent: "coordinator",
		TargetAgent: target.Name,
		SessionID:   &sessionID,
		Kind:        model.MessageKindAgentExecute,
		Payload: model.ExecutePayload{
			Action:     model.Action(taskName),
			SessionID:  sessionID,
			Parameters: parameters,
		},
		Timestamp: time.Now().UTC(),
	}
	return r.Send(ctx, target, env)
}

// Send POSTs env to target.BaseURL + "/mcp/message" and decodes the
// worker's response envelope. A non-2xx response or a transport-level
// failure surfaces as an apperrors.TransportError; the caller decides
// whether and how to retry.
func (r *Router) Send(ctx context.Context, target model.AgentRecord, env model.Envelope) (model.Envelope, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return model.Envelope{}, apperrors.WrapTransport("encoding envelope", err)
	}

	url := target.BaseURL + "/mcp/message"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return model.Envelope{}, apperrors.WrapTransport("building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return model.Envelope{}, apperrors.WrapTransport(fmt.Sprintf("dispatch to %s failed", target.Name), err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Envelope{}, apperrors.WrapTransport("reading response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Envelope{}, apperrors.WrapTransport(
			fmt.Sprintf("%s responded with status %d: %s", target.Name, resp.StatusCode, string(respBody)), nil)
	}

	var out model.Envelope
	if err := json.Unmarshal(respBody, &out); err != nil {
		return model.Envelope{}, apperrors.WrapTransport("decoding response envelope", err)
	}
	return out, nil
}
