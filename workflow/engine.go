// Package workflow is the coordinator's Workflow Engine, per spec.md §4.5.
// It owns no goroutine of its own: every method is a short, non-blocking
// dispatch invoked synchronously by a REST handler. Stage transitions
// beyond INITIALIZED are driven by workers writing context updates through
// their own /internal/sessions/{id}/context PATCH calls; the engine here
// only handles the two REST-triggered actions that require business logic
// — initialize and clarify — plus the generic inter-worker dispatch relay.
package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/archiveflow/coordinator/agentregistry"
	"github.com/archiveflow/coordinator/apperrors"
	"github.com/archiveflow/coordinator/contextstore"
	"github.com/archiveflow/coordinator/model"
	"github.com/archiveflow/coordinator/router"
	"github.com/archiveflow/coordinator/telemetry"
)

// Engine wires the three shared components together, per the spec's
// explicit-wiring-value design note: no package-global singletons, every
// dependency is constructed once at startup and passed in here.
type Engine struct {
	Store    *contextstore.Store
	Registry *agentregistry.Registry
	Router   *router.Router
	Logger   telemetry.Logger
	now      func() time.Time
}

// New constructs an Engine from its three collaborators.
func New(store *contextstore.Store, registry *agentregistry.Registry, rt *router.Router, logger telemetry.Logger) *Engine {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Engine{Store: store, Registry: registry, Router: rt, Logger: logger, now: time.Now}
}

// Initialize validates datasetPath, collects surface-level dataset info,
// creates the Session, and dispatches the metadata-extraction task. The
// session's stage on return is INITIALIZED; COLLECTING_METADATA is set by
// the metadata worker itself once it starts.
func (e *Engine) Initialize(ctx context.Context, datasetPath string) (model.Session, error) {
	info, err := collectDatasetInfo(datasetPath)
	if err != nil {
		return model.Session{}, err
	}

	session := model.Session{
		SessionID:     uuid.NewString(),
		WorkflowStage: model.StageInitialized,
		DatasetInfo:   &info,
	}
	created, err := e.Store.Create(ctx, session)
	if err != nil {
		return model.Session{}, err
	}

	agent, err := e.Registry.GetByKind(model.AgentKindMetadata)
	if err != nil {
		return model.Session{}, apperrors.WrapTransport("metadata worker unreachable", err)
	}

	env := model.Envelope{
		MessageID:   uuid.NewString(),
		SourceAgent: "coordinator",
		TargetAgent: agent.Name,
		SessionID:   &created.SessionID,
		Kind:        model.MessageKindAgentExecute,
		Payload: model.ExecutePayload{
			Action:    model.ActionInitializeSession,
			SessionID: created.SessionID,
		},
		Timestamp: e.now().UTC(),
	}
	if _, err := e.Router.Send(ctx, agent, env); err != nil {
		return model.Session{}, err
	}

	e.Logger.Info(ctx, "session initialized", "session_id", created.SessionID, "dataset_path", datasetPath)
	return created, nil
}

// Status returns the current session, unmodified. Callers project
// progress_percentage and status_message from workflow_stage themselves
// via model.ProgressPercentage / model.StatusMessage.
func (e *Engine) Status(ctx context.Context, sessionID string) (model.Session, error) {
	session, err := e.Store.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if session == nil {
		return model.Session{}, apperrors.NewNotFoundf("session %s not found", sessionID)
	}
	return *session, nil
}

// Clarify dispatches a handle_clarification task to the metadata worker,
// per spec.md §4.5's clarification protocol: user_input and
// updated_metadata are passed through as task parameters, and the worker
// is responsible for merging them into metadata and re-triggering
// conversion. The coordinator does not itself mutate metadata here,
// regardless of which stage originally failed — an explicit decision
// among the open questions in §9.
func (e *Engine) Clarify(ctx context.Context, sessionID string, userInput *string, updatedMetadata map[string]any) (model.Session, error) {
	session, err := e.Store.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if session == nil {
		return model.Session{}, apperrors.NewNotFoundf("session %s not found", sessionID)
	}

	agent, err := e.Registry.GetByKind(model.AgentKindMetadata)
	if err != nil {
		return model.Session{}, apperrors.WrapTransport("metadata worker unreachable", err)
	}

	params := map[string]any{}
	if userInput != nil {
		params["user_input"] = *userInput
	}
	if updatedMetadata != nil {
		params["updated_metadata"] = updatedMetadata
	}

	env := model.Envelope{
		MessageID:   uuid.NewString(),
		SourceAgent: "coordinator",
		TargetAgent: agent.Name,
		SessionID:   &sessionID,
		Kind:        model.MessageKindAgentExecute,
		Payload: model.ExecutePayload{
			Action:     model.ActionHandleClarification,
			SessionID:  sessionID,
			Parameters: params,
		},
		Timestamp: e.now().UTC(),
	}
	reply, err := e.Router.Send(ctx, agent, env)
	if err != nil {
		return model.Session{}, err
	}
	if resp, ok := reply.Payload.(model.ResponsePayload); ok && resp.Status == "error" {
		return model.Session{}, apperrors.WrapWorker("metadata worker rejected clarification", fmt.Errorf("%v", resp.Fields))
	}

	updated, err := e.Store.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if updated == nil {
		return model.Session{}, apperrors.NewNotFoundf("session %s not found", sessionID)
	}
	return *updated, nil
}

// RouteMessage forwards an arbitrary message to a registered worker,
// backing the generic /internal/route_message endpoint that workers use to
// ask the coordinator to dispatch the next stage — workers never call
// each other directly.
func (e *Engine) RouteMessage(ctx context.Context, targetAgent string, kind model.MessageKind, payload model.Payload, sessionID *string) (model.Envelope, error) {
	agent, err := e.Registry.Get(targetAgent)
	if err != nil {
		return model.Envelope{}, err
	}
	env := model.Envelope{
		MessageID:   uuid.NewString(),
		SourceAgent: "coordinator",
		TargetAgent: targetAgent,
		SessionID:   sessionID,
		Kind:        kind,
		Payload:     payload,
		Timestamp:   e.now().UTC(),
	}
	return e.Router.Send(ctx, agent, env)
}

// collectDatasetInfo validates that path exists and is a directory, then
// walks it to gather the surface-level facts spec.md's DatasetInfo names:
// total size, file count, a best-effort format tag, and any free-text
// metadata files.
func collectDatasetInfo(path string) (model.DatasetInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return model.DatasetInfo{}, apperrors.NewValidationf("dataset path not found: %s", path)
	}
	if !stat.IsDir() {
		return model.DatasetInfo{}, apperrors.NewValidationf("dataset path not found: %s is not a directory", path)
	}

	info := model.DatasetInfo{Path: path, FormatTag: "unknown"}
	err = filepath.Walk(path, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		info.FileCount++
		info.TotalBytes += fi.Size()

		name := strings.ToLower(fi.Name())
		if tag, ok := formatMarker(name); ok && info.FormatTag == "unknown" {
			info.FormatTag = tag
		}
		if isFreeTextMetadata(name) {
			info.HasFreeTextMetadata = true
			info.FreeTextMetadataFiles = append(info.FreeTextMetadataFiles, p)
		}
		return nil
	})
	if err != nil {
		return model.DatasetInfo{}, apperrors.WrapStorage("scanning dataset directory", err)
	}
	return info, nil
}

// formatMarker maps a well-known marker filename/extension to a recording
// format tag.
func formatMarker(name string) (string, bool) {
	switch {
	case strings.HasSuffix(name, ".rhd"):
		return "intan", true
	case strings.HasSuffix(name, ".ncs"):
		return "neuralynx", true
	case strings.HasSuffix(name, ".continuous"), name == "structure.oebin":
		return "open_ephys", true
	case strings.HasSuffix(name, ".smr"), strings.HasSuffix(name, ".smrx"):
		return "spike2", true
	case strings.HasSuffix(name, ".nwb"):
		return "nwb", true
	default:
		return "", false
	}
}

func isFreeTextMetadata(name string) bool {
	if strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".md") {
		return true
	}
	return name == "notes" || name == "readme"
}
