package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/archiveflow/coordinator/apperrors"
	"github.com/archiveflow/coordinator/model"
)

type initializeRequest struct {
	DatasetPath string `json:"dataset_path"`
}

type initializeResponse struct {
	SessionID     string `json:"session_id"`
	WorkflowStage string `json:"workflow_stage"`
	Message       string `json:"message"`
}

func (s *server) handleInitialize(w http.ResponseWriter, r *http.Request) {
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
	if err := initializeSchema.Validate(doc); err != nil {
		writeSchemaError(w, err)
		return
	}
	var req initializeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
		return
	}

	session, err := s.deps.Engine.Initialize(r.Context(), req.DatasetPath)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, initializeResponse{
		SessionID:     session.SessionID,
		WorkflowStage: string(session.WorkflowStage),
		Message:       model.StatusMessage(session.WorkflowStage),
	})
}

type statusResponse struct {
	SessionID             string `json:"session_id"`
	WorkflowStage         string `json:"workflow_stage"`
	ProgressPercentage    int    `json:"progress_percentage"`
	StatusMessage         string `json:"status_message"`
	CurrentAgent          string `json:"current_agent,omitempty"`
	RequiresClarification bool   `json:"requires_clarification"`
	ClarificationPrompt   string `json:"clarification_prompt,omitempty"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.deps.Engine.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		SessionID:             session.SessionID,
		WorkflowStage:         string(session.WorkflowStage),
		ProgressPercentage:    model.ProgressPercentage(session.WorkflowStage),
		StatusMessage:         model.StatusMessage(session.WorkflowStage),
		CurrentAgent:          session.CurrentAgent,
		RequiresClarification: session.RequiresUserClarification,
		ClarificationPrompt:   session.ClarificationPrompt,
	})
}

type clarifyRequest struct {
	UserInput       *string        `json:"user_input,omitempty"`
	UpdatedMetadata map[string]any `json:"updated_metadata,omitempty"`
}

type clarifyResponse struct {
	Message       string `json:"message"`
	WorkflowStage string `json:"workflow_stage"`
}

func (s *server) handleClarify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var doc any
	raw, err := decodeRaw(r)
	if err != nil {
		writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
		return
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
			return
		}
		if err := clarifySchema.Validate(doc); err != nil {
			writeSchemaError(w, err)
			return
		}
	}
	var req clarifyRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			writeError(w, apperrors.NewValidationf("malformed request body: %v", err))
			return
		}
	}

	session, err := s.deps.Engine.Clarify(r.Context(), id, req.UserInput, req.UpdatedMetadata)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clarifyResponse{
		Message:       "clarification accepted",
		WorkflowStage: string(session.WorkflowStage),
	})
}

type resultResponse struct {
	SessionID             string                   `json:"session_id"`
	NWBFilePath           string                   `json:"nwb_file_path"`
	ValidationReportPath  string                   `json:"validation_report_path"`
	OverallStatus         string                   `json:"overall_status"`
	LLMValidationSummary  string                   `json:"llm_validation_summary"`
	ValidationIssues      []model.ValidationIssue  `json:"validation_issues"`
}

func (s *server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.deps.Engine.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if session.WorkflowStage != model.StageCompleted {
		writeError(w, apperrors.NewValidationf("session %s is not completed", id))
		return
	}
	if session.ConversionResults == nil || session.ValidationResults == nil {
		writeError(w, apperrors.WrapStorage("completed session missing results", nil))
		return
	}

	writeJSON(w, http.StatusOK, resultResponse{
		SessionID:            session.SessionID,
		NWBFilePath:          session.ConversionResults.ArchivalFilePath,
		ValidationReportPath: session.ValidationResults.ReportFilePath,
		OverallStatus:        string(session.ValidationResults.OverallStatus),
		LLMValidationSummary: session.ValidationResults.Summary,
		ValidationIssues:     session.ValidationResults.Issues,
	})
}

type healthResponse struct {
	Status           string   `json:"status"`
	Version          string   `json:"version"`
	AgentsRegistered []string `json:"agents_registered"`
	CacheConnected   bool     `json:"cache_connected"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	agents := s.deps.Registry.List()
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name)
	}
	cacheConnected := s.deps.Store.CacheConnected(r.Context())
	status := "healthy"
	if !cacheConnected {
		status = "unhealthy"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           status,
		Version:          Version,
		AgentsRegistered: names,
		CacheConnected:   cacheConnected,
	})
}
