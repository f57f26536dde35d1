// Package model defines the coordinator's core data entities: the Session
// aggregate, the structures it accumulates stage by stage, and the
// in-memory AgentRecord used by the agent registry.
package model

import "time"

type (
	// WorkflowStage is the coarse-grained phase label stored on a Session.
	// Transitions are monotonic in the happy path; FAILED is reachable from
	// any non-terminal stage and CONVERTING is reachable again from FAILED
	// after a successful clarification.
	WorkflowStage string

	// ConfidenceTag labels how reliable an extracted metadata field is.
	ConfidenceTag string

	// ValidationStatus is the overall outcome of the evaluation stage.
	ValidationStatus string

	// IssueSeverity classifies a single ValidationIssue.
	IssueSeverity string

	// AgentKind identifies which role a worker plays.
	AgentKind string
)

const (
	StageInitialized         WorkflowStage = "initialized"
	StageCollectingMetadata  WorkflowStage = "collecting_metadata"
	StageConverting          WorkflowStage = "converting"
	StageEvaluating          WorkflowStage = "evaluating"
	StageCompleted           WorkflowStage = "completed"
	StageFailed              WorkflowStage = "failed"

	ConfidenceHigh   ConfidenceTag = "high"
	ConfidenceMedium ConfidenceTag = "medium"
	ConfidenceLow    ConfidenceTag = "low"

	ValidationPassed               ValidationStatus = "passed"
	ValidationPassedWithWarnings   ValidationStatus = "passed_with_warnings"
	ValidationFailed               ValidationStatus = "failed"

	SeverityCritical                IssueSeverity = "CRITICAL"
	SeverityBestPracticeViolation   IssueSeverity = "BEST_PRACTICE_VIOLATION"
	SeverityBestPracticeSuggestion  IssueSeverity = "BEST_PRACTICE_SUGGESTION"

	AgentKindMetadata   AgentKind = "metadata"
	AgentKindConversion AgentKind = "conversion"
	AgentKindEvaluation AgentKind = "evaluation"
)

type (
	// AgentExecution is one entry in a Session's agent_history: a record of
	// a single worker's execution window and outcome.
	AgentExecution struct {
		AgentName string    `json:"agent_name"`
		StartedAt time.Time `json:"started_at"`
		EndedAt   time.Time `json:"ended_at,omitempty"`
		Outcome   string    `json:"outcome"`
		Error     string    `json:"error,omitempty"`
	}

	// DatasetInfo describes the input dataset discovered at initialize time.
	DatasetInfo struct {
		Path                  string   `json:"path"`
		FormatTag             string   `json:"format_tag"`
		TotalBytes            int64    `json:"total_bytes"`
		FileCount             int      `json:"file_count"`
		HasFreeTextMetadata   bool     `json:"has_free_text_metadata"`
		FreeTextMetadataFiles []string `json:"free_text_metadata_files,omitempty"`
		ChannelCount          *int     `json:"channel_count,omitempty"`
		SamplingRateHz        *float64 `json:"sampling_rate_hz,omitempty"`
		DurationSeconds       *float64 `json:"duration_seconds,omitempty"`
	}

	// MetadataExtractionResult is the structured output of the metadata
	// worker, assembled from free-text and format-native sources.
	MetadataExtractionResult struct {
		SubjectID         *string                  `json:"subject_id,omitempty"`
		Species           *string                  `json:"species,omitempty"`
		Age               *string                  `json:"age,omitempty"`
		Sex               *string                  `json:"sex,omitempty"`
		SessionStartTime  *time.Time               `json:"session_start_time,omitempty"`
		Experimenter      *string                  `json:"experimenter,omitempty"`
		Device            *string                  `json:"device,omitempty"`
		Manufacturer      *string                  `json:"manufacturer,omitempty"`
		RecordingLocation *string                  `json:"recording_location,omitempty"`
		Description       *string                  `json:"description,omitempty"`
		FieldConfidence   map[string]ConfidenceTag `json:"field_confidence,omitempty"`
		RawExtractionLog  string                   `json:"raw_extraction_log,omitempty"`
	}

	// ConversionResults is the structured output of the conversion worker.
	ConversionResults struct {
		ArchivalFilePath string   `json:"nwb_path"`
		DurationSeconds  float64  `json:"duration_seconds"`
		Warnings         []string `json:"warnings,omitempty"`
		Errors           []string `json:"errors,omitempty"`
		Log              string   `json:"log,omitempty"`
	}

	// ValidationIssue is a single finding from the evaluation worker.
	ValidationIssue struct {
		Severity IssueSeverity `json:"severity"`
		Message  string        `json:"message"`
		Location string        `json:"location,omitempty"`
		Check    string        `json:"check,omitempty"`
	}

	// ValidationResults is the structured output of the evaluation worker.
	ValidationResults struct {
		OverallStatus     ValidationStatus        `json:"overall_status"`
		SeverityCounts    map[IssueSeverity]int   `json:"severity_counts,omitempty"`
		Issues            []ValidationIssue       `json:"issues,omitempty"`
		CompletenessScore float64                 `json:"completeness_score"`
		BestPracticeScore float64                 `json:"best_practices_score"`
		ReportFilePath    string                  `json:"report_path"`
		Summary           string                  `json:"summary,omitempty"`
	}

	// Session is the root aggregate owned exclusively by the Context Store.
	Session struct {
		SessionID                 string                    `json:"session_id"`
		WorkflowStage             WorkflowStage             `json:"workflow_stage"`
		CreatedAt                 time.Time                 `json:"created_at"`
		LastUpdated               time.Time                 `json:"last_updated"`
		CurrentAgent              string                    `json:"current_agent,omitempty"`
		AgentHistory              []AgentExecution          `json:"agent_history,omitempty"`
		DatasetInfo               *DatasetInfo              `json:"dataset_info,omitempty"`
		Metadata                  *MetadataExtractionResult `json:"metadata,omitempty"`
		ConversionResults         *ConversionResults        `json:"conversion_results,omitempty"`
		ValidationResults         *ValidationResults        `json:"validation_results,omitempty"`
		RequiresUserClarification bool                      `json:"requires_user_clarification"`
		ClarificationPrompt       string                    `json:"clarification_prompt,omitempty"`

		// SchemaVersion is bumped whenever the on-disk JSON shape changes.
		// Store.Create writes CurrentSchemaVersion onto new sessions; the
		// filesystem backup loader does not check it when reading.
		SchemaVersion int `json:"schema_version"`
	}

	// AgentRecord describes one registered worker. Not persisted: it lives
	// only in the in-process Agent Registry.
	AgentRecord struct {
		Name         string    `json:"name"`
		Kind         AgentKind `json:"kind"`
		BaseURL      string    `json:"base_url"`
		Capabilities []string  `json:"capabilities,omitempty"`

		// RegisteredAt is the timestamp of the worker's most recent
		// self-registration. No heartbeat consults it today; it is retained
		// so a future staleness check can be layered on without a data model
		// change.
		RegisteredAt time.Time `json:"registered_at"`
	}
)

// CurrentSchemaVersion is written onto every newly created Session.
const CurrentSchemaVersion = 1

// ProgressPercentage implements the fixed stage→progress projection from
// spec.md §4.5.
func ProgressPercentage(stage WorkflowStage) int {
	switch stage {
	case StageInitialized:
		return 10
	case StageCollectingMetadata:
		return 25
	case StageConverting:
		return 50
	case StageEvaluating:
		return 75
	case StageCompleted:
		return 100
	case StageFailed:
		return 0
	default:
		return 0
	}
}

// StatusMessage returns the fixed human-readable string per stage.
func StatusMessage(stage WorkflowStage) string {
	switch stage {
	case StageInitialized:
		return "Session initialized, dispatching metadata extraction"
	case StageCollectingMetadata:
		return "Extracting dataset metadata"
	case StageConverting:
		return "Converting dataset to archival format"
	case StageEvaluating:
		return "Validating archival file"
	case StageCompleted:
		return "Conversion complete"
	case StageFailed:
		return "Workflow failed, awaiting clarification"
	default:
		return "Unknown stage"
	}
}
