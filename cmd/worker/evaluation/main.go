// Command evaluation-worker is a reference implementation of the
// quality-evaluation worker. The actual validator library that inspects
// the archival file is an external collaborator outside this repository's
// scope (spec.md §1); this binary exercises the workerclient plumbing
// around a minimal completeness check plus an LLM-produced human-readable
// summary.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/archiveflow/coordinator/config"
	"github.com/archiveflow/coordinator/model"
	"github.com/archiveflow/coordinator/workerclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	port := cfg.WorkerPorts["evaluation"]
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	coordinatorURL := fmt.Sprintf("http://%s:%d", cfg.BindHost, cfg.BindPort)
	outputBase := cfg.OutputBasePath

	agentModel := cfg.AgentModels["evaluation"]
	var llm workerclient.Provider
	switch cfg.LLMProvider {
	case config.ProviderA:
		llm = workerclient.NewAnthropicProvider(cfg.LLMAPIKey, agentModel.Model, agentModel.MaxTokens, agentModel.Temperature)
	case config.ProviderB:
		llm = workerclient.NewOpenAIProvider(cfg.LLMAPIKey, agentModel.Model, agentModel.MaxTokens, agentModel.Temperature)
	}

	client := workerclient.New(workerclient.Config{
		Name:               "evaluation-worker",
		Kind:               model.AgentKindEvaluation,
		BaseURL:            baseURL,
		CoordinatorBaseURL: coordinatorURL,
		LLM:                llm,
		Throttle:           workerclient.NewThrottle(60, 5),
		Handler: func(ctx context.Context, env model.Envelope, c *workerclient.Client) (model.Envelope, error) {
			return handle(ctx, env, c, outputBase)
		},
	})

	ctx := context.Background()
	if err := client.Register(ctx, []string{"validate_nwb"}); err != nil {
		log.Fatalf("registration failed: %v", err)
	}

	log.Printf("evaluation worker listening on %s", baseURL)
	if err := client.ListenAndServe(":" + strconv.Itoa(port)); err != nil {
		log.Fatalf("server error: %v", err)
	}
	_ = os.Stdout
}

func handle(ctx context.Context, env model.Envelope, c *workerclient.Client, outputBase string) (model.Envelope, error) {
	exec, ok := env.Payload.(model.ExecutePayload)
	if !ok || exec.Action != model.ActionValidateNWB {
		return model.Envelope{
			MessageID:   env.MessageID,
			SourceAgent: c.Name,
			TargetAgent: env.SourceAgent,
			Kind:        model.MessageKindAgentResponse,
			Payload:     model.ResponsePayload{Status: "error", Fields: map[string]any{"error": "evaluation worker only handles validate_nwb"}},
		}, nil
	}

	session, err := c.GetContext(ctx, exec.SessionID)
	if err != nil {
		return model.Envelope{}, err
	}

	issues := []model.ValidationIssue{}
	if session.ConversionResults == nil || session.ConversionResults.ArchivalFilePath == "" {
		issues = append(issues, model.ValidationIssue{
			Severity: model.SeverityCritical,
			Message:  "no archival file path recorded",
			Check:    "archival_file_present",
		})
	}

	summary := "Validation completed with no remarks."
	if resp, err := c.CallLLM(ctx,
		fmt.Sprintf("Summarize the conversion outcome for session %s in one sentence.", exec.SessionID),
		"You are a scientific data quality reviewer. Be concise and factual.",
	); err == nil {
		summary = resp
	}

	status := model.ValidationPassed
	counts := map[model.IssueSeverity]int{}
	for _, iss := range issues {
		counts[iss.Severity]++
	}
	if counts[model.SeverityCritical] > 0 {
		status = model.ValidationFailed
	} else if len(issues) > 0 {
		status = model.ValidationPassedWithWarnings
	}

	reportsDir := filepath.Join(outputBase, "reports")
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return model.Envelope{}, err
	}
	reportPath := filepath.Join(reportsDir, exec.SessionID+".json")
	if err := os.WriteFile(reportPath, []byte(summary), 0o644); err != nil {
		return model.Envelope{}, err
	}

	results := model.ValidationResults{
		OverallStatus:     status,
		SeverityCounts:    counts,
		Issues:            issues,
		CompletenessScore: 1.0,
		BestPracticeScore: 1.0,
		ReportFilePath:    reportPath,
		Summary:           summary,
	}

	stage := model.StageCompleted
	if status == model.ValidationFailed {
		stage = model.StageFailed
	}
	overlay := map[string]any{
		"validation_results": results,
		"workflow_stage":     string(stage),
		"current_agent":      "",
	}
	if status == model.ValidationFailed {
		overlay["requires_user_clarification"] = true
		overlay["clarification_prompt"] = "validation failed: " + summary
	}
	if _, err := c.UpdateContext(ctx, exec.SessionID, overlay); err != nil {
		return model.Envelope{}, err
	}

	return model.Envelope{
		MessageID:   env.MessageID,
		SourceAgent: c.Name,
		TargetAgent: env.SourceAgent,
		SessionID:   env.SessionID,
		Kind:        model.MessageKindAgentResponse,
		Payload:     model.ResponsePayload{Status: "success", Fields: map[string]any{"overall_status": string(status)}},
	}, nil
}
