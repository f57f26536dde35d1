// Command metadata-worker is a reference implementation of the
// metadata-extraction worker described in spec.md's data flow. The actual
// recording-format parser and the LLM backend are external collaborators
// outside this repository's scope (spec.md §1); this binary exercises the
// workerclient plumbing (self-registration, context access, CallLLM retry)
// around a minimal extraction routine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
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

	port := cfg.WorkerPorts["metadata"]
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	coordinatorURL := fmt.Sprintf("http://%s:%d", cfg.BindHost, cfg.BindPort)

	agentModel := cfg.AgentModels["metadata"]
	var llm workerclient.Provider
	switch cfg.LLMProvider {
	case config.ProviderA:
		llm = workerclient.NewAnthropicProvider(cfg.LLMAPIKey, agentModel.Model, agentModel.MaxTokens, agentModel.Temperature)
	case config.ProviderB:
		llm = workerclient.NewOpenAIProvider(cfg.LLMAPIKey, agentModel.Model, agentModel.MaxTokens, agentModel.Temperature)
	}

	client := workerclient.New(workerclient.Config{
		Name:               "metadata-worker",
		Kind:               model.AgentKindMetadata,
		BaseURL:            baseURL,
		CoordinatorBaseURL: coordinatorURL,
		LLM:                llm,
		Throttle:           workerclient.NewThrottle(60, 5),
		Handler:            handle,
	})

	ctx := context.Background()
	if err := client.Register(ctx, []string{"extract_metadata", "handle_clarification"}); err != nil {
		log.Fatalf("registration failed: %v", err)
	}

	log.Printf("metadata worker listening on %s", baseURL)
	if err := client.ListenAndServe(":" + strconv.Itoa(port)); err != nil {
		log.Fatalf("server error: %v", err)
	}
	_ = os.Stdout
}

// handle dispatches agent_execute messages by action. initialize_session
// extracts metadata and hands off to conversion; handle_clarification
// merges operator input and re-triggers conversion.
func handle(ctx context.Context, env model.Envelope, c *workerclient.Client) (model.Envelope, error) {
	exec, ok := env.Payload.(model.ExecutePayload)
	if !ok {
		return errorReply(env, c.Name, "metadata worker only handles agent_execute messages"), nil
	}

	switch exec.Action {
	case model.ActionInitializeSession:
		return handleInitializeSession(ctx, env, exec, c)
	case model.ActionHandleClarification:
		return handleClarification(ctx, env, exec, c)
	default:
		return errorReply(env, c.Name, fmt.Sprintf("unsupported action %q", exec.Action)), nil
	}
}

func handleInitializeSession(ctx context.Context, env model.Envelope, exec model.ExecutePayload, c *workerclient.Client) (model.Envelope, error) {
	if _, err := c.UpdateContext(ctx, exec.SessionID, map[string]any{
		"workflow_stage": string(model.StageCollectingMetadata),
		"current_agent":  c.Name,
	}); err != nil {
		return model.Envelope{}, err
	}

	session, err := c.GetContext(ctx, exec.SessionID)
	if err != nil {
		return model.Envelope{}, err
	}

	extracted, rawLog, err := extractMetadata(ctx, c, session)
	if err != nil {
		if _, updateErr := c.UpdateContext(ctx, exec.SessionID, map[string]any{
			"workflow_stage":              string(model.StageFailed),
			"requires_user_clarification": true,
			"clarification_prompt":        "automated metadata extraction failed: " + err.Error(),
		}); updateErr != nil {
			return model.Envelope{}, updateErr
		}
		return successReply(env, c.Name, "clarification_requested"), nil
	}

	if _, err := c.UpdateContext(ctx, exec.SessionID, map[string]any{
		"metadata":        extracted,
		"workflow_stage":  string(model.StageConverting),
	}); err != nil {
		return model.Envelope{}, err
	}
	_ = rawLog

	if _, err := c.DispatchNext(ctx, "conversion-worker", model.MessageKindAgentExecute, model.ExecutePayload{
		Action:    model.ActionConvertDataset,
		SessionID: exec.SessionID,
	}); err != nil {
		return model.Envelope{}, err
	}

	return successReply(env, c.Name, "metadata_extracted"), nil
}

func handleClarification(ctx context.Context, env model.Envelope, exec model.ExecutePayload, c *workerclient.Client) (model.Envelope, error) {
	session, err := c.GetContext(ctx, exec.SessionID)
	if err != nil {
		return model.Envelope{}, err
	}

	merged := map[string]any{}
	if session.Metadata != nil {
		merged = metadataToMap(*session.Metadata)
	}
	if updated, ok := exec.Parameters["updated_metadata"].(map[string]any); ok {
		for k, v := range updated {
			merged[k] = v
		}
	}

	if _, err := c.UpdateContext(ctx, exec.SessionID, map[string]any{
		"metadata":                    merged,
		"requires_user_clarification": false,
		"clarification_prompt":        "",
		"workflow_stage":              string(model.StageConverting),
	}); err != nil {
		return model.Envelope{}, err
	}

	if _, err := c.DispatchNext(ctx, "conversion-worker", model.MessageKindAgentExecute, model.ExecutePayload{
		Action:    model.ActionConvertDataset,
		SessionID: exec.SessionID,
	}); err != nil {
		return model.Envelope{}, err
	}

	return successReply(env, c.Name, "clarification_applied"), nil
}

// extractMetadata calls the LLM with a prompt built from the dataset's
// path, format tag and file count (the contents of the free-text metadata
// files are not read). The response is not parsed into structured fields:
// it is stored verbatim as Description and RawExtractionLog, and every
// other field is left unset.
func extractMetadata(ctx context.Context, c *workerclient.Client, session model.Session) (model.MetadataExtractionResult, string, error) {
	prompt := "Extract subject metadata from this dataset description and return a short summary."
	if session.DatasetInfo != nil {
		prompt = fmt.Sprintf("Dataset at %s (format=%s, %d files). Extract subject metadata.",
			session.DatasetInfo.Path, session.DatasetInfo.FormatTag, session.DatasetInfo.FileCount)
	}
	resp, err := c.CallLLM(ctx, prompt, "You are a scientific-metadata extraction assistant. Be concise.")
	if err != nil {
		return model.MetadataExtractionResult{}, "", err
	}
	return model.MetadataExtractionResult{
		Description:      &resp,
		FieldConfidence:  map[string]model.ConfidenceTag{"description": model.ConfidenceMedium},
		RawExtractionLog: resp,
	}, resp, nil
}

func metadataToMap(m model.MetadataExtractionResult) map[string]any {
	out := map[string]any{}
	raw, err := json.Marshal(m)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func successReply(env model.Envelope, name, status string) model.Envelope {
	return model.Envelope{
		MessageID:   env.MessageID,
		SourceAgent: name,
		TargetAgent: env.SourceAgent,
		SessionID:   env.SessionID,
		Kind:        model.MessageKindAgentResponse,
		Payload:     model.ResponsePayload{Status: "success", Fields: map[string]any{"outcome": status}},
	}
}

func errorReply(env model.Envelope, name, message string) model.Envelope {
	return model.Envelope{
		MessageID:   env.MessageID,
		SourceAgent: name,
		TargetAgent: env.SourceAgent,
		SessionID:   env.SessionID,
		Kind:        model.MessageKindAgentResponse,
		Payload:     model.ResponsePayload{Status: "error", Fields: map[string]any{"error": message}},
	}
}
