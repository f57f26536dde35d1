// Package config loads the coordinator's environment-based configuration
// (spec.md §6.6). There are no config files: every recognized option is an
// environment variable, and startup aborts with an apperrors.ConfigError if
// a required key is absent.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/archiveflow/coordinator/apperrors"
)

// Provider selects which LLM provider a worker's CallLLM targets.
type Provider string

const (
	ProviderA Provider = "A" // Anthropic
	ProviderB Provider = "B" // OpenAI
)

// AgentModelConfig is the per-agent-kind model tuning the spec requires:
// one model name, temperature, and max-tokens value per worker kind.
type AgentModelConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Config is the coordinator's fully-resolved startup configuration.
type Config struct {
	CacheURL         string
	CacheSessionTTL  time.Duration
	SessionBasePath  string
	OutputBasePath   string
	BindHost         string
	BindPort         int
	WorkerPorts      map[string]int // keyed by agent kind: "metadata", "conversion", "evaluation"
	LLMProvider      Provider
	LLMAPIKey        string
	AgentModels      map[string]AgentModelConfig // keyed by agent kind
}

// Load reads and validates the coordinator's configuration from the
// process environment. Required keys are listed inline; missing ones
// produce a single aggregated ConfigError.
func Load() (Config, error) {
	var missing []string
	req := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		CacheURL:        req("COORDINATOR_CACHE_URL"),
		SessionBasePath: req("COORDINATOR_SESSION_BASE_PATH"),
		OutputBasePath:  req("COORDINATOR_OUTPUT_BASE_PATH"),
		BindHost:        envOr("COORDINATOR_BIND_HOST", "0.0.0.0"),
		LLMAPIKey:       req("COORDINATOR_LLM_API_KEY"),
	}

	cfg.CacheSessionTTL = envDurationOr("COORDINATOR_CACHE_SESSION_TTL_SECONDS", 24*time.Hour)
	cfg.BindPort = envIntOr("COORDINATOR_BIND_PORT", 8080)

	cfg.WorkerPorts = map[string]int{
		"metadata":   envIntOr("COORDINATOR_METADATA_WORKER_PORT", 8081),
		"conversion": envIntOr("COORDINATOR_CONVERSION_WORKER_PORT", 8082),
		"evaluation": envIntOr("COORDINATOR_EVALUATION_WORKER_PORT", 8083),
	}

	provider := Provider(envOr("COORDINATOR_LLM_PROVIDER", ""))
	if provider != ProviderA && provider != ProviderB {
		missing = append(missing, "COORDINATOR_LLM_PROVIDER (must be \"A\" or \"B\")")
	}
	cfg.LLMProvider = provider

	cfg.AgentModels = map[string]AgentModelConfig{
		"metadata":   loadAgentModel("METADATA"),
		"conversion": loadAgentModel("CONVERSION"),
		"evaluation": loadAgentModel("EVALUATION"),
	}

	if len(missing) > 0 {
		return Config{}, apperrors.WrapConfig("missing required configuration keys: "+joinKeys(missing), nil)
	}
	return cfg, nil
}

func loadAgentModel(prefix string) AgentModelConfig {
	return AgentModelConfig{
		Model:       envOr("COORDINATOR_"+prefix+"_MODEL", ""),
		Temperature: envFloatOr("COORDINATOR_"+prefix+"_TEMPERATURE", 0.2),
		MaxTokens:   envIntOr("COORDINATOR_"+prefix+"_MAX_TOKENS", 4096),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func joinKeys(keys []string) string {
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += k
	}
	return out
}
