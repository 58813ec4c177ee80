// Package runner implements the agent runner (C5): the per-turn orchestration
// that ties the rate limiter (C3), tool registry (C2), and provider adapters
// (C1) into one bounded tool-calling loop.
//
// State machine for one turn:
//
//	idle ──acquire──▶ awaiting_model ──(no tool calls)──▶ done
//	                  awaiting_model ──(tool calls)─────▶ executing_tools ──▶ awaiting_model
//	                  awaiting_model ──(iteration==max)─▶ finalizing ──▶ done
package runner

import (
	"context"
	"fmt"
	"strconv"

	"github.com/haasonsaas/agentcore/internal/providers"
	"github.com/haasonsaas/agentcore/internal/ratelimit"
	"github.com/haasonsaas/agentcore/internal/tools"
	"github.com/haasonsaas/agentcore/internal/tools/builtin"
	"github.com/haasonsaas/agentcore/internal/tools/policy"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// DefaultMaxToolIterations bounds the tool-call loop when AgentConfig leaves
// MaxToolIterations unset.
const DefaultMaxToolIterations = 10

// AgentConfig is one agent's static configuration, matching the data model's
// agent definition: provider selection, generation parameters, rate
// limiting, and tool access.
type AgentConfig struct {
	ID                  int
	Provider            providers.Variant
	ModelName           string
	BaseURL             string
	APIKey              string
	SystemPrompt        string
	Temperature         float64
	MaxTokens           int
	RateLimitEnabled    bool
	RateLimitRPM        int
	ToolProfile         policy.Profile
	ToolsAllow          []string
	ToolsDeny           []string
	MemorySearchEnabled bool
	MaxToolIterations   int
}

// BuildProvider constructs the provider adapter for cfg.Provider via a
// closed switch on Variant, not a string-keyed factory, so an
// unrecognized variant is a ConfigurationError, not a typo silently routed
// somewhere plausible.
func BuildProvider(ctx context.Context, cfg AgentConfig) (providers.Provider, error) {
	switch cfg.Provider {
	case providers.VariantAnthropic:
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.ModelName,
		})
	case providers.VariantGemini:
		return providers.NewGeminiProvider(ctx, providers.GeminiConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.ModelName,
		})
	case providers.VariantOpenAICompat:
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.ModelName,
		})
	case providers.VariantOllama:
		return providers.NewOllamaProvider(providers.OllamaConfig{
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.ModelName,
		}), nil
	default:
		return nil, &providers.ConfigurationError{Provider: string(cfg.Provider), Message: "unknown provider variant"}
	}
}

// Request is everything one turn needs beyond the agent's static config.
type Request struct {
	Agent       AgentConfig
	Provider    providers.Provider
	SessionID   string
	History     []models.Message
	UserMessage string
	EnableTools bool

	// SystemPrompt, when non-empty, overrides Agent.SystemPrompt for this
	// turn only.
	SystemPrompt string
	// ToolNames, when non-nil, further restricts the effective tool set
	// computed from the agent's profile/allow/deny to this list. An
	// empty-but-non-nil slice disables tools for this turn regardless of
	// EnableTools.
	ToolNames []string
	// MaxToolIterations, when non-zero, overrides Agent.MaxToolIterations /
	// DefaultMaxToolIterations for this turn only.
	MaxToolIterations int
}

// Result is what one turn produces.
type Result struct {
	Response *models.LLMResponse
	History  []models.Message
	Events   []models.ToolEvent
}

// Runner orchestrates the rate limiter, tool registry, and provider for one
// agent's turns. A Runner is not bound to a single agent: AgentConfig and
// Provider travel with each Request, so one Runner can serve a fleet of
// agents sharing a rate-limit registry and a static tool set.
type Runner struct {
	staticTools []tools.Tool
	searcher    builtin.Searcher
	limiters    *ratelimit.Registry
}

// New builds a Runner. staticTools are the tools available regardless of
// agent/session (get_datetime, calculator, web_search); searcher, if
// non-nil, backs a freshly bound memory_search tool on every turn that
// enables it. limiters is shared process-wide across every agent.
func New(staticTools []tools.Tool, searcher builtin.Searcher, limiters *ratelimit.Registry) *Runner {
	return &Runner{staticTools: staticTools, searcher: searcher, limiters: limiters}
}

// Run executes the per-turn algorithm: rate-limit acquisition, tool-set
// resolution, and a bounded tool-calling loop against req.Provider.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Agent

	// idle -> awaiting_model: acquire a rate-limit slot before the first call.
	if cfg.RateLimitEnabled && cfg.RateLimitRPM > 0 {
		if _, err := r.limiters.GetOrCreate(cfg.ID, cfg.RateLimitRPM).AcquireAsync(ctx); err != nil {
			return nil, fmt.Errorf("rate limit acquire: %w", err)
		}
	}

	registry := r.buildRegistry(cfg, req.SessionID)
	effective := policy.Resolve(cfg.ToolProfile, cfg.ToolsAllow, cfg.ToolsDeny, registry.Names())
	if req.ToolNames != nil {
		effective = intersectNames(effective, req.ToolNames)
	}
	toolsEnabled := req.EnableTools && len(effective) > 0

	var schemas []providers.ToolSchema
	if toolsEnabled {
		schemas = renderToolSchemas(registry, effective)
	}

	systemPrompt := cfg.SystemPrompt
	if req.SystemPrompt != "" {
		systemPrompt = req.SystemPrompt
	}

	messages := make([]models.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, models.User(req.UserMessage))

	maxIter := req.MaxToolIterations
	if maxIter <= 0 {
		maxIter = cfg.MaxToolIterations
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxToolIterations
	}

	var events []models.ToolEvent

	// awaiting_model <-> executing_tools loop, bounded by maxIter.
	for iter := 0; iter < maxIter; iter++ {
		resp, err := req.Provider.Generate(ctx, &providers.GenerateRequest{
			Model:       cfg.ModelName,
			System:      systemPrompt,
			Messages:    messages,
			Tools:       schemas,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		if !resp.HasToolCalls() {
			messages = append(messages, models.Assistant(resp.Content))
			return &Result{Response: resp, History: messages, Events: events}, nil
		}

		messages = append(messages, models.Assistant(resp.Content, resp.ToolCalls...))
		for _, call := range resp.ToolCalls {
			result := registry.ExecuteEffective(ctx, call.Name, call.Arguments, effective)
			events = append(events, models.ToolEvent{
				ToolCallID: call.ID,
				Name:       call.Name,
				Arguments:  call.Arguments,
				Result:     result,
			})
			messages = append(messages, models.ToolResultMessage(call.ID, toolResultContent(result), call.Name))
		}
	}

	// finalizing: the budget is exhausted, make one final call with no tools
	// so the model can summarize rather than loop forever.
	final, err := req.Provider.Generate(ctx, &providers.GenerateRequest{
		Model:       cfg.ModelName,
		System:      systemPrompt,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	messages = append(messages, models.Assistant(final.Content))
	return &Result{Response: final, History: messages, Events: events}, nil
}

// ChatRequest is the reduced parameter set Chat accepts: a thin wrapper
// over Run for callers that only want text in, text out.
type ChatRequest struct {
	Agent        AgentConfig
	Provider     providers.Provider
	SessionID    string
	UserMessage  string
	History      []models.Message
	SystemPrompt string
	EnableTools  bool
}

// Chat appends a user message to history, runs one turn via Run, and
// extracts response.Content as plain text.
func (r *Runner) Chat(ctx context.Context, req ChatRequest) (string, []models.Message, error) {
	result, err := r.Run(ctx, Request{
		Agent:        req.Agent,
		Provider:     req.Provider,
		SessionID:    req.SessionID,
		History:      req.History,
		UserMessage:  req.UserMessage,
		EnableTools:  req.EnableTools,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		return "", nil, err
	}
	return result.Response.Content, result.History, nil
}

// intersectNames restricts effective to names also present in allowed,
// preserving effective's order. Used when a single call narrows the tool
// set below the agent's standing profile/allow/deny resolution.
func intersectNames(effective, allowed []string) []string {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, n := range allowed {
		allowedSet[n] = struct{}{}
	}
	out := make([]string, 0, len(effective))
	for _, n := range effective {
		if _, ok := allowedSet[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// buildRegistry assembles the per-turn tool registry: the runner's static
// tools plus, when enabled, a memory_search tool freshly bound to this
// turn's agent/session: memory_search is bound to the runner's
// agent_id/session_id, so it cannot be a single process-wide registration
// shared across agents.
func (r *Runner) buildRegistry(cfg AgentConfig, sessionID string) *tools.Registry {
	registry := tools.NewRegistry()
	for _, t := range r.staticTools {
		registry.Register(t)
	}
	if cfg.MemorySearchEnabled && r.searcher != nil {
		registry.Register(builtin.NewMemorySearch(r.searcher, strconv.Itoa(cfg.ID), sessionID))
	}
	return registry
}

func renderToolSchemas(registry *tools.Registry, effective []string) []providers.ToolSchema {
	defs := registry.Definitions(effective)
	schemas := make([]providers.ToolSchema, 0, len(defs))
	for _, d := range defs {
		schemas = append(schemas, providers.ToolSchema{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema(),
		})
	}
	return schemas
}

// toolResultContent is what gets written into the tool-role message's
// content: the output on success, the error text on failure.
func toolResultContent(result *models.ToolResult) string {
	if result.Status == models.ToolResultError {
		if result.Output != "" {
			return result.Output
		}
		return result.Error
	}
	return result.Output
}
