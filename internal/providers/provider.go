// Package providers translates between the canonical message model
// (pkg/models) and each upstream LLM provider's wire format, issuing one
// blocking request/response cycle per Generate call (C1).
package providers

import (
	"context"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// Provider is the capability every adapter variant implements. Selection is
// a closed switch on Variant, not a string-keyed factory.
type Provider interface {
	// Generate issues one request/response cycle. It never returns an error
	// for transport or decode failures — those are reported as
	// LLMResponse{StopReason: StopError}.
	// The one exception is a ConfigurationError (e.g. missing API key),
	// which does propagate since the caller cannot act on the turn at all.
	Generate(ctx context.Context, req *GenerateRequest) (*models.LLMResponse, error)

	// Name returns the provider's identifier, e.g. "anthropic".
	Name() string
}

// Variant is the closed set of supported provider wire dialects.
type Variant string

const (
	VariantAnthropic    Variant = "anthropic"
	VariantGemini       Variant = "gemini"
	VariantOpenAICompat Variant = "openai"
	VariantOllama       Variant = "ollama"
)

// GenerateRequest carries everything one Generate call needs.
type GenerateRequest struct {
	Model         string
	System        string
	Messages      []models.Message
	Tools         []ToolSchema
	Temperature   float64
	MaxTokens     int
	StopSequences []string
}

// ToolSchema is the provider-independent rendering of a tool definition that
// C2 produces and C1 translates into each provider's dialect.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-schema-shaped object
}

// ConfigurationError signals a setup problem (missing SDK dependency, unknown
// provider, missing required field) that prevents the turn from completing
// at all. Unlike ProviderError, this propagates to the caller.
type ConfigurationError struct {
	Provider string
	Message  string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return e.Message
	}
	return e.Provider + ": " + e.Message
}
