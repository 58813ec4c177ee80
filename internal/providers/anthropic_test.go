package providers

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/haasonsaas/agentcore/pkg/models"
)

func TestNewAnthropicProviderRequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicProvider(AnthropicConfig{}); err == nil {
		t.Fatal("expected a ConfigurationError when no API key is set")
	} else if _, ok := err.(*ConfigurationError); !ok {
		t.Fatalf("expected *ConfigurationError, got %T: %v", err, err)
	}
}

func TestNewAnthropicProviderDefaultsModel(t *testing.T) {
	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.defaultModel == "" {
		t.Error("expected a default model to be applied")
	}
	if p.Name() != "anthropic" {
		t.Errorf("expected name 'anthropic', got %q", p.Name())
	}
}

func TestConvertAnthropicMessages(t *testing.T) {
	tests := []struct {
		name     string
		messages []models.Message
		wantErr  bool
	}{
		{
			name:     "simple user message",
			messages: []models.Message{models.User("Hello!")},
		},
		{
			name: "system message is filtered out",
			messages: []models.Message{
				models.System("You are helpful."),
				models.User("Hello!"),
			},
		},
		{
			name: "assistant message with tool call",
			messages: []models.Message{
				models.Assistant("Let me check that.", models.ToolCall{
					ID:        "call_123",
					Name:      "get_weather",
					Arguments: json.RawMessage(`{"city":"London"}`),
				}),
			},
		},
		{
			name: "tool result becomes a user message",
			messages: []models.Message{
				models.ToolResultMessage("call_123", "Sunny, 72F", "get_weather"),
			},
		},
		{
			name: "invalid tool call arguments",
			messages: []models.Message{
				models.Assistant("", models.ToolCall{
					ID:        "call_123",
					Name:      "get_weather",
					Arguments: json.RawMessage(`not json`),
				}),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := convertAnthropicMessages(tt.messages)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result == nil && len(tt.messages) > 0 {
				t.Fatal("expected a non-nil message list")
			}
		})
	}
}

func TestConvertAnthropicMessagesSkipsSystemRole(t *testing.T) {
	result, err := convertAnthropicMessages([]models.Message{
		models.System("be concise"),
		models.User("hi"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected the system message to be filtered out, got %d messages", len(result))
	}
}

func TestConvertAnthropicTools(t *testing.T) {
	tools := []ToolSchema{
		{
			Name:        "get_weather",
			Description: "Looks up current weather.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string"},
				},
				"required": []string{"city"},
			},
		},
	}

	result, err := convertAnthropicTools(tools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected one converted tool, got %d", len(result))
	}
	if result[0].OfTool == nil {
		t.Fatal("expected OfTool to be populated")
	}
	if result[0].OfTool.Name != "get_weather" {
		t.Errorf("expected tool name 'get_weather', got %q", result[0].OfTool.Name)
	}
}

func TestMapAnthropicStopReason(t *testing.T) {
	tests := []struct {
		name         string
		reason       anthropic.StopReason
		hasToolCalls bool
		want         models.StopReason
	}{
		{"end turn", anthropic.StopReasonEndTurn, false, models.StopEndTurn},
		{"max tokens", anthropic.StopReasonMaxTokens, false, models.StopMaxTokens},
		{"tool use flag", anthropic.StopReasonToolUse, true, models.StopToolUse},
		{"stop sequence", anthropic.StopReasonStopSequence, false, models.StopStopSequence},
		{"unknown flag falls back to end_turn", anthropic.StopReason("something_new"), false, models.StopEndTurn},
		{"tool calls force tool_use regardless of wire value", anthropic.StopReasonEndTurn, true, models.StopToolUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapAnthropicStopReason(tt.reason, tt.hasToolCalls)
			if got != tt.want {
				t.Errorf("mapAnthropicStopReason(%v, %v) = %v, want %v", tt.reason, tt.hasToolCalls, got, tt.want)
			}
		})
	}
}
