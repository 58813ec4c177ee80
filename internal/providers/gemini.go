package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/haasonsaas/agentcore/pkg/models"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
}

// GeminiProvider implements Provider for Google's Gemini generateContent API.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{Provider: "gemini", Message: "api key is required"}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ConfigurationError{Provider: "gemini", Message: fmt.Sprintf("create client: %v", err)}
	}
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = "gemini-2.0-flash"
	}
	return &GeminiProvider{client: client, defaultModel: defaultModel}, nil
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string { return "gemini" }

// Generate issues one non-streaming Models.GenerateContent call.
func (p *GeminiProvider) Generate(ctx context.Context, req *GenerateRequest) (*models.LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		return nil, &ConfigurationError{Provider: "gemini", Message: "model is required"}
	}

	contents, err := convertGeminiMessages(req.Messages)
	if err != nil {
		return errorResponse(model, err), nil
	}

	config := buildGeminiConfig(req)

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return errorResponse(model, err), nil
	}
	if len(resp.Candidates) == 0 {
		return errorResponse(model, fmt.Errorf("no candidates returned")), nil
	}

	return decodeGeminiResponse(resp, model), nil
}

func decodeGeminiResponse(resp *genai.GenerateContentResponse, model string) *models.LLMResponse {
	out := &models.LLMResponse{Model: model, StopReason: models.StopEndTurn}

	candidate := resp.Candidates[0]
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	var text strings.Builder
	if candidate.Content != nil {
		for i, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil || len(args) == 0 {
					args = json.RawMessage(`{}`)
				}
				// Gemini never assigns its own call IDs, so synthesize one
				// from the index within this response.
				out.ToolCalls = append(out.ToolCalls, models.ToolCall{
					ID:        "call_" + strconv.Itoa(i),
					Name:      part.FunctionCall.Name,
					Arguments: args,
				})
			}
		}
	}
	out.Content = text.String()

	if len(out.ToolCalls) > 0 {
		out.StopReason = models.StopToolUse
		return out
	}
	switch candidate.FinishReason {
	case genai.FinishReasonMaxTokens:
		out.StopReason = models.StopMaxTokens
	case genai.FinishReasonStop:
		out.StopReason = models.StopEndTurn
	}
	return out
}

// convertGeminiMessages translates the canonical message list into Gemini's
// Content/Part shape. System messages are filtered out since Gemini carries
// the system prompt out of band (GenerateContentConfig.SystemInstruction).
func convertGeminiMessages(messages []models.Message) ([]*genai.Content, error) {
	toolNames := map[string]string{}
	for _, msg := range messages {
		for _, tc := range msg.ToolCalls {
			toolNames[tc.ID] = tc.Name
		}
	}

	var result []*genai.Content
	for _, msg := range messages {
		if msg.Role == models.RoleSystem {
			continue
		}

		content := &genai.Content{}
		switch msg.Role {
		case models.RoleAssistant:
			content.Role = genai.RoleModel
		default:
			content.Role = genai.RoleUser
		}

		if msg.Content != "" {
			content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
		}

		for _, tc := range msg.ToolCalls {
			var args map[string]any
			raw := tc.Arguments
			if len(raw) == 0 {
				raw = json.RawMessage(`{}`)
			}
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("gemini: invalid tool call arguments for %s: %w", tc.Name, err)
			}
			content.Parts = append(content.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
			})
		}

		if msg.Role == models.RoleTool {
			var response map[string]any
			if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
				response = map[string]any{"result": msg.Content}
			}
			name := msg.Name
			if name == "" {
				name = toolNames[msg.ToolCallID]
			}
			content.Parts = append(content.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{Name: name, Response: response},
			})
		}

		if len(content.Parts) > 0 {
			result = append(result, content)
		}
	}
	return result, nil
}

func buildGeminiConfig(req *GenerateRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if system := strings.TrimSpace(req.System); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if len(req.StopSequences) > 0 {
		config.StopSequences = req.StopSequences
	}
	if len(req.Tools) > 0 {
		config.Tools = convertGeminiTools(req.Tools)
	}
	return config
}

// convertGeminiTools wraps every tool's function declaration into a single
// genai.Tool, the envelope Gemini's function-calling API expects.
func convertGeminiTools(tools []ToolSchema) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  jsonSchemaToGeminiSchema(params),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// jsonSchemaToGeminiSchema converts a JSON-schema-shaped map to Gemini's
// Schema type.
func jsonSchemaToGeminiSchema(schemaMap map[string]any) *genai.Schema {
	if schemaMap == nil {
		return nil
	}
	schema := &genai.Schema{}

	if t, ok := schemaMap["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}
	if enum, ok := schemaMap["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	if props, ok := schemaMap["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = jsonSchemaToGeminiSchema(propMap)
			}
		}
	}
	if required, ok := schemaMap["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := schemaMap["items"].(map[string]any); ok {
		schema.Items = jsonSchemaToGeminiSchema(items)
	}
	return schema
}
