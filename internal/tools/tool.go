// Package tools holds the tool registry (C2): definitions, parameter
// validation, dispatch, and the built-in tool set every runner wires in.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// JSONType is the declared type of one tool parameter.
type JSONType string

const (
	JSONString  JSONType = "string"
	JSONNumber  JSONType = "number"
	JSONBoolean JSONType = "boolean"
	JSONArray   JSONType = "array"
	JSONObject  JSONType = "object"
)

// Parameter describes one named input a tool accepts.
type Parameter struct {
	Name        string
	JSONType    JSONType
	Description string
	Required    bool
	Default     any
	Enum        []string
}

// ToolDefinition is the provider-independent description of a tool: name,
// description, and its parameter list.
type ToolDefinition struct {
	Name            string
	Description     string
	Parameters      []Parameter
	RequireApproval bool
	AllowInSandbox  bool
}

// Schema renders the definition as a JSON-schema object, the shape every
// provider adapter's tool-translation step (C1) expects.
func (d ToolDefinition) Schema() map[string]any {
	properties := make(map[string]any, len(d.Parameters))
	var required []string
	for _, p := range d.Parameters {
		prop := map[string]any{"type": string(p.JSONType)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Tool is one executable capability the model may invoke. Execute must never
// rely on panics for ordinary error signaling; the registry recovers from a
// panic but treats it purely as a last-resort safety net.
type Tool interface {
	Definition() ToolDefinition
	Execute(ctx context.Context, params json.RawMessage) *models.ToolResult
}

// DuplicateToolError is returned by Register when a tool name already exists.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tools: duplicate tool registration: %s", e.Name)
}
