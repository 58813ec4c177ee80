package builtin

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/agentcore/internal/tools"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// WebSearch implements the web_search built-in tool as a stub; it returns
// a structured empty result with a note rather than performing a live
// search.
type WebSearch struct{}

func (WebSearch) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "web_search",
		Description: "Searches the web for the given query (stub implementation).",
		Parameters: []tools.Parameter{
			{Name: "query", JSONType: tools.JSONString, Required: true, Description: "Search query."},
			{Name: "num_results", JSONType: tools.JSONNumber, Description: "Maximum number of results.", Default: 5},
		},
	}
}

func (WebSearch) Execute(_ context.Context, params json.RawMessage) *models.ToolResult {
	var input struct {
		Query      string `json:"query"`
		NumResults int    `json:"num_results"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return models.NewToolError("invalid parameters: " + err.Error())
	}
	return models.NewToolSuccess("web search is not configured in this deployment", map[string]any{
		"query":   input.Query,
		"results": []any{},
		"note":    "web_search is a stub; no live index is wired",
	})
}
