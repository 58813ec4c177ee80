package builtin

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/agentcore/internal/tools"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// MemoryResult is one hit returned by a Searcher.
type MemoryResult struct {
	Source   string  `json:"source"`
	SourceID string  `json:"source_id"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

// Searcher is the C4 capability this tool delegates to. Defined here rather
// than consumed directly from internal/memory so the tool can be constructed
// (and tested) independently of any particular backend.
type Searcher interface {
	Search(ctx context.Context, query, searchType string, agentID, sessionID string, maxResults int) ([]MemoryResult, error)
}

// MemorySearch implements the memory_search built-in tool, bound to one
// agent/session pair for its lifetime: bound to the runner's
// agent_id/session_id.
type MemorySearch struct {
	searcher  Searcher
	agentID   string
	sessionID string
}

// NewMemorySearch binds a memory_search tool instance to one agent/session.
func NewMemorySearch(searcher Searcher, agentID, sessionID string) *MemorySearch {
	return &MemorySearch{searcher: searcher, agentID: agentID, sessionID: sessionID}
}

func (MemorySearch) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "memory_search",
		Description: "Searches prior conversation history and summaries for relevant context.",
		Parameters: []tools.Parameter{
			{Name: "query", JSONType: tools.JSONString, Required: true, Description: "Search query."},
			{Name: "search_type", JSONType: tools.JSONString, Description: "hybrid, vector, or text", Enum: []string{"hybrid", "vector", "text"}, Default: "hybrid"},
			{Name: "max_results", JSONType: tools.JSONNumber, Description: "Maximum results, clamped to [1,10]."},
		},
	}
}

func (m *MemorySearch) Execute(ctx context.Context, params json.RawMessage) *models.ToolResult {
	if m.searcher == nil {
		return models.NewToolError("memory search is not configured for this agent")
	}

	var input struct {
		Query      string `json:"query"`
		SearchType string `json:"search_type"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return models.NewToolError("invalid parameters: " + err.Error())
	}

	searchType := input.SearchType
	if searchType == "" {
		searchType = "hybrid"
	}
	maxResults := input.MaxResults
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > 10 {
		maxResults = 10
	}

	results, err := m.searcher.Search(ctx, input.Query, searchType, m.agentID, m.sessionID, maxResults)
	if err != nil {
		return models.NewToolError(err.Error())
	}
	if results == nil {
		results = []MemoryResult{}
	}
	output, err := json.Marshal(results)
	if err != nil {
		return models.NewToolError("encode results: " + err.Error())
	}
	return models.NewToolSuccess(string(output), map[string]any{"results": results})
}
