package builtin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/haasonsaas/agentcore/internal/tools"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// DateTime implements the get_datetime built-in tool.
type DateTime struct{}

func (DateTime) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "get_datetime",
		Description: "Returns the current date and time in the given timezone.",
		Parameters: []tools.Parameter{
			{Name: "timezone", JSONType: tools.JSONString, Description: `IANA timezone name, default "UTC"`, Default: "UTC"},
			{Name: "output_format", JSONType: tools.JSONString, Description: "iso or human", Enum: []string{"iso", "human"}, Default: "iso"},
		},
	}
}

func (DateTime) Execute(_ context.Context, params json.RawMessage) *models.ToolResult {
	var input struct {
		Timezone     string `json:"timezone"`
		OutputFormat string `json:"output_format"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return models.NewToolError("invalid parameters: " + err.Error())
	}

	tz := input.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		// Invalid timezone falls back to UTC silently.
		loc = time.UTC
		tz = "UTC"
	}
	now := time.Now().In(loc)

	format := input.OutputFormat
	if format == "" {
		format = "iso"
	}
	var rendered string
	switch format {
	case "human":
		rendered = now.Format("Monday, January 02, 2006 at 03:04 PM MST")
	default:
		rendered = now.Format(time.RFC3339)
	}

	return models.NewToolSuccess(rendered, map[string]any{
		"timestamp": rendered,
		"timezone":  tz,
		"year":      now.Year(),
		"month":     int(now.Month()),
		"day":       now.Day(),
		"hour":      now.Hour(),
		"minute":    now.Minute(),
	})
}
