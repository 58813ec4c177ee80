package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// echoTool is a minimal Tool implementation for registry-level tests.
type echoTool struct {
	def ToolDefinition
}

func (t echoTool) Definition() ToolDefinition { return t.def }

func (t echoTool) Execute(_ context.Context, params json.RawMessage) *models.ToolResult {
	return models.NewToolSuccess(string(params), nil)
}

func newEchoTool(name string, params ...Parameter) echoTool {
	return echoTool{def: ToolDefinition{Name: name, Description: "echo", Parameters: params}}
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newEchoTool("dup")); err != nil {
		t.Fatalf("unexpected error on first registration: %v", err)
	}
	err := r.Register(newEchoTool("dup"))
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if _, ok := err.(*DuplicateToolError); !ok {
		t.Fatalf("expected *DuplicateToolError, got %T: %v", err, err)
	}
}

func TestUnregisterIsNoOpOnAbsence(t *testing.T) {
	r := NewRegistry()
	r.Unregister("never-registered") // must not panic
}

func TestExecuteValidatesRequiredParameter(t *testing.T) {
	r := NewRegistry()
	tool := newEchoTool("greet", Parameter{Name: "name", JSONType: JSONString, Required: true})
	if err := r.Register(tool); err != nil {
		t.Fatalf("register: %v", err)
	}

	result := r.Execute(context.Background(), "greet", json.RawMessage(`{}`))
	if result.Status != models.ToolResultError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "name") {
		t.Errorf("expected error to mention the missing parameter, got %q", result.Error)
	}
}

func TestExecuteValidatesParameterType(t *testing.T) {
	r := NewRegistry()
	tool := newEchoTool("greet", Parameter{Name: "name", JSONType: JSONString, Required: true})
	if err := r.Register(tool); err != nil {
		t.Fatalf("register: %v", err)
	}

	result := r.Execute(context.Background(), "greet", json.RawMessage(`{"name": 123}`))
	if result.Status != models.ToolResultError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if !strings.Contains(strings.ToLower(result.Error), "string") {
		t.Errorf("expected a type error mentioning 'string', got %q", result.Error)
	}
}

func TestExecuteValidatesEnum(t *testing.T) {
	r := NewRegistry()
	tool := newEchoTool("format", Parameter{
		Name: "mode", JSONType: JSONString, Enum: []string{"iso", "human"},
	})
	if err := r.Register(tool); err != nil {
		t.Fatalf("register: %v", err)
	}

	result := r.Execute(context.Background(), "format", json.RawMessage(`{"mode": "bogus"}`))
	if result.Status != models.ToolResultError {
		t.Fatalf("expected error status, got %s", result.Status)
	}

	ok := r.Execute(context.Background(), "format", json.RawMessage(`{"mode": "iso"}`))
	if ok.Status != models.ToolResultSuccess {
		t.Fatalf("expected success for an enumerated value, got %s: %s", ok.Status, ok.Error)
	}
}

func TestExecuteAcceptsExtraParameters(t *testing.T) {
	r := NewRegistry()
	tool := newEchoTool("greet", Parameter{Name: "name", JSONType: JSONString, Required: true})
	if err := r.Register(tool); err != nil {
		t.Fatalf("register: %v", err)
	}

	result := r.Execute(context.Background(), "greet", json.RawMessage(`{"name": "ada", "unknown_param": "value"}`))
	if result.Status != models.ToolResultSuccess {
		t.Fatalf("expected extra parameters to be accepted, got %s: %s", result.Status, result.Error)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.Execute(context.Background(), "never-registered", json.RawMessage(`{}`))
	if result.Status != models.ToolResultError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "unknown") {
		t.Errorf("expected an 'unknown tool' error, got %q", result.Error)
	}
}

func TestExecuteEffectiveDistinguishesDisabledFromUnknown(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newEchoTool("registered_but_disabled")); err != nil {
		t.Fatalf("register: %v", err)
	}

	disabled := r.ExecuteEffective(context.Background(), "registered_but_disabled", json.RawMessage(`{}`), []string{"some_other_tool"})
	if disabled.Status != models.ToolResultError {
		t.Fatalf("expected error status, got %s", disabled.Status)
	}
	if !strings.Contains(disabled.Error, "disabled") {
		t.Errorf("expected a 'disabled' error for a registered-but-not-effective tool, got %q", disabled.Error)
	}

	unknown := r.ExecuteEffective(context.Background(), "truly_unregistered", json.RawMessage(`{}`), []string{"registered_but_disabled"})
	if unknown.Status != models.ToolResultError {
		t.Fatalf("expected error status, got %s", unknown.Status)
	}
	if !strings.Contains(unknown.Error, "unknown") {
		t.Errorf("expected an 'unknown' error for a never-registered tool, got %q", unknown.Error)
	}

	enabled := r.ExecuteEffective(context.Background(), "registered_but_disabled", json.RawMessage(`{}`), []string{"registered_but_disabled"})
	if enabled.Status != models.ToolResultSuccess {
		t.Fatalf("expected success for a tool present in the effective set, got %s: %s", enabled.Status, enabled.Error)
	}
}

func TestExecutePanicRecovery(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(panickyTool{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	result := r.Execute(context.Background(), "panicky", json.RawMessage(`{}`))
	if result.Status != models.ToolResultError {
		t.Fatalf("expected a panic to be converted into an error result, got %s", result.Status)
	}
}

type panickyTool struct{}

func (panickyTool) Definition() ToolDefinition {
	return ToolDefinition{Name: "panicky", Description: "always panics"}
}

func (panickyTool) Execute(context.Context, json.RawMessage) *models.ToolResult {
	panic("boom")
}

func TestDefinitionsSkipsUnregisteredNames(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newEchoTool("present")); err != nil {
		t.Fatalf("register: %v", err)
	}

	defs := r.Definitions([]string{"present", "missing"})
	if len(defs) != 1 || defs[0].Name != "present" {
		t.Fatalf("expected only the registered tool's definition, got %+v", defs)
	}
}
