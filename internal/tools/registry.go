package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/haasonsaas/agentcore/pkg/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MaxToolNameLength and MaxToolParamsSize bound the inputs Execute accepts,
// guarding against resource exhaustion from a misbehaving provider response.
const (
	MaxToolNameLength = 256
	MaxToolParamsSize = 10 << 20
)

// Registry holds a name -> Tool mapping. Registration is single-writer;
// lookups and Execute are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	schema map[string]*jsonschema.Schema
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		schema: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool. Duplicate names fail with DuplicateToolError rather
// than silently overwriting — an authoring mistake should surface at startup.
func (r *Registry) Register(t Tool) error {
	name := t.Definition().Name
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return &DuplicateToolError{Name: name}
	}
	r.tools[name] = t
	if compiled, err := compileSchema(name, t.Definition().Schema()); err == nil {
		r.schema[name] = compiled
	}
	return nil
}

// Unregister removes a tool. A no-op if the name was never registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schema, name)
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Definitions renders the definitions for the given tool names, skipping any
// name that isn't registered (the caller is expected to have already
// resolved the effective tool set).
func (r *Registry) Definitions(names []string) []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			defs = append(defs, t.Definition())
		}
	}
	return defs
}

// toolStatus distinguishes a tool call naming a disabled tool (registered but
// outside this turn's effective set) from one naming a tool that was never
// registered at all: disabled and unknown are programmatically
// distinguishable here, so the model gets the more specific signal.
func (r *Registry) toolStatus(name string, effective map[string]struct{}) string {
	r.mu.RLock()
	_, registered := r.tools[name]
	r.mu.RUnlock()
	if !registered {
		return "unknown"
	}
	if _, ok := effective[name]; !ok {
		return "disabled"
	}
	return "enabled"
}

// Execute validates params and runs the named tool, recovering from any
// panic raised inside Execute and converting it to an error ToolResult — the
// registry is the only component that does this.
func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage) (result *models.ToolResult) {
	if len(name) > MaxToolNameLength {
		return models.NewToolError(fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength))
	}
	if len(params) > MaxToolParamsSize {
		return models.NewToolError(fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxToolParamsSize))
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	compiled := r.schema[name]
	r.mu.RUnlock()
	if !ok {
		return models.NewToolError("unknown tool: " + name)
	}

	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	var decoded map[string]any
	if err := json.Unmarshal(params, &decoded); err != nil {
		return models.NewToolError("invalid parameters: " + err.Error())
	}
	if err := validateParameters(tool.Definition(), decoded); err != nil {
		return models.NewToolError(err.Error())
	}
	if compiled != nil {
		if err := compiled.Validate(decoded); err != nil {
			return models.NewToolError("schema validation failed: " + err.Error())
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = models.NewToolError(fmt.Sprintf("tool panicked: %v", rec))
		}
	}()
	return tool.Execute(ctx, params)
}

// ExecuteEffective is Execute, but additionally reports whether name falls
// outside the caller's effective tool set.
func (r *Registry) ExecuteEffective(ctx context.Context, name string, params json.RawMessage, effective []string) *models.ToolResult {
	effectiveSet := make(map[string]struct{}, len(effective))
	for _, n := range effective {
		effectiveSet[n] = struct{}{}
	}
	switch r.toolStatus(name, effectiveSet) {
	case "unknown":
		return models.NewToolError("unknown tool: " + name)
	case "disabled":
		return models.NewToolError("tool disabled for this agent: " + name)
	}
	return r.Execute(ctx, name, params)
}

// validateParameters checks required presence,
// declared-type matching, and enum membership. Extra supplied parameters are
// silently accepted for forward compatibility.
func validateParameters(def ToolDefinition, params map[string]any) error {
	for _, p := range def.Parameters {
		value, present := params[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("missing required parameter: %s", p.Name)
			}
			continue
		}
		if err := checkType(p, value); err != nil {
			return err
		}
		if len(p.Enum) > 0 {
			if err := checkEnum(p, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkType(p Parameter, value any) error {
	switch p.JSONType {
	case JSONString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("parameter %q must be a string", p.Name)
		}
	case JSONNumber:
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("parameter %q must be a number", p.Name)
		}
	case JSONBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("parameter %q must be a boolean", p.Name)
		}
	case JSONArray:
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("parameter %q must be an array", p.Name)
		}
	case JSONObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("parameter %q must be an object", p.Name)
		}
	}
	return nil
}

func checkEnum(p Parameter, value any) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("parameter %q must be one of %v", p.Name, p.Enum)
	}
	for _, allowed := range p.Enum {
		if str == allowed {
			return nil
		}
	}
	return fmt.Errorf("parameter %q must be one of %v", p.Name, p.Enum)
}

// compileSchema mirrors pkg/pluginsdk/validation.go's compile pattern.
func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	return jsonschema.CompileString(name+".schema.json", string(raw))
}
