package builtin

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

func calcParams(t *testing.T, expression any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"expression": expression})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return raw
}

func TestCalculatorArithmetic(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		want       string
	}{
		{"addition", "2 + 2", "4"},
		{"subtraction", "10 - 3", "7"},
		{"multiplication", "6 * 7", "42"},
		{"division", "20 / 4", "5"},
		{"parentheses", "(10 * 5) / 2 + 3", "28"},
		{"negative numbers", "-5 + 10", "5"},
		{"floating point", "3.14 * 2", "6.28"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculator{}.Execute(context.Background(), calcParams(t, tt.expression))
			if result.Status != models.ToolResultSuccess {
				t.Fatalf("expected success, got status=%s error=%s", result.Status, result.Error)
			}
			if result.Output != tt.want {
				t.Errorf("expression %q: got %q, want %q", tt.expression, result.Output, tt.want)
			}
		})
	}
}

func TestCalculatorDivisionByZero(t *testing.T) {
	result := Calculator{}.Execute(context.Background(), calcParams(t, "1 / 0"))
	if result.Status != models.ToolResultError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if !strings.Contains(strings.ToLower(result.Error), "division by zero") {
		t.Errorf("expected division-by-zero error, got %q", result.Error)
	}
}

func TestCalculatorRejectsInvalidCharacters(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{"modulo is not in the allowed character class", "17 % 5"},
		{"import statement", "import os"},
		{"function call", "eval('1+1')"},
		{"dunder access", "__import__('os')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculator{}.Execute(context.Background(), calcParams(t, tt.expression))
			if result.Status != models.ToolResultError {
				t.Fatalf("expected error status for %q, got %s", tt.expression, result.Status)
			}
			if !strings.Contains(strings.ToLower(result.Error), "invalid") {
				t.Errorf("expected an 'invalid characters' error for %q, got %q", tt.expression, result.Error)
			}
		})
	}
}

func TestCalculatorSyntaxError(t *testing.T) {
	result := Calculator{}.Execute(context.Background(), calcParams(t, "1 +"))
	if result.Status != models.ToolResultError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
}

func TestCalculatorRejectsNonStringExpression(t *testing.T) {
	result := Calculator{}.Execute(context.Background(), calcParams(t, 123))
	if result.Status != models.ToolResultError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if !strings.Contains(strings.ToLower(result.Error), "string") {
		t.Errorf("expected a type error mentioning 'string', got %q", result.Error)
	}
}

func TestCalculatorDefinitionRequiresExpression(t *testing.T) {
	def := Calculator{}.Definition()
	if def.Name != "calculator" {
		t.Fatalf("unexpected tool name: %s", def.Name)
	}
	if len(def.Parameters) != 1 || !def.Parameters[0].Required {
		t.Fatalf("expected exactly one required parameter, got %+v", def.Parameters)
	}
}
