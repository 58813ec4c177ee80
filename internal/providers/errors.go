package providers

import (
	"fmt"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// ProviderError represents a structured transport/decode failure from an
// upstream provider. It never escapes Generate as a Go error — it is always
// converted to an errorResponse before returning.
type ProviderError struct {
	Provider string
	Model    string
	Status   int
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// errorResponse renders a transport or decode failure as the terminal
// LLMResponse the tool loop receives — content carries a human-readable
// "Error: ..." prefix.
func errorResponse(model string, err error) *models.LLMResponse {
	return &models.LLMResponse{
		Content:    fmt.Sprintf("Error: %v", err),
		StopReason: models.StopError,
		Model:      model,
	}
}
