package memory

import (
	"context"
	"testing"
)

func TestMemorySearchServiceDelegatesAndProjectsResult(t *testing.T) {
	m, _ := newTestManager(t, []float32{0.1, 0.2})
	if _, _, err := m.IndexMessage(context.Background(), "agent-1", "session-1", "msg-1", "the blue whale is the largest animal"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc := NewMemorySearchService(m)
	results, err := svc.Search(context.Background(), "largest animal", SearchOptions{
		AgentID:    "agent-1",
		SearchType: SearchVector,
		MaxResults: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if results[0].SourceID != "msg-1" || results[0].Source != SourceMessage {
		t.Fatalf("expected the indexed message back, got %+v", results[0])
	}
}

func TestMemorySearchServiceNeverErrorsWhenUnconfigured(t *testing.T) {
	svc := NewMemorySearchService(nil)
	results, err := svc.Search(context.Background(), "anything", SearchOptions{})
	if err != nil {
		t.Fatalf("expected no error for an unconfigured service, got %v", err)
	}
	if results != nil {
		t.Fatalf("expected a nil/empty result set, got %v", results)
	}
}

func TestMemorySearchServiceDefaultsToHybrid(t *testing.T) {
	m, _ := newTestManager(t, []float32{0.1, 0.2})
	if _, _, err := m.IndexMessage(context.Background(), "agent-1", "", "msg-1", "shared secret passphrase"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc := NewMemorySearchService(m)
	results, err := svc.Search(context.Background(), "shared secret passphrase", SearchOptions{AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected the hybrid default to surface the indexed message")
	}
}
