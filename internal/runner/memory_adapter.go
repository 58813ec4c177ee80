package runner

import (
	"context"

	"github.com/haasonsaas/agentcore/internal/memory"
	"github.com/haasonsaas/agentcore/internal/tools/builtin"
)

// memorySearcher adapts a *memory.Manager to builtin.Searcher, converting
// scored chunks to the tool's result shape. Defined here, not in
// internal/memory or internal/tools/builtin, so neither package needs to
// import the other.
type memorySearcher struct {
	mgr *memory.Manager
}

// NewMemorySearcher wraps mgr as a builtin.Searcher. Returns nil if mgr is
// nil so callers can wire an optionally-configured memory engine without a
// branch at every call site.
func NewMemorySearcher(mgr *memory.Manager) builtin.Searcher {
	if mgr == nil {
		return nil
	}
	return &memorySearcher{mgr: mgr}
}

func (s *memorySearcher) Search(ctx context.Context, query, searchType, agentID, sessionID string, maxResults int) ([]builtin.MemoryResult, error) {
	chunks, err := s.mgr.Search(ctx, query, searchType, agentID, sessionID, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]builtin.MemoryResult, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, builtin.MemoryResult{
			Source:   c.Chunk.Source,
			SourceID: c.Chunk.SourceID,
			Content:  c.Chunk.Text,
			Score:    c.Score,
		})
	}
	return out, nil
}
