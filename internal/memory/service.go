package memory

import "context"

// MemorySearchResult is one hit returned to a caller outside the tool-calling
// loop: enough to identify the source row and show why it matched.
type MemorySearchResult struct {
	Source   string  `json:"source"`
	SourceID string  `json:"source_id"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

// SearchType is the closed set of strategies MemorySearchService.Search
// accepts.
type SearchType string

const (
	SearchHybrid SearchType = "hybrid"
	SearchVector SearchType = "vector"
	SearchText   SearchType = "text"
)

// SearchOptions carries the optional scoping parameters to
// MemorySearchService.Search: Session and AgentID are both optional, but at
// least one should generally be set since an unscoped query degrades to the
// default partition.
type SearchOptions struct {
	Session    string
	AgentID    string
	SearchType SearchType
	MaxResults int
}

// MemorySearchService is a standalone entry point into the memory engine: a
// thin adapter over Manager that lets collaborators outside the runner
// (e.g. a messaging-platform adapter offering a standalone "/recall"
// command) invoke memory search without going through the tool-calling
// loop.
type MemorySearchService struct {
	mgr *Manager
}

// NewMemorySearchService wraps mgr. Returns a service whose Search always
// returns an empty result if mgr is nil (memory search disabled for this
// deployment).
func NewMemorySearchService(mgr *Manager) *MemorySearchService {
	return &MemorySearchService{mgr: mgr}
}

// Search runs one query against the bound Manager, never raising — an
// unavailable encoder or partition yields an empty slice rather than an
// error.
func (s *MemorySearchService) Search(ctx context.Context, query string, opts SearchOptions) ([]MemorySearchResult, error) {
	if s.mgr == nil {
		return nil, nil
	}
	searchType := string(opts.SearchType)
	if searchType == "" {
		searchType = string(SearchHybrid)
	}
	chunks, err := s.mgr.Search(ctx, query, searchType, opts.AgentID, opts.Session, opts.MaxResults)
	if err != nil {
		return nil, nil
	}
	out := make([]MemorySearchResult, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, MemorySearchResult{
			Source:   c.Chunk.Source,
			SourceID: c.Chunk.SourceID,
			Content:  c.Chunk.Text,
			Score:    c.Score,
		})
	}
	return out, nil
}
