// Package backend provides storage backend interfaces for the memory
// search engine's chunk store.
package backend

import (
	"context"

	"github.com/haasonsaas/agentcore/internal/memory"
)

// Backend defines the interface a chunk store must implement.
type Backend interface {
	// UpsertChunk inserts c, or — if a row already exists for
	// (agent_id, source, source_id) — replaces its text/embedding/hash only
	// when the content hash differs. Returns the row as stored and whether
	// it was newly written or replaced (false means the existing row,
	// unchanged, was returned).
	UpsertChunk(ctx context.Context, c *memory.Chunk) (stored *memory.Chunk, changed bool, err error)

	// VectorSearch orders candidates by cosine distance ascending and
	// returns at most opts.Limit rows with Score = 1 - distance already
	// computed.
	VectorSearch(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]memory.ScoredChunk, error)

	// TextCandidates returns every chunk whose text contains at least one
	// of tokens (case-insensitive substring match), unscored — scoring and
	// ranking is the memory Manager's job.
	TextCandidates(ctx context.Context, tokens []string, opts SearchOptions) ([]*memory.Chunk, error)

	// Close releases resources.
	Close() error
}

// SearchOptions scopes and tunes a search call.
type SearchOptions struct {
	AgentID   string
	SessionID string // optional; empty means unrestricted within AgentID
	Limit     int
	EFSearch  int // HNSW search effort, vector search only
}

// Config contains common backend configuration.
type Config struct {
	Dimension int
}
