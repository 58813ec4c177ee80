package memory

import "time"

// Chunk is the stored unit of the memory index (spec EmbeddingChunk):
// one piece of text belonging to one agent, with its embedding and the
// content hash that drives upsert-by-change semantics.
type Chunk struct {
	ID             string
	AgentID        string // partition key
	SessionID      string // optional narrower scope than AgentID
	Source         string // message, summary, file
	SourceID       string
	Text           string
	Embedding      []float32
	EmbeddingModel string
	ContentHash    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ScoredChunk pairs a chunk with a relevance score in [0,1].
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

const (
	SourceMessage = "message"
	SourceSummary = "summary"
	SourceFile    = "file"
)
