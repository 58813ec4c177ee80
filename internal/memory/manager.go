// Package memory implements the hybrid semantic+lexical memory search
// engine (C4): an embedding cache, a partitioned chunk store, and vector,
// text, and hybrid search over it.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/haasonsaas/agentcore/internal/memory/backend"
	"github.com/haasonsaas/agentcore/internal/memory/backend/pgvector"
	"github.com/haasonsaas/agentcore/internal/memory/embeddings"
	"github.com/haasonsaas/agentcore/internal/memory/embeddings/ollama"
	"github.com/haasonsaas/agentcore/internal/memory/embeddings/openai"
)

// Config mirrors spec's memory engine config block.
type Config struct {
	Enabled        bool             `yaml:"enabled"`
	Backend        string           `yaml:"backend"` // pgvector
	ChunkSize      int              `yaml:"chunk_size"`
	ChunkOverlap   int              `yaml:"chunk_overlap"`
	MaxResults     int              `yaml:"max_results"`
	MinScore       float64          `yaml:"min_score"`
	HybridWeights  HybridWeights    `yaml:"hybrid_weights"`
	EmbeddingModel string           `yaml:"embedding_model"`
	EFSearch       int              `yaml:"ef_search"`
	Pgvector       PgvectorConfig   `yaml:"pgvector"`
	Embeddings     EmbeddingsConfig `yaml:"embeddings"`
}

// HybridWeights is the vector/text weighting used to combine scores.
type HybridWeights struct {
	Vector float64 `yaml:"vector"`
	Text   float64 `yaml:"text"`
}

// PgvectorConfig configures the pgvector backend.
type PgvectorConfig struct {
	DSN           string `yaml:"dsn"`
	RunMigrations bool   `yaml:"run_migrations"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider  string `yaml:"provider"` // openai, ollama
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	OllamaURL string `yaml:"ollama_url"`

	// Dimension is the dense-encoder output width this deployment expects,
	// matching spec's D≈384 contract. It is passed to the pgvector backend
	// and, for the OpenAI provider, sent as the requested embedding width.
	// The pgvector migration always creates a vector(384) column whatever
	// this value is, and the Ollama provider ignores it.
	Dimension int `yaml:"dimension"`
}

func (c *Config) applyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 400
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 80
	}
	if c.MaxResults == 0 {
		c.MaxResults = 6
	}
	if c.MinScore == 0 {
		c.MinScore = 0.35
	}
	if c.HybridWeights.Vector == 0 && c.HybridWeights.Text == 0 {
		c.HybridWeights = HybridWeights{Vector: 0.7, Text: 0.3}
	}
	if c.EFSearch == 0 {
		c.EFSearch = 100
	}
	if c.Embeddings.Dimension == 0 {
		c.Embeddings.Dimension = 384
	}
}

// Manager coordinates memory indexing and search.
type Manager struct {
	backend  backend.Backend
	embedder embeddings.Provider
	config   Config
	cache    *embeddingCache
}

// NewManager builds a Manager, returning (nil, nil) when the config
// disables the memory engine entirely.
func NewManager(cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	cfg.applyDefaults()

	var b backend.Backend
	var err error
	switch cfg.Backend {
	case "pgvector", "postgres", "postgresql", "":
		b, err = pgvector.New(pgvector.Config{
			DSN:           cfg.Pgvector.DSN,
			RunMigrations: cfg.Pgvector.RunMigrations,
			Dimension:     cfg.Embeddings.Dimension,
		})
	default:
		return nil, fmt.Errorf("unknown memory backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	var emb embeddings.Provider
	switch cfg.Embeddings.Provider {
	case "openai", "":
		emb, err = openai.New(openai.Config{
			APIKey:     cfg.Embeddings.APIKey,
			BaseURL:    cfg.Embeddings.BaseURL,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimension,
		})
	case "ollama":
		emb, err = ollama.New(ollama.Config{
			BaseURL: cfg.Embeddings.OllamaURL,
			Model:   cfg.Embeddings.Model,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embeddings.Provider)
	}
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Manager{
		backend:  b,
		embedder: emb,
		config:   cfg,
		cache:    newEmbeddingCache(),
	}, nil
}

// getEmbedding resolves the vector for text, via the shared cache.
func (m *Manager) getEmbedding(ctx context.Context, text string) ([]float32, error) {
	return m.cache.get(ctx, m.embedder, m.config.EmbeddingModel, text)
}

// IndexMessage upserts a chunk for a message, keyed by (agent_id, message,
// source_id). Returns the stored chunk and whether it was newly written.
func (m *Manager) IndexMessage(ctx context.Context, agentID, sessionID, messageID, text string) (*Chunk, bool, error) {
	return m.index(ctx, agentID, sessionID, SourceMessage, messageID, text)
}

// IndexSummary is IndexMessage for the summary source.
func (m *Manager) IndexSummary(ctx context.Context, agentID, sessionID, summaryID, text string) (*Chunk, bool, error) {
	return m.index(ctx, agentID, sessionID, SourceSummary, summaryID, text)
}

func (m *Manager) index(ctx context.Context, agentID, sessionID, source, sourceID, text string) (*Chunk, bool, error) {
	hash := contentHash(text)

	vec, err := m.getEmbedding(ctx, text)
	if err != nil {
		return nil, false, err
	}

	c := &Chunk{
		AgentID:        agentID,
		SessionID:      sessionID,
		Source:         source,
		SourceID:       sourceID,
		Text:           text,
		Embedding:      vec,
		EmbeddingModel: m.config.EmbeddingModel,
		ContentHash:    hash,
	}
	return m.backend.UpsertChunk(ctx, c)
}

// VectorSearch performs pure semantic search scoped to agent/session.
func (m *Manager) VectorSearch(ctx context.Context, query, agentID, sessionID string, maxResults int) ([]ScoredChunk, error) {
	if maxResults <= 0 {
		maxResults = m.config.MaxResults
	}

	queryVec, err := m.getEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(queryVec) == 0 {
		return nil, nil
	}

	candidates, err := m.backend.VectorSearch(ctx, queryVec, backend.SearchOptions{
		AgentID:   agentID,
		SessionID: sessionID,
		Limit:     maxResults,
		EFSearch:  m.config.EFSearch,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < m.config.MinScore {
			continue
		}
		results = append(results, c)
	}
	return results, nil
}

// TextSearch performs lexical token-overlap search scoped to agent/session.
func (m *Manager) TextSearch(ctx context.Context, query, agentID, sessionID string, maxResults int) ([]ScoredChunk, error) {
	if maxResults <= 0 {
		maxResults = m.config.MaxResults
	}

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	candidates, err := m.backend.TextCandidates(ctx, tokens, backend.SearchOptions{
		AgentID:   agentID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	results := make([]ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		score := tokenOverlapScore(tokens, c.Text)
		if score < m.config.MinScore {
			continue
		}
		results = append(results, ScoredChunk{Chunk: c, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// HybridSearch combines vector and text search by weighted score, summing
// contributions when the same (source, source_id) appears in both.
func (m *Manager) HybridSearch(ctx context.Context, query, agentID, sessionID string, maxResults int) ([]ScoredChunk, error) {
	if !m.config.Enabled {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = m.config.MaxResults
	}

	vectorResults, err := m.VectorSearch(ctx, query, agentID, sessionID, maxResults)
	if err != nil {
		return nil, err
	}
	textResults, err := m.TextSearch(ctx, query, agentID, sessionID, maxResults)
	if err != nil {
		return nil, err
	}

	combined := make(map[string]*ScoredChunk)
	for _, r := range vectorResults {
		r := r
		r.Score *= m.config.HybridWeights.Vector
		combined[chunkKey(r.Chunk)] = &r
	}
	for _, r := range textResults {
		key := chunkKey(r.Chunk)
		weighted := r.Score * m.config.HybridWeights.Text
		if existing, ok := combined[key]; ok {
			existing.Score += weighted
		} else {
			r := r
			r.Score = weighted
			combined[key] = &r
		}
	}

	out := make([]ScoredChunk, 0, len(combined))
	for _, r := range combined {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

// Search dispatches to Vector/Text/Hybrid by searchType, defaulting to
// hybrid for unknown values.
func (m *Manager) Search(ctx context.Context, query, searchType, agentID, sessionID string, maxResults int) ([]ScoredChunk, error) {
	switch searchType {
	case "vector":
		return m.VectorSearch(ctx, query, agentID, sessionID, maxResults)
	case "text":
		return m.TextSearch(ctx, query, agentID, sessionID, maxResults)
	default:
		return m.HybridSearch(ctx, query, agentID, sessionID, maxResults)
	}
}

// Close releases resources.
func (m *Manager) Close() error {
	return m.backend.Close()
}

func chunkKey(c *Chunk) string {
	return c.Source + ":" + c.SourceID
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

func tokenOverlapScore(tokens []string, content string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}
