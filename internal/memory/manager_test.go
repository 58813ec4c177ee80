package memory

import (
	"context"
	"testing"

	"github.com/haasonsaas/agentcore/internal/memory/backend"
)

type fakeBackend struct {
	chunks map[string]*Chunk // key: agent:source:sourceID
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{chunks: make(map[string]*Chunk)}
}

func key(agentID, source, sourceID string) string {
	return agentID + ":" + source + ":" + sourceID
}

func (b *fakeBackend) UpsertChunk(ctx context.Context, c *Chunk) (*Chunk, bool, error) {
	k := key(c.AgentID, c.Source, c.SourceID)
	if existing, ok := b.chunks[k]; ok {
		if existing.ContentHash == c.ContentHash {
			return existing, false, nil
		}
	}
	b.chunks[k] = c
	return c, true, nil
}

func (b *fakeBackend) VectorSearch(ctx context.Context, queryEmbedding []float32, opts backend.SearchOptions) ([]ScoredChunk, error) {
	var out []ScoredChunk
	for _, c := range b.chunks {
		if c.AgentID != opts.AgentID {
			continue
		}
		out = append(out, ScoredChunk{Chunk: c, Score: 0.9})
	}
	if len(out) > opts.Limit && opts.Limit > 0 {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (b *fakeBackend) TextCandidates(ctx context.Context, tokens []string, opts backend.SearchOptions) ([]*Chunk, error) {
	var out []*Chunk
	for _, c := range b.chunks {
		if c.AgentID != opts.AgentID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (b *fakeBackend) Close() error { return nil }

func newTestManager(t *testing.T, vec []float32) (*Manager, *fakeBackend) {
	t.Helper()
	fb := newFakeBackend()
	cfg := Config{Enabled: true, EmbeddingModel: "test-model"}
	cfg.applyDefaults()
	m := &Manager{
		backend:  fb,
		embedder: &fakeEmbedder{vec: vec},
		config:   cfg,
		cache:    newEmbeddingCache(),
	}
	return m, fb
}

func TestIndexMessageUpsertsByContentHash(t *testing.T) {
	m, fb := newTestManager(t, []float32{0.1, 0.2})

	c1, changed, err := m.IndexMessage(context.Background(), "agent-1", "session-1", "msg-1", "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("expected first index to be a new write")
	}

	c2, changed, err := m.IndexMessage(context.Background(), "agent-1", "session-1", "msg-1", "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatal("expected unchanged content to return existing row")
	}
	if c1.ID != c2.ID {
		t.Fatalf("expected same stored chunk identity across idempotent index calls")
	}

	if len(fb.chunks) != 1 {
		t.Fatalf("expected exactly one stored chunk, got %d", len(fb.chunks))
	}

	c3, changed, err := m.IndexMessage(context.Background(), "agent-1", "session-1", "msg-1", "hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("expected changed content to replace the row")
	}
	if c3.Text != "hello there" {
		t.Fatalf("expected replaced text, got %q", c3.Text)
	}
}

func TestVectorSearchDropsBelowMinScore(t *testing.T) {
	m, _ := newTestManager(t, []float32{0.1})
	m.config.MinScore = 0.95 // fakeBackend always returns 0.9

	if _, _, err := m.IndexMessage(context.Background(), "agent-1", "", "msg-1", "hello world this is a long message"); err != nil {
		t.Fatal(err)
	}

	results, err := m.VectorSearch(context.Background(), "hello", "agent-1", "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected all results dropped below min_score, got %d", len(results))
	}
}

func TestTextSearchScoresByTokenOverlap(t *testing.T) {
	m, _ := newTestManager(t, []float32{0.1})
	m.config.MinScore = 0.4

	if _, _, err := m.IndexMessage(context.Background(), "agent-1", "", "msg-1", "the quick brown fox"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.IndexMessage(context.Background(), "agent-1", "", "msg-2", "totally unrelated content"); err != nil {
		t.Fatal(err)
	}

	results, err := m.TextSearch(context.Background(), "quick fox", "agent-1", "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one matching chunk, got %d", len(results))
	}
	if results[0].Chunk.SourceID != "msg-1" {
		t.Fatalf("expected msg-1 to match, got %s", results[0].Chunk.SourceID)
	}
	if results[0].Score != 1.0 {
		t.Fatalf("expected full token overlap score 1.0, got %f", results[0].Score)
	}
}

func TestHybridSearchCombinesWeightedScores(t *testing.T) {
	m, _ := newTestManager(t, []float32{0.1})
	m.config.MinScore = 0
	m.config.HybridWeights = HybridWeights{Vector: 0.7, Text: 0.3}

	if _, _, err := m.IndexMessage(context.Background(), "agent-1", "", "msg-1", "quick fox"); err != nil {
		t.Fatal(err)
	}

	results, err := m.HybridSearch(context.Background(), "quick fox", "agent-1", "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one combined result, got %d", len(results))
	}
	// fakeBackend vector score 0.9 * 0.7 + text overlap 1.0 * 0.3 = 0.93
	want := 0.9*0.7 + 1.0*0.3
	if diff := results[0].Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected combined score %f, got %f", want, results[0].Score)
	}
}

func TestHybridSearchDisabledReturnsEmpty(t *testing.T) {
	m, _ := newTestManager(t, []float32{0.1})
	m.config.Enabled = false

	results, err := m.HybridSearch(context.Background(), "anything", "agent-1", "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results when disabled, got %v", results)
	}
}

func TestTokenizeDedupsAndLowercases(t *testing.T) {
	tokens := tokenize("Hello Hello WORLD")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 unique tokens, got %d: %v", len(tokens), tokens)
	}
	if tokens[0] != "hello" || tokens[1] != "world" {
		t.Fatalf("expected lowercase tokens, got %v", tokens)
	}
}
