// Package pgvector provides a chunk-store backend for the memory search
// engine using PostgreSQL with the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/agentcore/internal/memory"
	"github.com/haasonsaas/agentcore/internal/memory/backend"
	pq "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Backend implements backend.Backend using pgvector.
type Backend struct {
	db        *sql.DB
	dimension int
	ownsDB    bool
}

var _ backend.Backend = (*Backend)(nil)

// Config contains configuration for the pgvector backend.
type Config struct {
	// DSN is the PostgreSQL connection string. If empty, DB must be set.
	DSN string

	// DB is an existing connection to reuse; if set, DSN is ignored and the
	// backend will not close it.
	DB *sql.DB

	Dimension     int
	RunMigrations bool
}

// New creates a new pgvector backend.
func New(cfg Config) (*Backend, error) {
	if cfg.Dimension == 0 {
		cfg.Dimension = 384
	}

	var db *sql.DB
	var ownsDB bool
	var err error

	switch {
	case cfg.DB != nil:
		db = cfg.DB
	case cfg.DSN != "":
		db, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		ownsDB = true

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
	default:
		return nil, fmt.Errorf("either DSN or DB must be provided")
	}

	b := &Backend{db: db, dimension: cfg.Dimension, ownsDB: ownsDB}

	if cfg.RunMigrations {
		if err := b.runMigrations(context.Background()); err != nil {
			if ownsDB {
				db.Close()
			}
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return b, nil
}

func (b *Backend) runMigrations(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS memory_schema_migrations (
			id TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	applied, err := b.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}
		if strings.TrimSpace(m.UpSQL) == "" {
			return fmt.Errorf("missing up migration for %s", m.ID)
		}

		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO memory_schema_migrations (id) VALUES ($1)`, m.ID); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.ID, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.ID, err)
		}
	}
	return nil
}

func (b *Backend) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id FROM memory_schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query memory_schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan memory_schema_migrations: %w", err)
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

// UpsertChunk inserts or, if the content hash changed, replaces the row for
// (agent_id, source, source_id).
func (b *Backend) UpsertChunk(ctx context.Context, c *memory.Chunk) (*memory.Chunk, bool, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	row := b.db.QueryRowContext(ctx, `
		INSERT INTO memory_chunks (id, agent_id, session_id, source, source_id, content, content_hash, embedding_model, embedding, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (agent_id, source, source_id) DO UPDATE SET
			content = EXCLUDED.content,
			content_hash = EXCLUDED.content_hash,
			embedding_model = EXCLUDED.embedding_model,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at
		WHERE memory_chunks.content_hash IS DISTINCT FROM EXCLUDED.content_hash
		RETURNING id, content_hash, created_at, updated_at
	`,
		c.ID, c.AgentID, nullString(c.SessionID), c.Source, c.SourceID,
		c.Text, c.ContentHash, nullString(c.EmbeddingModel), encodeEmbedding(c.Embedding),
		c.CreatedAt, c.UpdatedAt,
	)

	var id, hash string
	var createdAt, updatedAt time.Time
	err := row.Scan(&id, &hash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, ferr := b.fetchByKey(ctx, c.AgentID, c.Source, c.SourceID)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert chunk: %w", err)
	}
	c.ID = id
	c.ContentHash = hash
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt
	return c, true, nil
}

func (b *Backend) fetchByKey(ctx context.Context, agentID, source, sourceID string) (*memory.Chunk, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, agent_id, session_id, source, source_id, content, content_hash, embedding_model, embedding, created_at, updated_at
		FROM memory_chunks WHERE agent_id = $1 AND source = $2 AND source_id = $3
	`, agentID, source, sourceID)
	return scanChunk(row)
}

// VectorSearch orders candidates by cosine distance ascending within
// ef_search HNSW effort, scoped to agent_id (and session_id if set).
func (b *Backend) VectorSearch(ctx context.Context, queryEmbedding []float32, opts backend.SearchOptions) ([]memory.ScoredChunk, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin vector search: %w", err)
	}
	defer tx.Rollback()

	if opts.EFSearch > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", opts.EFSearch)); err != nil {
			return nil, fmt.Errorf("set ef_search: %w", err)
		}
	}

	queryVec := encodeEmbedding(queryEmbedding)
	query := `
		SELECT id, agent_id, session_id, source, source_id, content, content_hash, embedding_model, embedding, created_at, updated_at,
			1 - (embedding <=> $1::vector) AS score
		FROM memory_chunks
		WHERE embedding IS NOT NULL AND agent_id = $2
	`
	args := []any{queryVec, opts.AgentID}
	argNum := 3
	if opts.SessionID != "" {
		query += fmt.Sprintf(" AND session_id = $%d", argNum)
		args = append(args, opts.SessionID)
		argNum++
	}
	query += " ORDER BY embedding <=> $1::vector ASC"
	query += fmt.Sprintf(" LIMIT $%d", argNum)
	args = append(args, limit)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []memory.ScoredChunk
	for rows.Next() {
		c, score, err := scanScoredChunk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, memory.ScoredChunk{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, tx.Commit()
}

// TextCandidates returns every chunk whose content contains at least one of
// tokens, case-insensitively, scoped to agent_id (and session_id if set).
func (b *Backend) TextCandidates(ctx context.Context, tokens []string, opts backend.SearchOptions) ([]*memory.Chunk, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	patterns := make([]string, len(tokens))
	for i, t := range tokens {
		patterns[i] = "%" + t + "%"
	}

	query := `
		SELECT id, agent_id, session_id, source, source_id, content, content_hash, embedding_model, embedding, created_at, updated_at
		FROM memory_chunks
		WHERE agent_id = $1 AND content ILIKE ANY($2)
	`
	args := []any{opts.AgentID, pq.Array(patterns)}
	if opts.SessionID != "" {
		query += " AND session_id = $3"
		args = append(args, opts.SessionID)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("text candidates: %w", err)
	}
	defer rows.Close()

	var results []*memory.Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// Close releases resources owned by this backend.
func (b *Backend) Close() error {
	if b.ownsDB && b.db != nil {
		return b.db.Close()
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChunk(s scanner) (*memory.Chunk, error) {
	c, _, err := scanRow(s, false)
	return c, err
}

func scanChunkRows(s scanner) (*memory.Chunk, error) {
	c, _, err := scanRow(s, false)
	return c, err
}

func scanScoredChunk(s scanner) (*memory.Chunk, float64, error) {
	return scanRow(s, true)
}

func scanRow(s scanner, withScore bool) (*memory.Chunk, float64, error) {
	var c memory.Chunk
	var sessionID, embeddingModel sql.NullString
	var embeddingStr sql.NullString
	var score float64

	dest := []any{
		&c.ID, &c.AgentID, &sessionID, &c.Source, &c.SourceID,
		&c.Text, &c.ContentHash, &embeddingModel, &embeddingStr,
		&c.CreatedAt, &c.UpdatedAt,
	}
	if withScore {
		dest = append(dest, &score)
	}

	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("chunk not found")
		}
		return nil, 0, fmt.Errorf("failed to scan chunk: %w", err)
	}

	c.SessionID = sessionID.String
	c.EmbeddingModel = embeddingModel.String
	if embeddingStr.Valid {
		c.Embedding = decodeEmbedding(embeddingStr.String)
	}
	return &c, score, nil
}

// encodeEmbedding converts []float32 to pgvector string format: [0.1,0.2,...]
func encodeEmbedding(embedding []float32) sql.NullString {
	if len(embedding) == 0 {
		return sql.NullString{}
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range embedding {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(fmt.Sprintf("%g", f))
	}
	sb.WriteByte(']')
	return sql.NullString{String: sb.String(), Valid: true}
}

// decodeEmbedding converts pgvector string format back to []float32.
func decodeEmbedding(s string) []float32 {
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	embedding := make([]float32, len(parts))
	for i, p := range parts {
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%f", &f); err != nil {
			return nil
		}
		embedding[i] = float32(f)
	}
	return embedding
}

// Migration represents an embedded migration.
type Migration struct {
	ID      string
	UpSQL   string
	DownSQL string
}

func loadMigrations() ([]Migration, error) {
	paths, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	entries := map[string]*Migration{}
	for _, path := range paths {
		base := strings.TrimPrefix(path, "migrations/")
		suffix := ""
		switch {
		case strings.HasSuffix(base, ".up.sql"):
			suffix = ".up.sql"
		case strings.HasSuffix(base, ".down.sql"):
			suffix = ".down.sql"
		default:
			continue
		}
		id := strings.TrimSuffix(base, suffix)
		entry := entries[id]
		if entry == nil {
			entry = &Migration{ID: id}
			entries[id] = entry
		}
		data, err := migrationsFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", path, err)
		}
		if suffix == ".up.sql" {
			entry.UpSQL = string(data)
		} else {
			entry.DownSQL = string(data)
		}
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	migrations := make([]Migration, 0, len(ids))
	for _, id := range ids {
		migrations = append(migrations, *entries[id])
	}
	return migrations, nil
}
