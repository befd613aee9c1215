// Package pgvector is a CorpusIndex on PostgreSQL with the pgvector
// extension. A document's chunks are replaced inside one transaction, so
// readers see either the old set or the new one.
package pgvector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/index"
	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var _ driven.CorpusIndex = (*Index)(nil)

// Config configures the pgvector index
type Config struct {
	URL        string
	Table      string
	Dimensions int
	Logger     *slog.Logger
}

// Index implements driven.CorpusIndex on pgvector
type Index struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// New connects and creates the extension and chunk table if needed.
// The embedding column is fixed to cfg.Dimensions.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("pgvector: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Table == "" {
		cfg.Table = "corpus_chunks"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}

	x := &Index{
		pool:   pool,
		table:  pgx.Identifier{cfg.Table}.Sanitize(),
		logger: cfg.Logger.With("component", "pgvector"),
	}
	if err := x.initialize(ctx, cfg.Table, cfg.Dimensions); err != nil {
		pool.Close()
		return nil, err
	}
	return x, nil
}

func (x *Index) initialize(ctx context.Context, table string, dims int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id            TEXT PRIMARY KEY,
			owner_id      TEXT NOT NULL,
			document_id   TEXT NOT NULL,
			document_name TEXT NOT NULL DEFAULT '',
			sequence      INTEGER NOT NULL,
			content       TEXT NOT NULL,
			start_offset  INTEGER NOT NULL DEFAULT 0,
			end_offset    INTEGER NOT NULL DEFAULT 0,
			embedding     vector(%d) NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (document_id, sequence)
		)`, x.table, dims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (owner_id, document_id)`,
			pgx.Identifier{table + "_owner_idx"}.Sanitize(), x.table),
	}
	for _, stmt := range statements {
		if _, err := x.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector: initialize: %w", err)
		}
	}
	return nil
}

// Insert replaces the document's chunks in one transaction
func (x *Index) Insert(ctx context.Context, ownerID string, chunks []*domain.Chunk) error {
	documentID, _, err := index.ValidateChunks(ownerID, chunks)
	if err != nil {
		return err
	}

	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return index.Failure("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM `+x.table+` WHERE owner_id = $1 AND document_id = $2`, ownerID, documentID); err != nil {
		return index.Failure("clear document", err)
	}

	insert := `INSERT INTO ` + x.table + ` (id, owner_id, document_id, document_name, sequence,
		content, start_offset, end_offset, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(insert, c.ID, ownerID, documentID, c.DocumentName, c.Sequence,
			c.Content, c.StartOffset, c.EndOffset, pgvector.NewVector(c.Embedding), c.CreatedAt)
	}
	results := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return index.Failure("insert chunk", err)
		}
	}
	if err := results.Close(); err != nil {
		return index.Failure("insert chunks", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return index.Failure("commit", err)
	}
	return nil
}

// Search ranks the owner's chunks by cosine distance. The scan is exact,
// so results do not depend on an approximate index.
func (x *Index) Search(ctx context.Context, ownerID string, vector []float32, k int) ([]*domain.ScoredChunk, error) {
	if err := index.ValidateQuery(ownerID, vector, k); err != nil {
		return nil, err
	}

	rows, err := x.pool.Query(ctx, `
		SELECT id, document_id, document_name, sequence, content, start_offset, end_offset,
			created_at, 1 - (embedding <=> $2) AS similarity
		FROM `+x.table+`
		WHERE owner_id = $1
		ORDER BY embedding <=> $2, sequence, document_id
		LIMIT $3`, ownerID, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, index.Failure("search", err)
	}
	defer rows.Close()

	results := make([]*domain.ScoredChunk, 0, k)
	for rows.Next() {
		c := &domain.Chunk{OwnerID: ownerID}
		var similarity float64
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.DocumentName, &c.Sequence, &c.Content,
			&c.StartOffset, &c.EndOffset, &c.CreatedAt, &similarity); err != nil {
			return nil, index.Failure("scan", err)
		}
		results = append(results, &domain.ScoredChunk{
			Chunk: c,
			Score: domain.SimilarityToScore(similarity),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, index.Failure("search", err)
	}

	domain.SortScoredChunks(results)
	return results, nil
}

// DeleteDocument removes every chunk of the document
func (x *Index) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	tag, err := x.pool.Exec(ctx,
		`DELETE FROM `+x.table+` WHERE owner_id = $1 AND document_id = $2`, ownerID, documentID)
	if err != nil {
		return index.Failure("delete", err)
	}
	x.logger.Debug("document removed from index", "document_id", documentID, "chunks", tag.RowsAffected())
	return nil
}

// Count returns the owner's chunk count
func (x *Index) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := x.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+x.table+` WHERE owner_id = $1`, ownerID).Scan(&n); err != nil {
		return 0, index.Failure("count", err)
	}
	return n, nil
}

// Ping checks the pool
func (x *Index) Ping(ctx context.Context) error {
	return x.pool.Ping(ctx)
}

// Close releases the pool
func (x *Index) Close() error {
	x.pool.Close()
	return nil
}
