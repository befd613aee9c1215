package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*DocumentStore)(nil)

const documentColumns = `id, owner_id, name, mime_type, status, chunk_count, error, size_bytes, created_at, updated_at, completed_at`

// DocumentStore implements driven.DocumentStore using PostgreSQL.
// Payloads live in document_payloads and are sealed when a cipher is set.
type DocumentStore struct {
	db     *DB
	cipher *PayloadCipher
}

// NewDocumentStore creates a new DocumentStore. cipher may be nil.
func NewDocumentStore(db *DB, cipher *PayloadCipher) *DocumentStore {
	return &DocumentStore{db: db, cipher: cipher}
}

// Create inserts the document row and its payload in one transaction
func (s *DocumentStore) Create(ctx context.Context, doc *domain.Document, payload []byte) error {
	content := payload
	encrypted := false
	if s.cipher != nil {
		sealed, err := s.cipher.Seal(doc.ID, payload)
		if err != nil {
			return fmt.Errorf("seal payload: %w", err)
		}
		content = sealed
		encrypted = true
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (`+documentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			doc.ID,
			doc.OwnerID,
			doc.Name,
			doc.MimeType,
			string(doc.Status),
			doc.ChunkCount,
			doc.Error,
			doc.SizeBytes,
			doc.CreatedAt,
			doc.UpdatedAt,
			NullTime(doc.CompletedAt),
		)
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO document_payloads (document_id, content, encrypted) VALUES ($1, $2, $3)`,
			doc.ID, content, encrypted,
		)
		return err
	})
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocumentRow(row)
}

// GetForOwner retrieves a document by ID within one owner's corpus
func (s *DocumentStore) GetForOwner(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return scanDocumentRow(row)
}

// GetPayload returns the raw source bytes, opening sealed payloads
func (s *DocumentStore) GetPayload(ctx context.Context, id string) ([]byte, error) {
	var (
		content   []byte
		encrypted bool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content, encrypted FROM document_payloads WHERE document_id = $1`, id,
	).Scan(&content, &encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !encrypted {
		return content, nil
	}
	if s.cipher == nil {
		return nil, fmt.Errorf("payload of %s is sealed but no payload key is configured", id)
	}
	return s.cipher.Open(id, content)
}

// ListByOwner returns the owner's documents, newest first, ties by ID
func (s *DocumentStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_id = $1
		ORDER BY created_at DESC, id ASC
	`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// CountByStatus counts the owner's documents in one status
func (s *DocumentStore) CountByStatus(ctx context.Context, ownerID string, status domain.DocumentStatus) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE owner_id = $1 AND status = $2`,
		ownerID, string(status),
	).Scan(&n)
	return n, err
}

// UpdateStatus is a compare-and-set on the status column. Two workers racing
// on the same document cannot both win a transition.
func (s *DocumentStore) UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) (*domain.Document, error) {
	if !update.From.CanTransitionTo(update.To) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, update.From, update.To)
	}

	now := time.Now()
	var query string
	var args []any
	switch update.To {
	case domain.DocumentStatusCompleted:
		query = `UPDATE documents SET status = $3, chunk_count = $4, error = '', completed_at = $5, updated_at = $5
			WHERE id = $1 AND status = $2 RETURNING ` + documentColumns
		args = []any{id, string(update.From), string(update.To), update.ChunkCount, now}
	case domain.DocumentStatusFailed:
		query = `UPDATE documents SET status = $3, error = $4, completed_at = $5, updated_at = $5
			WHERE id = $1 AND status = $2 RETURNING ` + documentColumns
		args = []any{id, string(update.From), string(update.To), update.Error, now}
	default:
		query = `UPDATE documents SET status = $3, updated_at = $4
			WHERE id = $1 AND status = $2 RETURNING ` + documentColumns
		args = []any{id, string(update.From), string(update.To), now}
	}

	doc, err := scanDocumentRow(s.db.QueryRowContext(ctx, query, args...))
	if !errors.Is(err, domain.ErrNotFound) {
		return doc, err
	}

	// Nothing matched: either the row is gone or its status moved on.
	current, getErr := s.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: document is %s, expected %s",
		domain.ErrInvalidTransition, current.Status, update.From)
}

// ListStalled returns non-terminal documents untouched since before
func (s *DocumentStore) ListStalled(ctx context.Context, before time.Time, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE status IN ('pending', 'processing') AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (s *DocumentStore) ListCompleted(ctx context.Context, afterID string, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE status = 'completed' AND id > $1
		ORDER BY id ASC
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// Delete removes the document row; the payload goes with it by cascade
func (s *DocumentStore) Delete(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func scanDocumentRow(row rowScanner) (*domain.Document, error) {
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

func scanDocuments(rows *sql.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc         domain.Document
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Name,
		&doc.MimeType,
		&status,
		&doc.ChunkCount,
		&doc.Error,
		&doc.SizeBytes,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatus(status)
	doc.CompletedAt = TimePtr(completedAt)
	return &doc, nil
}
