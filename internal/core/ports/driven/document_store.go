package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// DocumentStore handles document persistence (PostgreSQL).
// Every read is scoped to an owner except Get, which the pipeline uses by ID.
type DocumentStore interface {
	// Create stores a new document together with its raw source payload
	Create(ctx context.Context, doc *domain.Document, payload []byte) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetForOwner retrieves a document by ID, returning ErrNotFound when it
	// belongs to a different owner
	GetForOwner(ctx context.Context, ownerID, id string) (*domain.Document, error)

	// GetPayload retrieves the raw source payload of a document
	GetPayload(ctx context.Context, id string) ([]byte, error)

	// ListByOwner returns the owner's documents, newest first, ties by ID
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error)

	// CountByStatus returns how many of the owner's documents have the status
	CountByStatus(ctx context.Context, ownerID string, status domain.DocumentStatus) (int, error)

	// UpdateStatus applies a conditional status change. It returns
	// ErrInvalidTransition when the stored status is not update.From and
	// ErrNotFound when the document does not exist.
	UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) (*domain.Document, error)

	// ListStalled returns pending or processing documents last updated before the cutoff
	ListStalled(ctx context.Context, before time.Time, limit int) ([]*domain.Document, error)

	// ListCompleted pages through completed documents of every owner in ID
	// order, starting after afterID
	ListCompleted(ctx context.Context, afterID string, limit int) ([]*domain.Document, error)

	// Delete removes a document and its payload
	Delete(ctx context.Context, ownerID, id string) error
}
