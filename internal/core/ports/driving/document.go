package driving

import (
	"context"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// IngestTextRequest adds a pasted text block to the corpus
type IngestTextRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// IngestFileRequest adds an uploaded file to the corpus
type IngestFileRequest struct {
	Filename string
	MimeType string // optional, detected from the filename and payload when empty
	Payload  []byte
}

// DocumentService accepts documents for ingestion and exposes their status.
// Every operation is scoped to ownerID.
type DocumentService interface {
	// IngestText validates and accepts a text document
	IngestText(ctx context.Context, ownerID string, req IngestTextRequest) (*domain.IngestReceipt, error)

	// IngestFile validates and accepts an uploaded file
	IngestFile(ctx context.Context, ownerID string, req IngestFileRequest) (*domain.IngestReceipt, error)

	// List returns the owner's documents, newest first
	List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.DocumentSummary, error)

	// Get retrieves one of the owner's documents
	Get(ctx context.Context, ownerID, id string) (*domain.Document, error)

	// Delete removes a document and its chunks. Only terminal documents can be deleted.
	Delete(ctx context.Context, ownerID, id string) error

	// Retry re-ingests a failed document as a new document
	Retry(ctx context.Context, ownerID, id string) (*domain.IngestReceipt, error)

	// Subscribe streams the owner's document status events
	Subscribe(ctx context.Context, ownerID string) (<-chan domain.DocumentEvent, func(), error)
}
